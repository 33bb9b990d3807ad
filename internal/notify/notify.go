package notify

import (
	"CloudHunter/internal/service"
	"encoding/gob"
	"time"

	"github.com/gin-contrib/sessions"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// DismissAfter is how long a toast stays on screen.
const DismissAfter = 4 * time.Second

// Toast is a transient notification.
type Toast struct {
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	DismissMs int64  `json:"dismiss_ms"`
}

func newToast(level Level, msg string) Toast {
	return Toast{Level: level, Message: msg, DismissMs: DismissAfter.Milliseconds()}
}

func Success(msg string) Toast { return newToast(LevelSuccess, msg) }
func Error(msg string) Toast   { return newToast(LevelError, msg) }
func Warning(msg string) Toast { return newToast(LevelWarning, msg) }
func Info(msg string) Toast    { return newToast(LevelInfo, msg) }

// FromError maps any error to the error toast the user sees.
func FromError(err error) Toast {
	if e, ok := service.AsError(err); ok && e.Message != "" {
		return Error(e.Message)
	}
	return Error(service.GenericMessage)
}

const (
	MsgSignedIn        = "Signed in successfully! 🎉"
	MsgSignedUp        = "Account created successfully! 🎉"
	MsgSignedOut       = "Signed out successfully"
	MsgResetSent       = "A password reset link has been sent to your email"
	MsgPasswordChanged = "Password updated, you can sign in now"
	MsgUploaded        = "File uploaded successfully"
	MsgLinkCopied      = "Short link copied! 📋"
	MsgOriginalCopied  = "Original link copied"
	MsgDeleted         = "File deleted successfully"
	MsgRefreshing      = "Refreshing files..."
	MsgOpeningDownload = "Opening download link..."
	MsgConfirmDelete   = "Are you sure you want to delete this file? This cannot be undone."
	MsgConfirmSignOut  = "Are you sure you want to sign out?"
	MsgEmptyTitle      = "No files yet"
	MsgEmptyHint       = "Upload your files from the \"Upload\" tab"
)

// Loading overlay texts.
const (
	LoadingDefault = "Loading…"
	LoadingSignIn  = "Signing in…"
	LoadingSignUp  = "Creating account…"
	LoadingReset   = "Sending reset link…"
	LoadingSignOut = "Signing out…"
	LoadingUpload  = "Uploading…"
	LoadingShorten = "Shortening link…"
	LoadingDelete  = "Deleting file…"
	LoadingFiles   = "Loading files…"
)

// LinkToast picks the toast for a copy-link result.
func LinkToast(res *service.LinkResult) Toast {
	if res.Fallback {
		return Warning(MsgOriginalCopied)
	}
	return Success(MsgLinkCopied)
}

const flashKey = "toasts"

func init() {
	gob.Register(Toast{})
}

// Flash queues a toast for the next rendered page. The caller saves the session.
func Flash(session sessions.Session, t Toast) {
	session.AddFlash(t, flashKey)
}

// Drain pops the queued toasts. The caller saves the session.
func Drain(session sessions.Session) []Toast {
	var out []Toast
	for _, v := range session.Flashes(flashKey) {
		if t, ok := v.(Toast); ok {
			out = append(out, t)
		}
	}
	return out
}
