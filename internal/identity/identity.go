package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Error codes follow the identity provider's auth/* naming.
const (
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeWeakPassword         = "auth/weak-password"
	CodeUserDisabled         = "auth/user-disabled"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeInvalidActionCode    = "auth/invalid-action-code"
	CodeInvalidUserToken     = "auth/invalid-user-token"
)

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 6

// Error is an identity failure carrying a provider code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the provider code of err, or "" when err carries none.
func CodeOf(err error) string {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Code
	}
	return ""
}

// Identity is the signed-in principal.
type Identity struct {
	UserID      uint64 `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type EventKind string

const (
	EventSignedUp  EventKind = "signed_up"
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is an auth-state change.
type Event struct {
	Kind     EventKind
	Identity Identity
	At       time.Time
}

// Provider is the identity service.
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*Identity, string, error)
	SignIn(ctx context.Context, email, password string) (*Identity, string, error)
	SignOut(ctx context.Context, token string) error
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	// Verify resolves a session token. Revoked and expired tokens fail with CodeInvalidUserToken.
	Verify(ctx context.Context, token string) (*Identity, error)
	// Subscribe registers fn for auth-state changes and returns its cancel func.
	Subscribe(fn func(Event)) func()
}

var validate = validator.New()

// ValidEmail reports whether email is syntactically an address.
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
