package service

import (
	"CloudHunter/internal/identity"
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindExternal     ErrorKind = "external"
)

// Error is a flow failure with the one message the user gets to see.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

const (
	CodeFieldsRequired      = "fields_required"
	CodeCredentialsRequired = "credentials_required"
	CodeEmailRequired       = "email_required"
	CodePasswordTooShort    = "password_too_short"
	CodePasswordMismatch    = "password_mismatch"
	CodeProfileFailed       = "profile_failed"
	CodeSignInRequired      = "sign_in_required"
	CodeFileRequired        = "file_required"
	CodeFileTooLarge        = "file_too_large"
	CodeUploadFailed        = "upload_failed"
	CodeListFailed          = "list_failed"
	CodeFileNotFound        = "file_not_found"
	CodeDeleteFailed        = "delete_failed"
	CodeSignOutFailed       = "sign_out_failed"
)

const GenericMessage = "An unexpected error occurred"

var authMessages = map[string]string{
	identity.CodeEmailAlreadyInUse:    "This email is already in use",
	identity.CodeInvalidEmail:         "The email address is invalid",
	identity.CodeOperationNotAllowed:  "This operation is not allowed",
	identity.CodeWeakPassword:         "The password is too weak",
	identity.CodeUserDisabled:         "This account has been disabled",
	identity.CodeUserNotFound:         "This email is not registered",
	identity.CodeWrongPassword:        "Incorrect password",
	identity.CodeTooManyRequests:      "Too many attempts. Try again later",
	identity.CodeNetworkRequestFailed: "Network error, check your connection",
	identity.CodeInvalidActionCode:    "The reset link is invalid or has expired",
	identity.CodeInvalidUserToken:     "Your session has expired, sign in again",
}

// AuthMessage maps an identity code to its message, falling back to GenericMessage.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return GenericMessage
}

func authKind(code string) ErrorKind {
	switch code {
	case identity.CodeUserNotFound, identity.CodeWrongPassword, identity.CodeUserDisabled, identity.CodeInvalidUserToken:
		return KindUnauthorized
	case identity.CodeTooManyRequests, identity.CodeNetworkRequestFailed:
		return KindExternal
	case "":
		return KindExternal
	default:
		return KindValidation
	}
}

func authError(err error) error {
	code := identity.CodeOf(err)
	errCode := code
	if errCode == "" {
		errCode = "auth/unknown"
	}
	return &Error{Kind: authKind(code), Code: errCode, Message: AuthMessage(code), Err: err}
}

func validationError(code, msg string) error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func externalError(code, msg string, err error) error {
	return &Error{Kind: KindExternal, Code: code, Message: msg, Err: err}
}

var ErrSignInRequired = &Error{Kind: KindUnauthorized, Code: CodeSignInRequired, Message: "You must sign in first"}

var errFileNotFound = &Error{Kind: KindNotFound, Code: CodeFileNotFound, Message: "File not found"}
