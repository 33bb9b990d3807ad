package service

import (
	"CloudHunter/internal/identity"
	"CloudHunter/model"
	"context"
	"log"
	"strings"
)

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// checkNewPassword applies the password rules shared by sign up and reset.
func checkNewPassword(password, confirm string) error {
	if len(password) < identity.MinPasswordLength {
		return validationError(CodePasswordTooShort, "Password must be at least 6 characters")
	}
	if password != confirm {
		return validationError(CodePasswordMismatch, "Passwords do not match")
	}
	return nil
}

// SignUp validates the form, creates the account and its users document.
// Every local check runs before the identity provider is called.
func (a *App) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" || in.Confirm == "" {
		return nil, validationError(CodeFieldsRequired, "Please fill in all fields")
	}
	if err := checkNewPassword(in.Password, in.Confirm); err != nil {
		return nil, err
	}
	if !identity.ValidEmail(email) {
		return nil, authError(&identity.Error{Code: identity.CodeInvalidEmail})
	}

	id, token, err := a.Identity.SignUp(ctx, email, in.Password, name)
	if err != nil {
		return nil, authError(err)
	}

	user := &model.User{
		ID:         id.UserID,
		Name:       name,
		Email:      id.Email,
		FilesCount: 0,
	}
	if err := a.Store.CreateUser(ctx, user); err != nil {
		log.Printf("signup: create users document for uid=%d: %v", id.UserID, err)
		return nil, externalError(CodeProfileFailed, "Account created but the profile could not be saved", err)
	}
	return &Session{UserID: id.UserID, Email: id.Email, DisplayName: id.DisplayName, Token: token}, nil
}

func (a *App) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError(CodeCredentialsRequired, "Please enter your email and password")
	}
	id, token, err := a.Identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, authError(err)
	}
	return &Session{UserID: id.UserID, Email: id.Email, DisplayName: id.DisplayName, Token: token}, nil
}

func (a *App) SignOut(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	if err := a.Identity.SignOut(ctx, s.Token); err != nil {
		log.Printf("signout: uid=%d: %v", s.UserID, err)
		return externalError(CodeSignOutFailed, "Something went wrong while signing out", err)
	}
	return nil
}

func (a *App) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return validationError(CodeEmailRequired, "Please enter your email")
	}
	if err := a.Identity.SendPasswordReset(ctx, email); err != nil {
		return authError(err)
	}
	return nil
}

func (a *App) ConfirmPasswordReset(ctx context.Context, code, password, confirm string) error {
	if strings.TrimSpace(code) == "" || password == "" || confirm == "" {
		return validationError(CodeFieldsRequired, "Please fill in all fields")
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return err
	}
	if err := a.Identity.ConfirmPasswordReset(ctx, code, password); err != nil {
		return authError(err)
	}
	return nil
}
