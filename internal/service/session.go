package service

import (
	"CloudHunter/internal/identity"
	"context"
	"log"
	"strings"
)

// Session is the signed-in state of one client.
type Session struct {
	UserID      uint64 `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Token       string `json:"-"`
}

type ViewState string

const (
	ViewAuth ViewState = "auth"
	ViewApp  ViewState = "app"
)

// View is what the client shows for a session.
type View struct {
	State       ViewState `json:"state"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
}

// SessionGate decides between the auth view and the app view.
type SessionGate struct {
	provider identity.Provider
	cancel   func()
}

// NewSessionGate subscribes to auth-state changes of provider.
func NewSessionGate(provider identity.Provider) *SessionGate {
	g := &SessionGate{provider: provider}
	g.cancel = provider.Subscribe(func(ev identity.Event) {
		log.Printf("session: %s uid=%d", ev.Kind, ev.Identity.UserID)
	})
	return g
}

// Resolve turns a token into a Session. An empty token is no session.
func (g *SessionGate) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSignInRequired
	}
	id, err := g.provider.Verify(ctx, token)
	if err != nil {
		return nil, authError(err)
	}
	return &Session{UserID: id.UserID, Email: id.Email, DisplayName: id.DisplayName, Token: token}, nil
}

// View maps a session, possibly nil, to the view state.
func (g *SessionGate) View(s *Session) View {
	if s == nil {
		return View{State: ViewAuth}
	}
	return View{State: ViewApp, DisplayName: DisplayName(s.DisplayName, s.Email), Email: s.Email}
}

func (g *SessionGate) Close() {
	if g.cancel != nil {
		g.cancel()
	}
}

// DisplayName falls back to the local part of email when name is blank.
func DisplayName(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}
