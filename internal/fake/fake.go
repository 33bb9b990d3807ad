// Package fake holds in-memory collaborators for flow tests.
package fake

import (
	"CloudHunter/internal/delivery"
	"CloudHunter/internal/identity"
	"CloudHunter/internal/store"
	"CloudHunter/model"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Identity is an in-memory identity.Provider.
type Identity struct {
	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]identity.Identity
	subs     []func(identity.Event)
	nextID   uint64

	SignUpCalls int
	SignInCalls int
	Err         error // returned by every call when set
}

type account struct {
	id       identity.Identity
	password string
}

func NewIdentity() *Identity {
	return &Identity{accounts: map[string]*account{}, tokens: map[string]identity.Identity{}}
}

func (f *Identity) SignUp(_ context.Context, email, password, displayName string) (*identity.Identity, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignUpCalls++
	if f.Err != nil {
		return nil, "", f.Err
	}
	if _, ok := f.accounts[email]; ok {
		return nil, "", &identity.Error{Code: identity.CodeEmailAlreadyInUse}
	}
	f.nextID++
	id := identity.Identity{UserID: f.nextID, Email: email, DisplayName: displayName}
	f.accounts[email] = &account{id: id, password: password}
	token := f.issue(id)
	f.emit(identity.EventSignedUp, id)
	return &id, token, nil
}

func (f *Identity) SignIn(_ context.Context, email, password string) (*identity.Identity, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignInCalls++
	if f.Err != nil {
		return nil, "", f.Err
	}
	acc, ok := f.accounts[email]
	if !ok {
		return nil, "", &identity.Error{Code: identity.CodeUserNotFound}
	}
	if acc.password != password {
		return nil, "", &identity.Error{Code: identity.CodeWrongPassword}
	}
	token := f.issue(acc.id)
	f.emit(identity.EventSignedIn, acc.id)
	id := acc.id
	return &id, token, nil
}

func (f *Identity) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	if !ok {
		return &identity.Error{Code: identity.CodeInvalidUserToken}
	}
	delete(f.tokens, token)
	f.emit(identity.EventSignedOut, id)
	return nil
}

func (f *Identity) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; !ok {
		return &identity.Error{Code: identity.CodeUserNotFound}
	}
	return nil
}

func (f *Identity) ConfirmPasswordReset(_ context.Context, code, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[code]
	if !ok {
		return &identity.Error{Code: identity.CodeInvalidActionCode}
	}
	acc.password = newPassword
	return nil
}

func (f *Identity) Verify(_ context.Context, token string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	if !ok {
		return nil, &identity.Error{Code: identity.CodeInvalidUserToken}
	}
	return &id, nil
}

func (f *Identity) Subscribe(fn func(identity.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.subs)
	f.subs = append(f.subs, fn)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.subs[idx] = nil
	}
}

func (f *Identity) issue(id identity.Identity) string {
	token := fmt.Sprintf("tok-%d-%d", id.UserID, len(f.tokens)+1)
	f.tokens[token] = id
	return token
}

func (f *Identity) emit(kind identity.EventKind, id identity.Identity) {
	for _, fn := range f.subs {
		if fn != nil {
			fn(identity.Event{Kind: kind, Identity: id, At: time.Now()})
		}
	}
}

// Store is an in-memory store.Store.
type Store struct {
	mu     sync.Mutex
	users  map[uint64]*model.User
	files  map[uint64]*model.FileRecord
	nextID uint64
	clock  time.Time

	ListCalls   []uint64 // owner ids passed to ListFiles
	CreateCalls int
	CountErr    error
	CreateErr   error
}

func NewStore() *Store {
	return &Store{
		users: map[uint64]*model.User{},
		files: map[uint64]*model.FileRecord{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *Store) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *user
	u.CreatedAt = f.tick()
	f.users[u.ID] = &u
	*user = u
	return nil
}

func (f *Store) GetUser(_ context.Context, userID uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *Store) IncrementFilesCount(_ context.Context, userID uint64, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CountErr != nil {
		return f.CountErr
	}
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.FilesCount += delta
	return nil
}

func (f *Store) CreateFile(_ context.Context, file *model.FileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.nextID++
	file.ID = f.nextID
	if file.UploadedAt.IsZero() {
		file.UploadedAt = f.tick()
	}
	cp := *file
	f.files[cp.ID] = &cp
	return nil
}

func (f *Store) GetFile(_ context.Context, fileID uint64) (*model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.files[fileID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *Store) ListFiles(_ context.Context, userID uint64) ([]model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls = append(f.ListCalls, userID)
	out := []model.FileRecord{}
	for _, rec := range f.files {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (f *Store) SetShortURL(_ context.Context, userID, fileID uint64, shortURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.files[fileID]
	if !ok || rec.UserID != userID {
		return store.ErrNotFound
	}
	rec.ShortURL = shortURL
	return nil
}

func (f *Store) DeleteFile(_ context.Context, userID, fileID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.files[fileID]
	if !ok || rec.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.files, fileID)
	return nil
}

// FileCount returns the number of records owned by userID.
func (f *Store) FileCount(userID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.files {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

func (f *Store) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// Delivery is an in-memory delivery.Client.
type Delivery struct {
	mu sync.Mutex

	Sent         []delivery.Document
	Bodies       [][]byte
	ResolveCalls int
	SendErr      error
	ResolveErr   error
}

func (f *Delivery) Name() string { return "fake" }

func (f *Delivery) Send(_ context.Context, doc delivery.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return "", f.SendErr
	}
	body, err := io.ReadAll(doc.Body)
	if err != nil {
		return "", err
	}
	f.Sent = append(f.Sent, doc)
	f.Bodies = append(f.Bodies, body)
	return fmt.Sprintf("file-%d", len(f.Sent)), nil
}

func (f *Delivery) Resolve(_ context.Context, fileID string) (*delivery.Resolved, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResolveCalls++
	if f.ResolveErr != nil {
		return nil, f.ResolveErr
	}
	return &delivery.Resolved{Path: "documents/" + fileID, URL: "https://files.example/" + fileID}, nil
}

// Calls returns the number of Send plus Resolve calls.
func (f *Delivery) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent) + f.ResolveCalls
}

// Shortener is an in-memory shortener.Shortener.
type Shortener struct {
	mu    sync.Mutex
	Calls int
	Err   error
	Delay time.Duration
}

func (f *Shortener) Shorten(_ context.Context, longURL string) (string, error) {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	return fmt.Sprintf("https://bit.ly/s%d", f.Calls), nil
}

// Incidents collects reported incidents.
type Incidents struct {
	mu       sync.Mutex
	Reported []model.UploadIncident
}

func (f *Incidents) Report(_ context.Context, incident model.UploadIncident) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reported = append(f.Reported, incident)
}
