package service

import (
	"CloudHunter/internal/fake"
	"CloudHunter/internal/identity"
	"CloudHunter/internal/repo"
	"CloudHunter/model"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	app       *App
	identity  *fake.Identity
	store     *fake.Store
	delivery  *fake.Delivery
	shortener *fake.Shortener
	incidents *fake.Incidents
}

func newHarness() *harness {
	h := &harness{
		identity:  fake.NewIdentity(),
		store:     fake.NewStore(),
		delivery:  &fake.Delivery{},
		shortener: &fake.Shortener{},
		incidents: &fake.Incidents{},
	}
	h.app = &App{
		Identity:      h.identity,
		Store:         h.store,
		Delivery:      h.delivery,
		Shortener:     h.shortener,
		Incidents:     h.incidents,
		Locker:        repo.NewLocalLocker(),
		MaxUploadSize: 2 << 30,
		Now:           func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC) },
	}
	return h
}

func (h *harness) signUp(t *testing.T, email string) *Session {
	t.Helper()
	s, err := h.app.SignUp(context.Background(), SignUpInput{Name: "Ada", Email: email, Password: "secret1", Confirm: "secret1"})
	require.NoError(t, err)
	return s
}

func (h *harness) upload(t *testing.T, s *Session, name string) *model.FileRecord {
	t.Helper()
	rec, err := h.app.Upload(context.Background(), s, UploadInput{
		Name: name, Size: 5, ContentType: "text/plain", Body: strings.NewReader("hello"),
	})
	require.NoError(t, err)
	return rec
}

func kindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

func codeOf(err error) string {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

func TestSignUpCreatesUsersDocument(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	assert.NotEmpty(t, s.Token)

	user, err := h.app.Profile(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, int64(0), user.FilesCount)
}

func TestSignUpValidationRunsBeforeProvider(t *testing.T) {
	cases := []struct {
		name string
		in   SignUpInput
		code string
	}{
		{"missing field", SignUpInput{Name: "", Email: "a@b.co", Password: "secret1", Confirm: "secret1"}, CodeFieldsRequired},
		{"short password", SignUpInput{Name: "A", Email: "a@b.co", Password: "12345", Confirm: "12345"}, CodePasswordTooShort},
		{"mismatch", SignUpInput{Name: "A", Email: "a@b.co", Password: "secret1", Confirm: "secret2"}, CodePasswordMismatch},
		{"bad email", SignUpInput{Name: "A", Email: "nope", Password: "secret1", Confirm: "secret1"}, identity.CodeInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.app.SignUp(context.Background(), tc.in)
			require.Error(t, err)
			assert.Equal(t, KindValidation, kindOf(err))
			assert.Equal(t, tc.code, codeOf(err))
			assert.Zero(t, h.identity.SignUpCalls)
		})
	}
}

func TestSignInErrorsUseMessageTable(t *testing.T) {
	h := newHarness()
	h.signUp(t, "ada@example.com")

	_, err := h.app.SignIn(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnauthorized, e.Kind)
	assert.Equal(t, "Incorrect password", e.Message)

	_, err = h.app.SignIn(context.Background(), "", "x")
	assert.Equal(t, CodeCredentialsRequired, codeOf(err))

	h.identity.Err = errors.New("boom")
	_, err = h.app.SignIn(context.Background(), "ada@example.com", "secret1")
	e, _ = AsError(err)
	assert.Equal(t, GenericMessage, e.Message)
}

func TestAuthMessageFallback(t *testing.T) {
	assert.Equal(t, "This email is already in use", AuthMessage(identity.CodeEmailAlreadyInUse))
	assert.Equal(t, GenericMessage, AuthMessage("auth/internal-error"))
}

func TestSessionGate(t *testing.T) {
	h := newHarness()
	gate := NewSessionGate(h.identity)
	defer gate.Close()

	assert.Equal(t, View{State: ViewAuth}, gate.View(nil))

	s := h.signUp(t, "grace@example.com")
	resolved, err := gate.Resolve(context.Background(), s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, resolved.UserID)
	assert.Equal(t, ViewApp, gate.View(resolved).State)
	assert.Equal(t, "Ada", gate.View(resolved).DisplayName)

	resolved.DisplayName = ""
	assert.Equal(t, "grace", gate.View(resolved).DisplayName)

	require.NoError(t, h.app.SignOut(context.Background(), s))
	_, err = gate.Resolve(context.Background(), s.Token)
	assert.Equal(t, KindUnauthorized, kindOf(err))
}

func TestUploadSuccess(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")

	rec := h.upload(t, s, "notes.txt")
	assert.Equal(t, s.UserID, rec.UserID)
	assert.Equal(t, "https://files.example/file-1", rec.FileURL)
	assert.Equal(t, "documents/file-1", rec.FilePath)
	assert.Equal(t, "file-1", rec.FileID)
	assert.Equal(t, "fake", rec.Backend)

	require.Len(t, h.delivery.Sent, 1)
	assert.Equal(t, "📁 notes.txt\n👤 ada@example.com\n📅 2024-03-09 14:05:00", h.delivery.Sent[0].Caption)

	assert.Equal(t, 1, h.store.FileCount(s.UserID))
	user, err := h.app.Profile(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.FilesCount)
	assert.Empty(t, h.incidents.Reported)
}

func TestUploadOversizedMakesNoCalls(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")

	_, err := h.app.Upload(context.Background(), s, UploadInput{
		Name: "huge.iso", Size: h.app.MaxUploadSize + 1, ContentType: "application/octet-stream", Body: strings.NewReader(""),
	})
	require.Error(t, err)
	assert.Equal(t, CodeFileTooLarge, codeOf(err))
	e, _ := AsError(err)
	assert.Contains(t, e.Message, "2 GB")
	assert.Zero(t, h.delivery.Calls())
	assert.Zero(t, h.store.CreateCalls)
}

func TestUploadRequiresSession(t *testing.T) {
	h := newHarness()
	_, err := h.app.Upload(context.Background(), nil, UploadInput{Name: "a", Size: 1, Body: strings.NewReader("a")})
	assert.Equal(t, CodeSignInRequired, codeOf(err))
	assert.Zero(t, h.delivery.Calls())
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

	rec, err := h.app.Upload(context.Background(), s, UploadInput{Name: "pic", Size: int64(len(png)), Body: bytes.NewReader(png)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", rec.FileType)
	assert.Equal(t, png, h.delivery.Bodies[0])
}

func TestUploadStopsAtFirstFailure(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	h.delivery.SendErr = errors.New("telegram down")

	_, err := h.app.Upload(context.Background(), s, UploadInput{Name: "a.txt", Size: 1, ContentType: "text/plain", Body: strings.NewReader("a")})
	assert.Equal(t, CodeUploadFailed, codeOf(err))
	assert.Zero(t, h.delivery.ResolveCalls)
	assert.Zero(t, h.store.CreateCalls)
	assert.Empty(t, h.incidents.Reported)
}

func TestUploadReportsOrphanWhenRecordFails(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	h.store.CreateErr = errors.New("db down")

	_, err := h.app.Upload(context.Background(), s, UploadInput{Name: "a.txt", Size: 1, ContentType: "text/plain", Body: strings.NewReader("a")})
	assert.Equal(t, CodeUploadFailed, codeOf(err))
	require.Len(t, h.incidents.Reported, 1)
	inc := h.incidents.Reported[0]
	assert.Equal(t, model.IncidentOrphan, inc.Kind)
	assert.Equal(t, "record", inc.Stage)
	assert.Equal(t, "file-1", inc.ExternalFileID)
	assert.NotEmpty(t, inc.EventID)

	user, _ := h.app.Profile(context.Background(), s)
	assert.Equal(t, int64(0), user.FilesCount)
}

func TestUploadReportsCountDrift(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	h.store.CountErr = errors.New("db down")

	_, err := h.app.Upload(context.Background(), s, UploadInput{Name: "a.txt", Size: 1, ContentType: "text/plain", Body: strings.NewReader("a")})
	assert.Error(t, err)
	assert.Equal(t, 1, h.store.FileCount(s.UserID))
	require.Len(t, h.incidents.Reported, 1)
	assert.Equal(t, model.IncidentCountDrift, h.incidents.Reported[0].Kind)
	assert.NotZero(t, h.incidents.Reported[0].FileRecordID)
}

func TestListScopedToSessionOwner(t *testing.T) {
	h := newHarness()
	ada := h.signUp(t, "ada@example.com")
	bob := h.signUp(t, "bob@example.com")
	h.upload(t, ada, "first.txt")
	h.upload(t, bob, "bob.txt")
	h.upload(t, ada, "second.txt")

	files, err := h.app.ListFiles(context.Background(), ada)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "second.txt", files[0].FileName)
	assert.Equal(t, "first.txt", files[1].FileName)
	assert.Equal(t, []uint64{ada.UserID}, h.store.ListCalls)
}

func TestDeleteRemovesOneRecord(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	keep := h.upload(t, s, "keep.txt")
	drop := h.upload(t, s, "drop.txt")

	require.NoError(t, h.app.DeleteFile(context.Background(), s, drop.ID))
	files, err := h.app.ListFiles(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, keep.ID, files[0].ID)

	user, _ := h.app.Profile(context.Background(), s)
	assert.Equal(t, int64(1), user.FilesCount)
}

func TestOtherOwnersFilesAreNotFound(t *testing.T) {
	h := newHarness()
	ada := h.signUp(t, "ada@example.com")
	bob := h.signUp(t, "bob@example.com")
	rec := h.upload(t, ada, "secret.txt")

	_, err := h.app.DownloadURL(context.Background(), bob, rec.ID)
	assert.Equal(t, KindNotFound, kindOf(err))
	assert.Equal(t, KindNotFound, kindOf(h.app.DeleteFile(context.Background(), bob, rec.ID)))
	_, err = h.app.ShortenLink(context.Background(), bob, rec.ID)
	assert.Equal(t, KindNotFound, kindOf(err))
	assert.Equal(t, 1, h.store.FileCount(ada.UserID))
}

func TestShortenTwiceCallsOnce(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	rec := h.upload(t, s, "a.txt")

	first, err := h.app.ShortenLink(context.Background(), s, rec.ID)
	require.NoError(t, err)
	assert.False(t, first.Reused)
	assert.Equal(t, "https://bit.ly/s1", first.URL)

	second, err := h.app.ShortenLink(context.Background(), s, rec.ID)
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, 1, h.shortener.Calls)
}

func TestConcurrentShortenCallsOnce(t *testing.T) {
	h := newHarness()
	h.shortener.Delay = 5 * time.Millisecond
	s := h.signUp(t, "ada@example.com")
	rec := h.upload(t, s, "a.txt")

	var wg sync.WaitGroup
	urls := make([]string, 6)
	for i := range urls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.app.ShortenLink(context.Background(), s, rec.ID)
			if assert.NoError(t, err) {
				urls[i] = res.URL
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, h.shortener.Calls)
	for _, u := range urls {
		assert.Equal(t, "https://bit.ly/s1", u)
	}
}

func TestShortenFallsBackToOriginalURL(t *testing.T) {
	h := newHarness()
	s := h.signUp(t, "ada@example.com")
	rec := h.upload(t, s, "a.txt")
	h.shortener.Err = errors.New("bitly down")

	res, err := h.app.ShortenLink(context.Background(), s, rec.ID)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, rec.FileURL, res.URL)

	got, _ := h.store.GetFile(context.Background(), rec.ID)
	assert.Empty(t, got.ShortURL)
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness()
	h.signUp(t, "ada@example.com")

	assert.Equal(t, CodeEmailRequired, codeOf(h.app.SendPasswordReset(context.Background(), " ")))
	assert.NoError(t, h.app.SendPasswordReset(context.Background(), "ada@example.com"))
	assert.Equal(t, KindUnauthorized, kindOf(h.app.SendPasswordReset(context.Background(), "nobody@example.com")))

	assert.Equal(t, CodePasswordTooShort, codeOf(h.app.ConfirmPasswordReset(context.Background(), "ada@example.com", "123", "123")))
	assert.Equal(t, CodePasswordMismatch, codeOf(h.app.ConfirmPasswordReset(context.Background(), "ada@example.com", "secret9", "secret8")))
	require.NoError(t, h.app.ConfirmPasswordReset(context.Background(), "ada@example.com", "secret9", "secret9"))

	_, err := h.app.SignIn(context.Background(), "ada@example.com", "secret9")
	assert.NoError(t, err)
}

func TestSizeLimitLabel(t *testing.T) {
	assert.Equal(t, "2 GB", SizeLimitLabel(2<<30))
	assert.Equal(t, "10 MB", SizeLimitLabel(10<<20))
	assert.Equal(t, "512 bytes", SizeLimitLabel(512))
}
