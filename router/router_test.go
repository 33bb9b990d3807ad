package router

import (
	"CloudHunter/internal/fake"
	"CloudHunter/internal/handler"
	"CloudHunter/internal/notify"
	"CloudHunter/internal/repo"
	"CloudHunter/internal/service"
	"CloudHunter/internal/view"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code  int             `json:"code"`
	Msg   string          `json:"msg"`
	Data  json.RawMessage `json:"data"`
	Toast *notify.Toast   `json:"toast"`
}

type testServer struct {
	engine    *gin.Engine
	identity  *fake.Identity
	store     *fake.Store
	delivery  *fake.Delivery
	shortener *fake.Shortener
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		identity:  fake.NewIdentity(),
		store:     fake.NewStore(),
		delivery:  &fake.Delivery{},
		shortener: &fake.Shortener{},
	}
	app := &service.App{
		Identity:      ts.identity,
		Store:         ts.store,
		Delivery:      ts.delivery,
		Shortener:     ts.shortener,
		Incidents:     &fake.Incidents{},
		Locker:        repo.NewLocalLocker(),
		MaxUploadSize: 1024,
	}
	gate := service.NewSessionGate(ts.identity)
	t.Cleanup(gate.Close)
	ts.engine = InitRouter(handler.New(app, gate), Options{SessionSecret: "test-session-secret"})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) json(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := ts.do(req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (ts *testServer) signUp(t *testing.T, email string) string {
	t.Helper()
	w, env := ts.json(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Ada", "email": email, "password": "secret1", "confirm": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func multipartFile(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (ts *testServer) upload(t *testing.T, token, name string, content []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	body, contentType := multipartFile(t, name, content)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := ts.do(req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestSessionView(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.json(t, http.MethodGet, "/api/session", "", nil)
	assert.JSONEq(t, `{"state":"auth"}`, string(env.Data))

	token := ts.signUp(t, "ada@example.com")
	_, env = ts.json(t, http.MethodGet, "/api/session", token, nil)
	assert.JSONEq(t, `{"state":"app","display_name":"Ada","email":"ada@example.com"}`, string(env.Data))

	_, env = ts.json(t, http.MethodGet, "/api/session", "bogus", nil)
	assert.JSONEq(t, `{"state":"auth"}`, string(env.Data))
}

func TestSignUpShortPasswordNeverReachesIdentity(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.json(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "12345", "confirm": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, -1, env.Code)
	require.NotNil(t, env.Toast)
	assert.Equal(t, notify.LevelError, env.Toast.Level)
	assert.Equal(t, "Password must be at least 6 characters", env.Toast.Message)
	assert.Zero(t, ts.identity.SignUpCalls)
}

func TestSignInErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "ada@example.com")

	w, env := ts.json(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect password", env.Msg)

	w, env = ts.json(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, notify.MsgSignedIn, env.Toast.Message)
}

func TestFilesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.json(t, http.MethodGet, "/api/files", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, ts.store.ListCalls)
}

func TestUploadListShortenDelete(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ada@example.com")

	w, env := ts.json(t, http.MethodGet, "/api/files", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing view.Listing
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.True(t, listing.Empty)
	assert.Empty(t, listing.Cards)
	assert.Equal(t, view.EmptyTitle, listing.EmptyTitle)

	w, env = ts.upload(t, token, "notes.txt", []byte("hello"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, notify.MsgUploaded, env.Toast.Message)
	assert.Equal(t, []byte("hello"), ts.delivery.Bodies[0])

	_, env = ts.json(t, http.MethodGet, "/api/profile", token, nil)
	assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com","files_count":1}`, string(env.Data))

	_, env = ts.json(t, http.MethodGet, "/api/files", token, nil)
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	require.Len(t, listing.Cards, 1)
	card := listing.Cards[0]
	assert.Equal(t, "notes.txt", card.Name)
	assert.Equal(t, "5 Bytes", card.Size)
	id := card.ID
	idPath := "/api/files/" + jsonNumber(id)

	req := httptest.NewRequest(http.MethodGet, idPath+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = ts.do(req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, card.URL, w.Header().Get("Location"))

	var link service.LinkResult
	_, env = ts.json(t, http.MethodPost, idPath+"/shorten", token, nil)
	require.NoError(t, json.Unmarshal(env.Data, &link))
	assert.False(t, link.Reused)
	assert.Equal(t, notify.MsgLinkCopied, env.Toast.Message)

	_, env = ts.json(t, http.MethodPost, idPath+"/shorten", token, nil)
	require.NoError(t, json.Unmarshal(env.Data, &link))
	assert.True(t, link.Reused)
	assert.Equal(t, 1, ts.shortener.Calls)

	w, env = ts.json(t, http.MethodDelete, idPath, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, notify.MsgDeleted, env.Toast.Message)
	assert.Zero(t, ts.store.FileCount(1))

	_, env = ts.json(t, http.MethodGet, "/api/profile", token, nil)
	assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com","files_count":0}`, string(env.Data))

	w, _ = ts.json(t, http.MethodDelete, idPath, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshFilesCarriesInfoToast(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ada@example.com")

	w, env := ts.json(t, http.MethodPost, "/api/files/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Toast)
	assert.Equal(t, notify.LevelInfo, env.Toast.Level)
	assert.Equal(t, notify.MsgRefreshing, env.Toast.Message)
	assert.Equal(t, []uint64{1}, ts.store.ListCalls)
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ada@example.com")

	w, env := ts.upload(t, token, "big.bin", bytes.Repeat([]byte("x"), 2048))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, env.Msg, "File size exceeds the allowed limit")
	assert.Zero(t, ts.delivery.Calls())
	assert.Zero(t, ts.store.CreateCalls)
}

func TestOtherOwnersFilesAreNotFound(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t, "ada@example.com")
	other := ts.signUp(t, "bob@example.com")

	w, _ := ts.upload(t, owner, "a.txt", []byte("a"))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.json(t, http.MethodDelete, "/api/files/1", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, ts.store.FileCount(1))

	_, env := ts.json(t, http.MethodGet, "/api/files", other, nil)
	var listing view.Listing
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.True(t, listing.Empty)
	assert.Equal(t, uint64(2), ts.store.ListCalls[len(ts.store.ListCalls)-1])
}

func TestSignOutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "ada@example.com")

	w, env := ts.json(t, http.MethodPost, "/api/auth/signout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, notify.MsgSignedOut, env.Toast.Message)

	w, _ = ts.json(t, http.MethodGet, "/api/files", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordResetAPI(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "ada@example.com")

	w, env := ts.json(t, http.MethodPost, "/api/auth/reset", "", map[string]string{"email": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please enter your email", env.Msg)

	w, _ = ts.json(t, http.MethodPost, "/api/auth/reset", "", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = ts.json(t, http.MethodPost, "/api/auth/reset/confirm", "", map[string]string{
		"code": "ada@example.com", "password": "newpass", "confirm": "newpass",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, notify.MsgPasswordChanged, env.Toast.Message)

	w, _ = ts.json(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "ada@example.com", "password": "newpass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTMLSignInFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "ada@example.com")

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="auth-screen"`)

	form := url.Values{"email": {"ada@example.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = ts.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="app-screen"`)
	assert.Contains(t, body, "Signed in successfully")
	assert.Contains(t, body, `id="upload-form"`)
	assert.Contains(t, body, "max 1024 bytes")

	req = httptest.NewRequest(http.MethodGet, "/?tab=files", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = ts.do(req)
	assert.Contains(t, w.Body.String(), view.EmptyTitle)
}

func TestHTMLActionsNeedSession(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/files/1/delete", nil)
	w := ts.do(req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestAssetsServed(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "autoDismiss")
}

func jsonNumber(id uint64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
