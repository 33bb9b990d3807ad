package delivery

import (
	"CloudHunter/internal/storage"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSendAndResolve(t *testing.T) {
	var gotChat, gotCaption, gotName, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/sendDocument":
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				return
			}
			gotChat = r.FormValue("chat_id")
			gotCaption = r.FormValue("caption")
			f, hdr, err := r.FormFile("document")
			if !assert.NoError(t, err) {
				return
			}
			defer f.Close()
			raw, _ := io.ReadAll(f)
			gotName = hdr.Filename
			gotType = hdr.Header.Get("Content-Type")
			gotBody = string(raw)
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"document":{"file_id":"FILE123"}}}`))
		case "/botTOKEN/getFile":
			assert.Equal(t, "FILE123", r.URL.Query().Get("file_id"))
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"FILE123","file_path":"documents/file_1.pdf"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "TOKEN", "-1001", 5*time.Second)
	fileID, err := tg.Send(context.Background(), Document{
		Name:        "report.pdf",
		Size:        5,
		ContentType: "application/pdf",
		Caption:     "📁 report.pdf\n👤 a@b.co",
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "FILE123", fileID)
	assert.Equal(t, "-1001", gotChat)
	assert.Equal(t, "📁 report.pdf\n👤 a@b.co", gotCaption)
	assert.Equal(t, "report.pdf", gotName)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "hello", gotBody)

	res, err := tg.Resolve(context.Background(), fileID)
	require.NoError(t, err)
	assert.Equal(t, "documents/file_1.pdf", res.Path)
	assert.Equal(t, srv.URL+"/file/botTOKEN/documents/file_1.pdf", res.URL)
}

func TestTelegramAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "TOKEN", "x", 5*time.Second)
	_, err := tg.Send(context.Background(), Document{Name: "a.txt", Body: strings.NewReader("a")})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)
	assert.Contains(t, apiErr.Description, "chat not found")
}

func TestTelegramHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "TOKEN", "x", 5*time.Second)
	_, err := tg.Resolve(context.Background(), "FILE")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "📁📁", truncateRunes("📁📁📁", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}

type memStore struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memStore) PutObject(_ context.Context, bucket, object string, reader io.Reader, size int64, opts storage.PutOptions) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	m.objects[bucket+"/"+object] = buf.Bytes()
	m.types[bucket+"/"+object] = opts.ContentType
	return nil
}

func (m *memStore) PresignedGetObject(_ context.Context, bucket, object string, _ time.Duration, params map[string]string) (string, error) {
	return "https://store.local/" + bucket + "/" + object + "?cd=" + params["response-content-disposition"], nil
}

func TestObjectStoreSendAndResolve(t *testing.T) {
	ms := &memStore{objects: map[string][]byte{}, types: map[string]string{}}
	o := NewObjectStore("minio", ms, "bucket", time.Hour)
	assert.Equal(t, "minio", o.Name())

	key, err := o.Send(context.Background(), Document{
		OwnerID: 7, Name: "../a b.txt", Size: 3, ContentType: "text/plain", Body: strings.NewReader("abc"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "7/"), key)
	assert.True(t, strings.HasSuffix(key, "/a b.txt"), key)
	assert.Equal(t, []byte("abc"), ms.objects["bucket/"+key])
	assert.Equal(t, "text/plain", ms.types["bucket/"+key])

	res, err := o.Resolve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key, res.Path)
	assert.Contains(t, res.URL, `filename="a b.txt"`)
}
