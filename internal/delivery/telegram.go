package delivery

import (
	"CloudHunter/utils"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const captionLimit = 1024

// Telegram delivers files as documents posted to a bot chat.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

func NewTelegram(apiBase, token, chatID string, timeout time.Duration) *Telegram {
	return &Telegram{
		apiBase: strings.TrimRight(apiBase, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *Telegram) Name() string { return "telegram" }

type tgFile struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

type tgMessage struct {
	Document  *tgFile  `json:"document"`
	Video     *tgFile  `json:"video"`
	Audio     *tgFile  `json:"audio"`
	Animation *tgFile  `json:"animation"`
	Photo     []tgFile `json:"photo"`
}

type tgResponse[T any] struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

func (t *Telegram) methodURL(method string) string {
	return t.apiBase + "/bot" + t.token + "/" + method
}

// Send streams the document as multipart sendDocument.
func (t *Telegram) Send(ctx context.Context, doc Document) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeDocumentForm(mw, t.chatID, doc))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendDocument"), pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", err
	}
	defer pr.Close()
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out tgResponse[tgMessage]
	if err := t.do(req, "sendDocument", &out); err != nil {
		pr.CloseWithError(err)
		return "", err
	}
	fileID := out.Result.fileID()
	if fileID == "" {
		return "", &APIError{Method: "sendDocument", Description: "response carries no file id"}
	}
	return fileID, nil
}

func writeDocumentForm(mw *multipart.Writer, chatID string, doc Document) error {
	if err := mw.WriteField("chat_id", chatID); err != nil {
		return err
	}
	if doc.Caption != "" {
		if err := mw.WriteField("caption", truncateRunes(doc.Caption, captionLimit)); err != nil {
			return err
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename="%s"`, utils.SanitizeFileName(doc.Name)))
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, doc.Body); err != nil {
		return err
	}
	return mw.Close()
}

func (m tgMessage) fileID() string {
	for _, f := range []*tgFile{m.Document, m.Animation, m.Video, m.Audio} {
		if f != nil && f.FileID != "" {
			return f.FileID
		}
	}
	if n := len(m.Photo); n > 0 {
		return m.Photo[n-1].FileID
	}
	return ""
}

// Resolve calls getFile and builds the bot file URL.
func (t *Telegram) Resolve(ctx context.Context, fileID string) (*Resolved, error) {
	endpoint := t.methodURL("getFile") + "?file_id=" + url.QueryEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var out tgResponse[tgFile]
	if err := t.do(req, "getFile", &out); err != nil {
		return nil, err
	}
	if out.Result.FilePath == "" {
		return nil, &APIError{Method: "getFile", Description: "response carries no file path"}
	}
	return &Resolved{
		Path: out.Result.FilePath,
		URL:  t.apiBase + "/file/bot" + t.token + "/" + out.Result.FilePath,
	}, nil
}

func (t *Telegram) do(req *http.Request, method string, out interface {
	apiError(method string) error
}) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if jsonErr := json.Unmarshal(body, out); jsonErr != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return fmt.Errorf("%s: decode response: %w", method, jsonErr)
	}
	if apiErr := out.apiError(method); apiErr != nil {
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func (r *tgResponse[T]) apiError(method string) error {
	if r.OK {
		return nil
	}
	desc := r.Description
	if desc == "" {
		desc = "request rejected"
	}
	return &APIError{Method: method, Code: r.ErrorCode, Description: desc}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
