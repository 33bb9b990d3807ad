package handler

import (
	"CloudHunter/internal/dto"
	"CloudHunter/internal/notify"
	"CloudHunter/internal/service"
	"CloudHunter/utils"
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// multipartSlack covers the multipart envelope around the file part.
const multipartSlack = 1 << 20

// Handler serves the JSON API and the HTML pages over one App.
type Handler struct {
	App           *service.App
	Gate          *service.SessionGate
	MaxUploadSize int64
}

func New(app *service.App, gate *service.SessionGate) *Handler {
	return &Handler{App: app, Gate: gate, MaxUploadSize: app.MaxUploadSize}
}

// Resolve adapts the session gate to utils.AuthMiddleware.
func (h *Handler) Resolve(ctx context.Context, token string) (uint64, interface{}, error) {
	s, err := h.Gate.Resolve(ctx, token)
	if err != nil {
		return 0, nil, err
	}
	return s.UserID, s, nil
}

func statusFor(err error) int {
	e, ok := service.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if e.Code == service.CodeFileTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	switch e.Kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	t := notify.FromError(err)
	utils.Fail(c, statusFor(err), t.Message, t)
}

func badRequest(c *gin.Context, err error) {
	utils.Fail(c, http.StatusBadRequest, "invalid request: "+err.Error(), notify.Error(service.GenericMessage))
}

func sessionFrom(c *gin.Context) *service.Session {
	v, _ := c.Get("session")
	s, _ := v.(*service.Session)
	return s
}

func bindFileID(c *gin.Context) (uint64, error) {
	var uri dto.FileURI
	if err := c.ShouldBindUri(&uri); err != nil {
		return 0, err
	}
	return uri.ID, nil
}

// readUpload opens the multipart "file" part under the body cap. A missing
// part yields an empty input so the flow reports it.
func (h *Handler) readUpload(c *gin.Context) (service.UploadInput, func(), error) {
	noop := func() {}
	if limit := h.MaxUploadSize; limit > 0 {
		if c.Request.ContentLength > limit+multipartSlack {
			return service.UploadInput{}, noop, service.FileTooLarge(limit)
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)
	}

	header, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			return service.UploadInput{}, noop, service.FileTooLarge(h.MaxUploadSize)
		}
		if !errors.Is(err, http.ErrMissingFile) {
			log.Printf("upload: read multipart: %v", err)
		}
		return service.UploadInput{}, noop, nil
	}
	f, err := header.Open()
	if err != nil {
		return service.UploadInput{}, noop, err
	}
	return service.UploadInput{
		Name:        utils.SanitizeFileName(header.Filename),
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func isBodyTooLarge(err error) bool {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
