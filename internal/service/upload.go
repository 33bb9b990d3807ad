package service

import (
	"CloudHunter/internal/delivery"
	"CloudHunter/model"
	"CloudHunter/utils"
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

type UploadInput struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Caption is the text posted alongside a delivered file.
func Caption(name, email string, at time.Time) string {
	return fmt.Sprintf("📁 %s\n👤 %s\n📅 %s", name, email, at.Format("2006-01-02 15:04:05"))
}

// SizeLimitLabel renders an upload limit such as "2 GB".
func SizeLimitLabel(limit int64) string {
	const gb = 1 << 30
	const mb = 1 << 20
	switch {
	case limit >= gb && limit%gb == 0:
		return fmt.Sprintf("%d GB", limit/gb)
	case limit >= mb:
		return fmt.Sprintf("%d MB", limit/mb)
	default:
		return fmt.Sprintf("%d bytes", limit)
	}
}

// FileTooLarge is the rejection for a file over limit.
func FileTooLarge(limit int64) error {
	return validationError(CodeFileTooLarge, fmt.Sprintf("File size exceeds the allowed limit (%s)", SizeLimitLabel(limit)))
}

// sniffContentType detects the type from the first bytes and returns a
// reader that still yields the whole stream.
func sniffContentType(body io.Reader) (string, io.Reader) {
	br := bufio.NewReaderSize(body, sniffLen)
	head, _ := br.Peek(sniffLen)
	return mimetype.Detect(head).String(), br
}

// Upload delivers one file, resolves its URL, records it and bumps the
// owner's counter. Steps run in order and the first failure stops the rest.
func (a *App) Upload(ctx context.Context, s *Session, in UploadInput) (*model.FileRecord, error) {
	if s == nil {
		return nil, ErrSignInRequired
	}
	if in.Body == nil || strings.TrimSpace(in.Name) == "" {
		return nil, validationError(CodeFileRequired, "Please choose a file")
	}
	if a.MaxUploadSize > 0 && in.Size > a.MaxUploadSize {
		return nil, FileTooLarge(a.MaxUploadSize)
	}

	contentType := strings.TrimSpace(in.ContentType)
	body := in.Body
	if contentType == "" {
		contentType, body = sniffContentType(body)
	}

	uploadFail := func(err error) error {
		return externalError(CodeUploadFailed, "File upload failed", err)
	}

	fileID, err := a.Delivery.Send(ctx, delivery.Document{
		OwnerID:     s.UserID,
		Name:        in.Name,
		Size:        in.Size,
		ContentType: contentType,
		Caption:     Caption(in.Name, s.Email, a.now()),
		Body:        body,
	})
	if err != nil {
		log.Printf("upload: send %q for uid=%d: %v", in.Name, s.UserID, err)
		return nil, uploadFail(err)
	}

	incident := model.UploadIncident{
		UserID:         s.UserID,
		FileName:       in.Name,
		FileSize:       in.Size,
		Backend:        a.Delivery.Name(),
		ExternalFileID: fileID,
	}

	resolved, err := a.Delivery.Resolve(ctx, fileID)
	if err != nil {
		log.Printf("upload: resolve %s: %v", fileID, err)
		a.report(ctx, incident, model.IncidentOrphan, "resolve", err)
		return nil, uploadFail(err)
	}
	incident.FileURL = resolved.URL

	record := &model.FileRecord{
		UserID:   s.UserID,
		FileName: in.Name,
		FileSize: in.Size,
		FileType: contentType,
		Backend:  a.Delivery.Name(),
		FileID:   fileID,
		FilePath: resolved.Path,
		FileURL:  resolved.URL,
	}
	if err := a.Store.CreateFile(ctx, record); err != nil {
		log.Printf("upload: create record for %s: %v", fileID, err)
		a.report(ctx, incident, model.IncidentOrphan, "record", err)
		return nil, uploadFail(err)
	}
	incident.FileRecordID = record.ID

	if err := a.Store.IncrementFilesCount(ctx, s.UserID, 1); err != nil {
		log.Printf("upload: increment files count uid=%d: %v", s.UserID, err)
		a.report(ctx, incident, model.IncidentCountDrift, "count", err)
		return nil, uploadFail(err)
	}

	log.Printf("upload: uid=%d file=%d backend=%s size=%d", s.UserID, record.ID, record.Backend, record.FileSize)
	return record, nil
}

func (a *App) report(ctx context.Context, incident model.UploadIncident, kind, stage string, cause error) {
	incident.EventID = utils.GetToken()
	incident.Kind = kind
	incident.Stage = stage
	incident.ErrorMsg = cause.Error()
	incident.OccurredAt = a.now()
	if a.Incidents == nil {
		log.Printf("incident: %s at %s uid=%d file=%q: %v", kind, stage, incident.UserID, incident.FileName, cause)
		return
	}
	// 上报失败只记日志 不影响本次请求
	a.Incidents.Report(context.WithoutCancel(ctx), incident)
}
