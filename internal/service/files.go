package service

import (
	"CloudHunter/internal/store"
	"CloudHunter/model"
	"context"
	"errors"
	"log"
	"strconv"
)

// LinkResult is the outcome of a copy-link request.
type LinkResult struct {
	URL string `json:"url"`
	// Reused is set when the stored short link was returned.
	Reused bool `json:"reused"`
	// Fallback is set when shortening failed and URL is the original download URL.
	Fallback bool `json:"fallback"`
}

// ListFiles returns the session owner's files, newest first.
func (a *App) ListFiles(ctx context.Context, s *Session) ([]model.FileRecord, error) {
	if s == nil {
		return nil, ErrSignInRequired
	}
	files, err := a.Store.ListFiles(ctx, s.UserID)
	if err != nil {
		log.Printf("files: list uid=%d: %v", s.UserID, err)
		return nil, externalError(CodeListFailed, "Something went wrong while loading files", err)
	}
	return files, nil
}

// ownedFile loads a record; records of other owners read as missing.
func (a *App) ownedFile(ctx context.Context, s *Session, fileID uint64) (*model.FileRecord, error) {
	if s == nil {
		return nil, ErrSignInRequired
	}
	rec, err := a.Store.GetFile(ctx, fileID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errFileNotFound
	}
	if err != nil {
		return nil, externalError(CodeListFailed, "Something went wrong while loading the file", err)
	}
	if rec.UserID != s.UserID {
		return nil, errFileNotFound
	}
	return rec, nil
}

// DownloadURL returns the stored download URL of a record.
func (a *App) DownloadURL(ctx context.Context, s *Session, fileID uint64) (string, error) {
	rec, err := a.ownedFile(ctx, s, fileID)
	if err != nil {
		return "", err
	}
	return rec.FileURL, nil
}

// ShortenLink returns the record's short link, creating it at most once.
// Failures fall back to the original URL.
func (a *App) ShortenLink(ctx context.Context, s *Session, fileID uint64) (*LinkResult, error) {
	rec, err := a.ownedFile(ctx, s, fileID)
	if err != nil {
		return nil, err
	}
	if rec.ShortURL != "" {
		return &LinkResult{URL: rec.ShortURL, Reused: true}, nil
	}
	fallback := &LinkResult{URL: rec.FileURL, Fallback: true}

	if a.Locker != nil {
		unlock, err := a.Locker.Lock(ctx, "shorten:"+strconv.FormatUint(fileID, 10))
		if err != nil {
			log.Printf("shorten: lock file=%d: %v", fileID, err)
			return fallback, nil
		}
		defer unlock()

		// another request may have finished while we waited
		rec, err = a.ownedFile(ctx, s, fileID)
		if err != nil {
			return nil, err
		}
		if rec.ShortURL != "" {
			return &LinkResult{URL: rec.ShortURL, Reused: true}, nil
		}
	}

	if a.Shortener == nil {
		return fallback, nil
	}
	short, err := a.Shortener.Shorten(ctx, rec.FileURL)
	if err != nil {
		log.Printf("shorten: file=%d: %v", fileID, err)
		return fallback, nil
	}
	if err := a.Store.SetShortURL(ctx, s.UserID, fileID, short); err != nil {
		log.Printf("shorten: persist file=%d: %v", fileID, err)
		return fallback, nil
	}
	return &LinkResult{URL: short}, nil
}

// DeleteFile removes the record, then decrements the owner's counter.
func (a *App) DeleteFile(ctx context.Context, s *Session, fileID uint64) error {
	rec, err := a.ownedFile(ctx, s, fileID)
	if err != nil {
		return err
	}
	if err := a.Store.DeleteFile(ctx, s.UserID, fileID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errFileNotFound
		}
		log.Printf("files: delete file=%d: %v", fileID, err)
		return externalError(CodeDeleteFailed, "Something went wrong while deleting the file", err)
	}
	if err := a.Store.IncrementFilesCount(ctx, s.UserID, -1); err != nil {
		log.Printf("files: decrement files count uid=%d: %v", s.UserID, err)
		a.report(ctx, model.UploadIncident{
			UserID:         s.UserID,
			FileRecordID:   rec.ID,
			FileName:       rec.FileName,
			FileSize:       rec.FileSize,
			Backend:        rec.Backend,
			ExternalFileID: rec.FileID,
			FileURL:        rec.FileURL,
		}, model.IncidentCountDrift, "delete_count", err)
		return externalError(CodeDeleteFailed, "Something went wrong while deleting the file", err)
	}
	return nil
}

// Profile returns the session owner's users document.
func (a *App) Profile(ctx context.Context, s *Session) (*model.User, error) {
	if s == nil {
		return nil, ErrSignInRequired
	}
	user, err := a.Store.GetUser(ctx, s.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &Error{Kind: KindNotFound, Code: "profile_not_found", Message: "Profile not found"}
	}
	if err != nil {
		return nil, externalError(CodeListFailed, "Something went wrong while loading the profile", err)
	}
	return user, nil
}
