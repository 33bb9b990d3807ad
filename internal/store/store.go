package store

import (
	"CloudHunter/model"
	"context"
	"errors"
)

// ErrNotFound is returned when a user or file document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the document store holding the users and files collections.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, userID uint64) (*model.User, error)
	// IncrementFilesCount applies delta atomically on the store side.
	IncrementFilesCount(ctx context.Context, userID uint64, delta int64) error

	CreateFile(ctx context.Context, file *model.FileRecord) error
	GetFile(ctx context.Context, fileID uint64) (*model.FileRecord, error)
	// ListFiles returns the user's files, newest upload first.
	ListFiles(ctx context.Context, userID uint64) ([]model.FileRecord, error)
	SetShortURL(ctx context.Context, userID, fileID uint64, shortURL string) error
	DeleteFile(ctx context.Context, userID, fileID uint64) error
}
