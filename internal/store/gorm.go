package store

import (
	"CloudHunter/model"
	"CloudHunter/utils"
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// GormStore implements Store on gorm, with an optional per-user list cache.
type GormStore struct {
	db       *gorm.DB
	cache    utils.Cache
	cacheTTL time.Duration
	maxList  int
}

// NewGormStore builds a store. cache may be nil. maxList caps ListFiles
// when positive; zero lists every record.
func NewGormStore(db *gorm.DB, cache utils.Cache, cacheTTL time.Duration, maxList int) *GormStore {
	return &GormStore{db: db, cache: cache, cacheTTL: cacheTTL, maxList: maxList}
}

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormStore) GetUser(ctx context.Context, userID uint64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) IncrementFilesCount(ctx context.Context, userID uint64, delta int64) error {
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("files_count", gorm.Expr("files_count + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateFile(ctx context.Context, file *model.FileRecord) error {
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		return err
	}
	s.invalidate(ctx, file.UserID)
	return nil
}

func (s *GormStore) GetFile(ctx context.Context, fileID uint64) (*model.FileRecord, error) {
	var file model.FileRecord
	err := s.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (s *GormStore) ListFiles(ctx context.Context, userID uint64) ([]model.FileRecord, error) {
	// The generation is read before the query so a write that lands in
	// between moves readers off whatever this call fills.
	version := utils.GetUserFileListVersion(ctx, s.cache, userID)
	if cached, ok := utils.GetUserFileListFromCache(ctx, s.cache, userID, version); ok {
		return cached.Files, nil
	}

	var files []model.FileRecord
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Order("id DESC")
	if s.maxList > 0 {
		query = query.Limit(s.maxList)
	}
	if err := query.Find(&files).Error; err != nil {
		return nil, err
	}

	if err := utils.SetUserFileListToCache(ctx, s.cache, userID, version, &utils.FileListCache{Files: files}, s.cacheTTL); err != nil {
		log.Printf("store: cache file list for user %d: %v", userID, err)
	}
	return files, nil
}

func (s *GormStore) SetShortURL(ctx context.Context, userID, fileID uint64, shortURL string) error {
	res := s.db.WithContext(ctx).
		Model(&model.FileRecord{}).
		Where("id = ? AND user_id = ?", fileID, userID).
		Update("short_url", shortURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *GormStore) DeleteFile(ctx context.Context, userID, fileID uint64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", fileID, userID).
		Delete(&model.FileRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *GormStore) invalidate(ctx context.Context, userID uint64) {
	if err := utils.InvalidateUserFileListCache(ctx, s.cache, userID); err != nil {
		log.Printf("store: invalidate file list for user %d: %v", userID, err)
	}
}
