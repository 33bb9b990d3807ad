package model

import "time"

type FileRecord struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	UserID uint64 `gorm:"column:user_id;not null;index:idx_files_user_uploaded,priority:1" json:"user_id"`

	FileName string `gorm:"column:file_name;size:255;not null" json:"file_name"`
	FileSize int64  `gorm:"column:file_size;not null" json:"file_size"`
	FileType string `gorm:"column:file_type;size:255;not null;default:''" json:"file_type"`

	Backend  string `gorm:"column:backend;size:32;not null" json:"backend"`
	FileID   string `gorm:"column:file_id;size:255;not null" json:"file_id"`
	FilePath string `gorm:"column:file_path;size:512;not null;default:''" json:"file_path"`
	FileURL  string `gorm:"column:file_url;type:text;not null" json:"file_url"`
	ShortURL string `gorm:"column:short_url;size:255;not null;default:''" json:"short_url,omitempty"`

	UploadedAt time.Time `gorm:"column:uploaded_at;autoCreateTime;index:idx_files_user_uploaded,priority:2" json:"uploaded_at"`
}

// TableName returns the database table name.
func (FileRecord) TableName() string {
	return "files"
}

/*
ShortURL 使用空字符串表示尚未生成 而不是指针
记录只会被追加短链 其余字段在创建后不再修改
*/
