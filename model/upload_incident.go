package model

import "time"

const (
	IncidentOrphan     = "orphan"      // delivered, no file record
	IncidentCountDrift = "count_drift" // record changed, counter not
)

type UploadIncident struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	EventID string `gorm:"column:event_id;size:36;uniqueIndex;not null" json:"event_id"`
	Kind    string `gorm:"column:kind;type:varchar(32);index;not null" json:"kind"`
	Stage   string `gorm:"column:stage;type:varchar(32);not null" json:"stage"`

	UserID         uint64 `gorm:"column:user_id;index;not null" json:"user_id"`
	FileRecordID   uint64 `gorm:"column:file_record_id;not null;default:0" json:"file_record_id,omitempty"`
	FileName       string `gorm:"column:file_name;type:varchar(255);not null;default:''" json:"file_name"`
	FileSize       int64  `gorm:"column:file_size;not null;default:0" json:"file_size"`
	Backend        string `gorm:"column:backend;type:varchar(32);not null;default:''" json:"backend"`
	ExternalFileID string `gorm:"column:external_file_id;type:varchar(255);not null;default:''" json:"external_file_id"`
	FileURL        string `gorm:"column:file_url;type:text" json:"file_url"`
	ErrorMsg       string `gorm:"column:error_msg;type:text" json:"error_msg"`
	Attempt        int    `gorm:"column:attempt;default:0" json:"attempt"`

	OccurredAt time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (UploadIncident) TableName() string {
	return "upload_incident"
}
