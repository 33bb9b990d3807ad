package model

import "time"

// Account is the identity-provider side of a user: credentials and profile.
type Account struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	Email        string `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	DisplayName  string `gorm:"column:display_name;type:varchar(120);not null;default:''" json:"display_name"`
	Disabled     bool   `gorm:"column:disabled;not null;default:false" json:"disabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Account) TableName() string {
	return "account"
}

// User is the document-store profile of an account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement:false" json:"id"`

	Name  string `gorm:"column:name;type:varchar(120);not null;default:''" json:"name"`
	Email string `gorm:"column:email;type:varchar(255);not null" json:"email"`

	// FilesCount is denormalized and only moved by atomic increments.
	FilesCount int64 `gorm:"column:files_count;not null;default:0" json:"files_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}
