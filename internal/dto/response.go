package dto

import (
	"CloudHunter/internal/view"
	"CloudHunter/model"
)

// AuthResponse is returned by sign up and sign in.
type AuthResponse struct {
	Token       string `json:"token"`
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// UploadResponse carries the stored record and its rendered card.
type UploadResponse struct {
	File *model.FileRecord `json:"file"`
	Card view.Card         `json:"card"`
}

type ProfileResponse struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	FilesCount int64  `json:"files_count"`
}
