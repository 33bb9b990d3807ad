package dto

// Request payloads accept both JSON bodies and HTML form posts.
// Field rules live in the flows so every message matches the client copy.

type SignUpRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

type SignInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type PasswordResetRequest struct {
	Email string `json:"email" form:"email"`
}

type PasswordResetConfirmRequest struct {
	Code     string `json:"code" form:"code"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

// FileURI binds the :id path segment.
type FileURI struct {
	ID uint64 `uri:"id" binding:"required"`
}
