package handler

import (
	"CloudHunter/internal/dto"
	"CloudHunter/internal/notify"
	"CloudHunter/internal/service"
	"CloudHunter/utils"

	"github.com/gin-gonic/gin"
)

func authResponse(s *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Token:       s.Token,
		UserID:      s.UserID,
		Email:       s.Email,
		DisplayName: service.DisplayName(s.DisplayName, s.Email),
	}
}

// SignUp creates an account and returns its token.
func (h *Handler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.App.SignUp(c.Request.Context(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.Confirm,
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, authResponse(s), notify.Success(notify.MsgSignedUp))
}

func (h *Handler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.App.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, authResponse(s), notify.Success(notify.MsgSignedIn))
}

func (h *Handler) SignOut(c *gin.Context) {
	if err := h.App.SignOut(c.Request.Context(), sessionFrom(c)); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, nil, notify.Success(notify.MsgSignedOut))
}

func (h *Handler) SendPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.App.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, nil, notify.Success(notify.MsgResetSent))
}

func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.App.ConfirmPasswordReset(c.Request.Context(), req.Code, req.Password, req.Confirm); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, nil, notify.Success(notify.MsgPasswordChanged))
}

// SessionView reports which view the bearer of the request should see.
// A missing or rejected token is the auth view, not an error.
func (h *Handler) SessionView(c *gin.Context) {
	var s *service.Session
	if token, ok := utils.BearerToken(c.GetHeader("Authorization")); ok {
		if resolved, err := h.Gate.Resolve(c.Request.Context(), token); err == nil {
			s = resolved
		}
	}
	utils.Success(c, h.Gate.View(s), nil)
}
