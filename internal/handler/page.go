package handler

import (
	"CloudHunter/internal/dto"
	"CloudHunter/internal/notify"
	"CloudHunter/internal/service"
	"CloudHunter/internal/view"
	"CloudHunter/model"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionName is the cookie that carries the HTML client's session.
const SessionName = "cloudhunter"

const (
	sessionTokenKey = "token"
	sessionLinkKey  = "link"
)

type loadingTexts struct {
	Default, SignIn, SignUp, Reset, SignOut, Upload, Shorten, Delete, Files string
}

var pageLoading = loadingTexts{
	Default: notify.LoadingDefault,
	SignIn:  notify.LoadingSignIn,
	SignUp:  notify.LoadingSignUp,
	Reset:   notify.LoadingReset,
	SignOut: notify.LoadingSignOut,
	Upload:  notify.LoadingUpload,
	Shorten: notify.LoadingShorten,
	Delete:  notify.LoadingDelete,
	Files:   notify.LoadingFiles,
}

type page struct {
	View      service.View
	Tab       string
	AuthForm  string
	ResetCode string
	Listing   view.Listing
	Profile   *model.User
	Link      string
	Toasts    []notify.Toast

	Loading         loadingTexts
	ConfirmDelete   string
	ConfirmSignOut  string
	MaxUploadSize   int64
	MaxUploadLabel  string
	TooLargeMessage string
}

func (h *Handler) newPage(v service.View) *page {
	return &page{
		View:            v,
		Loading:         pageLoading,
		ConfirmDelete:   notify.MsgConfirmDelete,
		ConfirmSignOut:  notify.MsgConfirmSignOut,
		MaxUploadSize:   h.MaxUploadSize,
		MaxUploadLabel:  service.SizeLimitLabel(h.MaxUploadSize),
		TooLargeMessage: notify.FromError(service.FileTooLarge(h.MaxUploadSize)).Message,
	}
}

func pickTab(tab string) string {
	switch tab {
	case "files", "profile":
		return tab
	}
	return "upload"
}

func pickAuthForm(form string) string {
	switch form {
	case "signup", "reset":
		return form
	}
	return "login"
}

// pageSession resolves the cookie token. A rejected token is dropped from
// the cookie; the caller saves the session.
func (h *Handler) pageSession(c *gin.Context) *service.Session {
	sess := sessions.Default(c)
	token, _ := sess.Get(sessionTokenKey).(string)
	if token == "" {
		return nil
	}
	s, err := h.Gate.Resolve(c.Request.Context(), token)
	if err != nil {
		sess.Delete(sessionTokenKey)
		return nil
	}
	return s
}

// redirect flashes t, saves the cookie session and sends the browser to target.
func redirect(c *gin.Context, target string, t notify.Toast) {
	sess := sessions.Default(c)
	notify.Flash(sess, t)
	if err := sess.Save(); err != nil {
		log.Printf("page: save session: %v", err)
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *Handler) render(c *gin.Context, p *page) {
	sess := sessions.Default(c)
	p.Toasts = append(notify.Drain(sess), p.Toasts...)
	if err := sess.Save(); err != nil {
		log.Printf("page: save session: %v", err)
	}
	c.HTML(http.StatusOK, "index.html", p)
}

// RequirePage guards the HTML routes that need a signed-in session.
func (h *Handler) RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := h.pageSession(c)
		if s == nil {
			redirect(c, "/", notify.FromError(service.ErrSignInRequired))
			c.Abort()
			return
		}
		c.Set("user_id", s.UserID)
		c.Set("session", s)
		c.Next()
	}
}

// Index renders the auth view or the app view for the cookie session.
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	s := h.pageSession(c)
	p := h.newPage(h.Gate.View(s))
	if s == nil {
		p.AuthForm = pickAuthForm(c.Query("form"))
		h.render(c, p)
		return
	}

	p.Tab = pickTab(c.Query("tab"))
	switch p.Tab {
	case "files":
		if c.Query("refresh") != "" {
			p.Toasts = append(p.Toasts, notify.Info(notify.MsgRefreshing))
		}
		files, err := h.App.ListFiles(ctx, s)
		if err != nil {
			p.Toasts = append(p.Toasts, notify.FromError(err))
		}
		p.Listing = view.BuildListing(files)
		sess := sessions.Default(c)
		if link, ok := sess.Get(sessionLinkKey).(string); ok {
			p.Link = link
			sess.Delete(sessionLinkKey)
		}
	case "profile":
		user, err := h.App.Profile(ctx, s)
		if err != nil {
			p.Toasts = append(p.Toasts, notify.FromError(err))
		}
		p.Profile = user
	}
	h.render(c, p)
}

// ResetPage renders the new-password form opened from the reset mail.
func (h *Handler) ResetPage(c *gin.Context) {
	p := h.newPage(h.Gate.View(nil))
	p.AuthForm = "confirm"
	p.ResetCode = c.Query("code")
	h.render(c, p)
}

func (h *Handler) SignInForm(c *gin.Context) {
	var req dto.SignInRequest
	_ = c.ShouldBind(&req)
	s, err := h.App.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		redirect(c, "/?form=login", notify.FromError(err))
		return
	}
	sessions.Default(c).Set(sessionTokenKey, s.Token)
	redirect(c, "/?tab=upload", notify.Success(notify.MsgSignedIn))
}

func (h *Handler) SignUpForm(c *gin.Context) {
	var req dto.SignUpRequest
	_ = c.ShouldBind(&req)
	s, err := h.App.SignUp(c.Request.Context(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.Confirm,
	})
	if err != nil {
		redirect(c, "/?form=signup", notify.FromError(err))
		return
	}
	sessions.Default(c).Set(sessionTokenKey, s.Token)
	redirect(c, "/?tab=upload", notify.Success(notify.MsgSignedUp))
}

func (h *Handler) ResetForm(c *gin.Context) {
	var req dto.PasswordResetRequest
	_ = c.ShouldBind(&req)
	if err := h.App.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		redirect(c, "/?form=reset", notify.FromError(err))
		return
	}
	redirect(c, "/?form=login", notify.Success(notify.MsgResetSent))
}

func (h *Handler) ResetConfirmForm(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	_ = c.ShouldBind(&req)
	if err := h.App.ConfirmPasswordReset(c.Request.Context(), req.Code, req.Password, req.Confirm); err != nil {
		redirect(c, "/reset/confirm?code="+url.QueryEscape(req.Code), notify.FromError(err))
		return
	}
	redirect(c, "/?form=login", notify.Success(notify.MsgPasswordChanged))
}

func (h *Handler) SignOutForm(c *gin.Context) {
	if err := h.App.SignOut(c.Request.Context(), sessionFrom(c)); err != nil {
		redirect(c, "/", notify.FromError(err))
		return
	}
	sessions.Default(c).Delete(sessionTokenKey)
	redirect(c, "/", notify.Success(notify.MsgSignedOut))
}

func (h *Handler) UploadForm(c *gin.Context) {
	in, cleanup, err := h.readUpload(c)
	defer cleanup()
	if err == nil {
		_, err = h.App.Upload(c.Request.Context(), sessionFrom(c), in)
	}
	if err != nil {
		redirect(c, "/?tab=upload", notify.FromError(err))
		return
	}
	redirect(c, "/?tab=files", notify.Success(notify.MsgUploaded))
}

func (h *Handler) DownloadPage(c *gin.Context) {
	id, err := bindFileID(c)
	if err != nil {
		redirect(c, "/?tab=files", notify.Error(service.GenericMessage))
		return
	}
	target, err := h.App.DownloadURL(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		redirect(c, "/?tab=files", notify.FromError(err))
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) ShortenForm(c *gin.Context) {
	id, err := bindFileID(c)
	if err != nil {
		redirect(c, "/?tab=files", notify.Error(service.GenericMessage))
		return
	}
	res, err := h.App.ShortenLink(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		redirect(c, "/?tab=files", notify.FromError(err))
		return
	}
	sessions.Default(c).Set(sessionLinkKey, res.URL)
	redirect(c, "/?tab=files", notify.LinkToast(res))
}

func (h *Handler) DeleteForm(c *gin.Context) {
	id, err := bindFileID(c)
	if err != nil {
		redirect(c, "/?tab=files", notify.Error(service.GenericMessage))
		return
	}
	if err := h.App.DeleteFile(c.Request.Context(), sessionFrom(c), id); err != nil {
		redirect(c, "/?tab=files", notify.FromError(err))
		return
	}
	redirect(c, "/?tab=files", notify.Success(notify.MsgDeleted))
}
