package router

import (
	"CloudHunter/internal/handler"
	"CloudHunter/internal/view"
	"CloudHunter/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// Options carries the router settings that come from configuration.
type Options struct {
	SessionSecret string
	CORSOrigins   []string
	// SecureCookie marks the session cookie HTTPS-only.
	SecureCookie bool
}

// InitRouter builds the JSON API and HTML page routes.
func InitRouter(h *handler.Handler, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(utils.CORSMiddleware(opts.CORSOrigins))

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
	})
	r.Use(sessions.Sessions(handler.SessionName, store))

	r.SetHTMLTemplate(view.Templates())
	r.Use(static.Serve("/assets", view.Assets()))

	api := r.Group("/api")
	{
		authAPI := api.Group("/auth")
		{
			authAPI.POST("/signup", h.SignUp)
			authAPI.POST("/signin", h.SignIn)
			authAPI.POST("/reset", h.SendPasswordReset)
			authAPI.POST("/reset/confirm", h.ConfirmPasswordReset)
		}
		api.GET("/session", h.SessionView)

		auth := api.Group("")
		auth.Use(utils.AuthMiddleware(h.Resolve))
		auth.POST("/auth/signout", h.SignOut)
		auth.GET("/profile", h.Profile)

		file := auth.Group("/files")
		{
			file.GET("", h.ListFiles)
			file.POST("/refresh", h.RefreshFiles)
			file.POST("/upload", h.UploadFile)
			file.GET("/:id/download", h.DownloadFile)
			file.POST("/:id/shorten", h.ShortenLink)
			file.DELETE("/:id", h.DeleteFile)
		}
	}

	r.GET("/", h.Index)
	r.GET("/reset/confirm", h.ResetPage)
	r.POST("/login", h.SignInForm)
	r.POST("/signup", h.SignUpForm)
	r.POST("/reset", h.ResetForm)
	r.POST("/reset/confirm", h.ResetConfirmForm)

	page := r.Group("")
	page.Use(h.RequirePage())
	{
		page.POST("/logout", h.SignOutForm)
		page.POST("/upload", h.UploadForm)
		page.GET("/files/:id/download", h.DownloadPage)
		page.POST("/files/:id/shorten", h.ShortenForm)
		page.POST("/files/:id/delete", h.DeleteForm)
	}
	return r
}
