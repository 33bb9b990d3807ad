package handler

import (
	"CloudHunter/internal/dto"
	"CloudHunter/internal/notify"
	"CloudHunter/internal/view"
	"CloudHunter/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadFile accepts one multipart "file" part and delivers it.
func (h *Handler) UploadFile(c *gin.Context) {
	in, cleanup, err := h.readUpload(c)
	defer cleanup()
	if err != nil {
		fail(c, err)
		return
	}
	rec, err := h.App.Upload(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, dto.UploadResponse{File: rec, Card: view.NewCard(*rec)}, notify.Success(notify.MsgUploaded))
}

// ListFiles returns the caller's files as rendered cards.
func (h *Handler) ListFiles(c *gin.Context) {
	files, err := h.App.ListFiles(c.Request.Context(), sessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, view.BuildListing(files), nil)
}

func (h *Handler) RefreshFiles(c *gin.Context) {
	files, err := h.App.ListFiles(c.Request.Context(), sessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, view.BuildListing(files), notify.Info(notify.MsgRefreshing))
}

// DownloadFile redirects to the stored download URL.
func (h *Handler) DownloadFile(c *gin.Context) {
	id, err := bindFileID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	url, err := h.App.DownloadURL(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *Handler) ShortenLink(c *gin.Context) {
	id, err := bindFileID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.App.ShortenLink(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, res, notify.LinkToast(res))
}

func (h *Handler) DeleteFile(c *gin.Context) {
	id, err := bindFileID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.App.DeleteFile(c.Request.Context(), sessionFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"id": id}, notify.Success(notify.MsgDeleted))
}

func (h *Handler) Profile(c *gin.Context) {
	user, err := h.App.Profile(c.Request.Context(), sessionFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, dto.ProfileResponse{Name: user.Name, Email: user.Email, FilesCount: user.FilesCount}, nil)
}
