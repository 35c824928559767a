package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yokitheyo/tubeaudio/internal/model"
	"github.com/yokitheyo/tubeaudio/internal/taskmgr"
)

//go:embed web/index.html
var webFS embed.FS

type Downloader interface {
	Download(ctx context.Context, url string, onProgress model.ProgressFunc) (*model.DownloadResult, error)
}

type APIHandler struct {
	DL      Downloader
	TM      *taskmgr.TaskManager
	Limiter *rate.Limiter // nil disables request rate limiting
	Ext     string
}

func RegisterHandlers(r *gin.Engine, h *APIHandler) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(webFS, "web/index.html")))

	r.GET("/", h.index)
	r.POST("/download", h.rateLimit(), h.download)
	r.GET("/healthz", h.health)
}

func (h *APIHandler) index(c *gin.Context) {
	ext := h.Ext
	if ext == "" {
		ext = "mp3"
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":       "YouTube Audio Downloader",
		"Placeholder": "https://www.youtube.com/watch?v=... or https://youtu.be/...",
		"Ext":         strings.ToUpper(ext),
	})
}

func (h *APIHandler) download(c *gin.Context) {
	var req model.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(c, model.ErrURLRequired)
		return
	}

	res, err := h.DL.Download(c.Request.Context(), req.URL, nil)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *APIHandler) health(c *gin.Context) {
	active := 0
	if h.TM != nil {
		active = h.TM.Active()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_downloads": active})
}

func (h *APIHandler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Limiter != nil && !h.Limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrURLRequired):
		status = http.StatusBadRequest
	case errors.Is(err, taskmgr.ErrTooManyDownloads):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
