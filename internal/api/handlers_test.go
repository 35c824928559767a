package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/yokitheyo/tubeaudio/internal/model"
	"github.com/yokitheyo/tubeaudio/internal/taskmgr"
)

type stubDownloader struct {
	res  *model.DownloadResult
	err  error
	urls []string
}

func (s *stubDownloader) Download(_ context.Context, url string, _ model.ProgressFunc) (*model.DownloadResult, error) {
	s.urls = append(s.urls, url)
	return s.res, s.err
}

func newRouter(h *APIHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHandlers(r, h)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestIndexPage(t *testing.T) {
	r := newRouter(&APIHandler{DL: &stubDownloader{}})

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `<input type="text" id="url"`)
	assert.Contains(t, w.Body.String(), "fetch('/download'")
	assert.Contains(t, w.Body.String(), "Download MP3")
}

func TestDownloadMissingURL(t *testing.T) {
	dl := &stubDownloader{}
	r := newRouter(&APIHandler{DL: dl})

	for _, body := range []string{`{}`, `{"url":""}`, `{"url":"   "}`, ``} {
		w := do(r, http.MethodPost, "/download", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, map[string]any{"error": "URL is required"}, decode(t, w), body)
	}
	assert.Empty(t, dl.urls)
}

func TestDownloadInvalidBody(t *testing.T) {
	r := newRouter(&APIHandler{DL: &stubDownloader{}})

	w := do(r, http.MethodPost, "/download", `{"url":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decode(t, w)["error"])
}

func TestDownloadSuccess(t *testing.T) {
	dl := &stubDownloader{res: &model.DownloadResult{FileName: "abc.mp3", FileSize: "3.42 MB"}}
	r := newRouter(&APIHandler{DL: dl})

	w := do(r, http.MethodPost, "/download", `{"url":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"fileName": "abc.mp3", "fileSize": "3.42 MB"}, decode(t, w))
	assert.Equal(t, []string{"https://youtu.be/abc"}, dl.urls)
}

func TestDownloadExtractionFailure(t *testing.T) {
	dl := &stubDownloader{err: &model.ExtractionError{Op: "get video", Err: errors.New("video unavailable")}}
	r := newRouter(&APIHandler{DL: dl})

	w := do(r, http.MethodPost, "/download", `{"url":"https://youtu.be/gone"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "get video: video unavailable", decode(t, w)["error"])
}

func TestDownloadIOFailure(t *testing.T) {
	dl := &stubDownloader{err: &model.IOError{Op: "write", Path: "x.part", Err: errors.New("no space left on device")}}
	r := newRouter(&APIHandler{DL: dl})

	w := do(r, http.MethodPost, "/download", `{"url":"https://youtu.be/x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "no space left on device")
}

func TestDownloadTooMany(t *testing.T) {
	r := newRouter(&APIHandler{DL: &stubDownloader{err: taskmgr.ErrTooManyDownloads}})

	w := do(r, http.MethodPost, "/download", `{"url":"https://youtu.be/x"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "too many active downloads", decode(t, w)["error"])
}

func TestDownloadRateLimited(t *testing.T) {
	dl := &stubDownloader{res: &model.DownloadResult{FileName: "a.mp3", FileSize: "0.00 MB"}}
	r := newRouter(&APIHandler{DL: dl, Limiter: rate.NewLimiter(rate.Limit(0.001), 1)})

	w := do(r, http.MethodPost, "/download", `{"url":"https://youtu.be/a"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/download", `{"url":"https://youtu.be/a"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "too many requests", decode(t, w)["error"])
	assert.Len(t, dl.urls, 1)
}

func TestHealth(t *testing.T) {
	tm := taskmgr.NewTaskManager(0)
	release, err := tm.Acquire(context.Background(), "busy")
	require.NoError(t, err)
	defer release()

	r := newRouter(&APIHandler{DL: &stubDownloader{}, TM: tm})
	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "ok", "active_downloads": float64(1)}, decode(t, w))
}
