package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yokitheyo/tubeaudio/internal/fetcher"
	"github.com/yokitheyo/tubeaudio/internal/model"
	"github.com/yokitheyo/tubeaudio/internal/taskmgr"
	"github.com/yokitheyo/tubeaudio/internal/videoid"
)

const (
	copyBufferSize = 32 * 1024
	partSuffix     = ".part"
)

type Options struct {
	OutputDir           string
	AudioExt            string
	Timeout             time.Duration // 0 means bound only by the caller's context
	MaxBytesPerSec      int64         // 0 means unlimited
	ProgressLogInterval time.Duration
}

type Downloader struct {
	fetcher fetcher.Fetcher
	tasks   *taskmgr.TaskManager
	opts    Options
	logger  *log.Logger
}

func NewDownloader(f fetcher.Fetcher, tasks *taskmgr.TaskManager, opts Options, logger *log.Logger) *Downloader {
	if opts.AudioExt == "" {
		opts.AudioExt = "mp3"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Downloader{fetcher: f, tasks: tasks, opts: opts, logger: logger}
}

// Download resolves rawURL, streams its audio into "<videoId>.<ext>" and
// reports the written size. The file appears under its final name only after
// the stream completed; on failure the partial file is removed.
func (d *Downloader) Download(ctx context.Context, rawURL string, onProgress model.ProgressFunc) (*model.DownloadResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, model.ErrURLRequired
	}

	ident := videoid.Identify(rawURL)
	fileName := videoid.FileName(ident.VideoID, d.opts.AudioExt)
	tag := uuid.NewString()[:8]

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	release, err := d.tasks.Acquire(ctx, fileName)
	if err != nil {
		return nil, err
	}
	defer release()

	d.logger.Printf("[%s] starting download for %s", tag, ident.VideoID)

	n, err := d.fetchToFile(ctx, ident.CanonicalURL, fileName, tag, onProgress)
	if err != nil {
		d.logger.Printf("[%s] download error: %v", tag, err)
		return nil, err
	}

	res := &model.DownloadResult{FileName: fileName, FileSize: FormatSize(n)}
	d.logger.Printf("[%s] download completed: %s (%s)", tag, res.FileName, res.FileSize)
	return res, nil
}

func (d *Downloader) fetchToFile(ctx context.Context, canonicalURL, fileName, tag string, onProgress model.ProgressFunc) (int64, error) {
	stream, err := d.fetcher.Fetch(ctx, canonicalURL)
	if err != nil {
		return 0, err
	}
	defer stream.Body.Close()

	// Unblocks a Read that is waiting on a stalled connection.
	stop := context.AfterFunc(ctx, func() { stream.Body.Close() })
	defer stop()

	finalPath := filepath.Join(d.opts.OutputDir, fileName)
	partPath := filepath.Join(d.opts.OutputDir, strings.TrimSuffix(fileName, filepath.Ext(fileName))+"."+uuid.NewString()+partSuffix)

	f, err := os.Create(partPath)
	if err != nil {
		return 0, &model.IOError{Op: "create", Path: partPath, Err: err}
	}

	n, err := d.copyStream(ctx, f, partPath, stream, tag, onProgress)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = &model.IOError{Op: "close", Path: partPath, Err: cerr}
	}
	if err == nil {
		if rerr := os.Rename(partPath, finalPath); rerr != nil {
			err = &model.IOError{Op: "rename", Path: finalPath, Err: rerr}
		}
	}
	if err != nil {
		if rmErr := os.Remove(partPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.logger.Printf("[%s] failed to remove %s: %v", tag, partPath, rmErr)
		}
		return n, err
	}
	return n, nil
}

func (d *Downloader) copyStream(ctx context.Context, dst io.Writer, dstPath string, stream *fetcher.Stream, tag string, onProgress model.ProgressFunc) (int64, error) {
	logProgress := newProgressLogger(d.logger, tag, d.opts.ProgressLogInterval)

	var src io.Reader = &progressReader{
		r:     stream.Body,
		total: stream.Total,
		observe: func(s model.ProgressSample) {
			logProgress(s)
			if onProgress != nil {
				onProgress(s)
			}
		},
	}
	if d.opts.MaxBytesPerSec > 0 {
		src = newThrottledReader(ctx, src, d.opts.MaxBytesPerSec)
	}

	w := &trackingWriter{w: dst}
	n, err := io.CopyBuffer(w, src, make([]byte, copyBufferSize))
	switch {
	case ctx.Err() != nil:
		return n, ctx.Err()
	case err == nil:
		return n, nil
	case w.err != nil:
		return n, &model.IOError{Op: "write", Path: dstPath, Err: w.err}
	default:
		return n, &model.ExtractionError{Op: "read stream", Err: err}
	}
}

// FormatSize renders n bytes as mebibytes with two decimals, e.g. "3.42 MB".
// Ties round up.
func FormatSize(n int64) string {
	c := (n*100 + 1<<19) >> 20
	return fmt.Sprintf("%d.%02d MB", c/100, c%100)
}

type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
