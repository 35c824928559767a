package service

import (
	"io"
	"log"
	"time"

	"github.com/yokitheyo/tubeaudio/internal/model"
)

// progressReader reports a cumulative ProgressSample after every read that
// returned data.
type progressReader struct {
	r       io.Reader
	total   int64
	read    int64
	observe func(model.ProgressSample)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.observe != nil {
			p.observe(model.ProgressSample{BytesDownloaded: p.read, TotalBytes: p.total})
		}
	}
	return n, err
}

// newProgressLogger returns an observer that logs the percentage at most once
// per interval. Streams of unknown size are not logged.
func newProgressLogger(logger *log.Logger, tag string, interval time.Duration) func(model.ProgressSample) {
	var last time.Time
	return func(s model.ProgressSample) {
		pct := s.Percent()
		if pct < 0 {
			return
		}
		now := time.Now()
		if s.BytesDownloaded < s.TotalBytes && now.Sub(last) < interval {
			return
		}
		last = now
		logger.Printf("[%s] downloaded: %.2f%% (%.2f MB)", tag, pct, float64(s.BytesDownloaded)/1024/1024)
	}
}
