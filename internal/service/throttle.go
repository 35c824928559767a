package service

import (
	"context"
	"io"
	"time"

	"github.com/juju/ratelimit"
)

// throttledReader caps the read rate with a token bucket. Reads are never
// larger than the bucket so a single wait stays within about a second, and
// the wait ends early when ctx is done.
type throttledReader struct {
	ctx    context.Context
	r      io.Reader
	bucket *ratelimit.Bucket
	max    int
}

func newThrottledReader(ctx context.Context, r io.Reader, bytesPerSec int64) *throttledReader {
	chunk := bytesPerSec
	if chunk > copyBufferSize {
		chunk = copyBufferSize
	}
	return &throttledReader{
		ctx:    ctx,
		r:      r,
		bucket: ratelimit.NewBucketWithRate(float64(bytesPerSec), bytesPerSec),
		max:    int(chunk),
	}
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if err := t.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) > t.max {
		p = p[:t.max]
	}

	n, err := t.r.Read(p)
	if n > 0 {
		if wait := t.bucket.Take(int64(n)); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-t.ctx.Done():
				return n, t.ctx.Err()
			case <-timer.C:
			}
		}
	}
	return n, err
}
