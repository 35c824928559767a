// Package fetcher opens audio streams from the video platform.
//
// The YouTube type delegates all protocol work (player responses, signature
// deciphering, format negotiation) to github.com/kkdai/youtube/v2 and only
// adds format selection, request headers and timeouts on top.
package fetcher

import (
	"context"
	"io"
)

type Stream struct {
	Body     io.ReadCloser
	Total    int64 // 0 if unknown
	MimeType string
}

type Fetcher interface {
	Fetch(ctx context.Context, canonicalURL string) (*Stream, error)
}
