package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/yokitheyo/tubeaudio/internal/model"
)

var ErrNoAudioFormat = errors.New("no audio format available")

type Options struct {
	Timeout time.Duration
	Headers map[string]string
}

type YouTube struct {
	client *youtube.Client
}

func NewYouTube(opts Options) *YouTube {
	return &YouTube{
		client: &youtube.Client{
			HTTPClient: newHTTPClient(opts.Timeout, opts.Headers),
		},
	}
}

func (y *YouTube) Fetch(ctx context.Context, canonicalURL string) (*Stream, error) {
	video, err := y.client.GetVideoContext(ctx, canonicalURL)
	if err != nil {
		return nil, wrapFetchError("get video", err)
	}

	format, err := pickAudioFormat(video.Formats)
	if err != nil {
		return nil, &model.ExtractionError{Op: "select format", Err: err}
	}

	body, size, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, wrapFetchError("open stream", err)
	}
	if size <= 0 {
		size = int64(format.ContentLength)
	}
	if size < 0 {
		size = 0
	}

	return &Stream{Body: body, Total: size, MimeType: format.MimeType}, nil
}

// pickAudioFormat prefers audio-only formats and, within those, the highest bitrate.
// Muxed formats that carry audio are a fallback.
func pickAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var best, fallback *youtube.Format
	for i := range formats {
		f := &formats[i]
		switch {
		case strings.HasPrefix(f.MimeType, "audio/"):
			if best == nil || audioRank(f) > audioRank(best) {
				best = f
			}
		case f.AudioChannels > 0:
			if fallback == nil || audioRank(f) > audioRank(fallback) {
				fallback = f
			}
		}
	}

	if best != nil {
		return best, nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoAudioFormat
}

func audioRank(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

func wrapFetchError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		err = fmt.Errorf("restricted content: %w", err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		err = fmt.Errorf("invalid video URL: %w", err)
	}

	var status *youtube.ErrPlayabiltyStatus
	if errors.As(err, &status) {
		err = fmt.Errorf("video unavailable: %w", err)
	}

	return &model.ExtractionError{Op: op, Err: err}
}
