// Package videoid turns user supplied video URLs into a stable video
// identifier and the canonical watch URL used for extraction.
package videoid

import (
	"net/url"
	"strings"
)

const (
	// UnknownVideo is used when no identifier can be found in the URL.
	UnknownVideo = "unknown_video"

	shortMarker = "youtu.be/"
	watchMarker = "youtube.com/watch"
	watchPrefix = "https://www.youtube.com/watch?v="

	maxNameLen = 64
)

type Identity struct {
	VideoID      string
	CanonicalURL string
}

// Identify extracts the video id from raw. Short links are rewritten to the
// long watch form; every other input is passed through unchanged.
// The id is not validated.
func Identify(raw string) Identity {
	if i := strings.Index(raw, shortMarker); i >= 0 {
		id := raw[i+len(shortMarker):]
		if j := strings.IndexByte(id, '?'); j >= 0 {
			id = id[:j]
		}
		return Identity{VideoID: id, CanonicalURL: watchPrefix + id}
	}

	if strings.Contains(raw, watchMarker) {
		if u, err := url.Parse(raw); err == nil {
			if id := u.Query().Get("v"); id != "" {
				return Identity{VideoID: id, CanonicalURL: raw}
			}
		}
	}

	return Identity{VideoID: UnknownVideo, CanonicalURL: raw}
}

// FileName builds "<id>.<ext>" with id reduced to characters that are safe
// as a single path segment.
func FileName(id, ext string) string {
	return SafeID(id) + "." + ext
}

// SafeID replaces everything outside [A-Za-z0-9_-] with '_' and caps the length.
func SafeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	if strings.Trim(out, "_") == "" {
		return UnknownVideo
	}
	return out
}
