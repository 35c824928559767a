package videoid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifyShortLink(t *testing.T) {
	tests := []struct {
		in string
		id string
	}{
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc123", "dQw4w9WgXcQ"},
		{"http://youtu.be/abc_DEF-12?t=42&si=x", "abc_DEF-12"},
		{"youtu.be/xyz", "xyz"},
	}

	for _, tt := range tests {
		got := Identify(tt.in)
		assert.Equal(t, tt.id, got.VideoID, tt.in)
		assert.Equal(t, "https://www.youtube.com/watch?v="+tt.id, got.CanonicalURL, tt.in)
	}
}

func TestIdentifyWatchURL(t *testing.T) {
	tests := []struct {
		in string
		id string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?feature=share&v=abc123", "abc123"},
		{"https://m.youtube.com/watch?v=Zz9&list=PL1", "Zz9"},
	}

	for _, tt := range tests {
		got := Identify(tt.in)
		assert.Equal(t, tt.id, got.VideoID, tt.in)
		assert.Equal(t, tt.in, got.CanonicalURL, tt.in)
	}
}

func TestIdentifyUnknown(t *testing.T) {
	for _, in := range []string{
		"https://vimeo.com/12345",
		"https://www.youtube.com/watch?list=PL1",
		"not a url",
		"",
	} {
		got := Identify(in)
		assert.Equal(t, UnknownVideo, got.VideoID, in)
		assert.Equal(t, in, got.CanonicalURL, in)
	}
}

func TestIdentifyKeepsMalformedID(t *testing.T) {
	got := Identify("https://youtu.be/../../etc/passwd")
	assert.Equal(t, "../../etc/passwd", got.VideoID)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "dQw4w9WgXcQ.mp3", FileName("dQw4w9WgXcQ", "mp3"))
	assert.Equal(t, "______etc_passwd.mp3", FileName("../../etc/passwd", "mp3"))
	assert.Equal(t, "unknown_video.mp3", FileName("", "mp3"))
	assert.Equal(t, "unknown_video.mp3", FileName("..", "mp3"))
	assert.Equal(t, "a_b.m4a", FileName("a b", "m4a"))

	long := strings.Repeat("x", 200)
	assert.Len(t, SafeID(long), maxNameLen)
}
