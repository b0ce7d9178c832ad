package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tt := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "shelf.jpg", "shelf.jpg"},
		{"spaces and unicode", "my shelf photo (1).jpg", "my_shelf_photo_1_.jpg"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\me\box.png`, "box.png"},
		{"leading dots stripped", "..hidden.png", "hidden.png"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeFilename(tc.in))
		})
	}
}

func TestPhotoExt(t *testing.T) {
	assert.Equal(t, "jpg", photoExt("shelf.jpg"))
	assert.Equal(t, "jpeg", photoExt("SHELF.JPEG"))
	assert.Equal(t, "heic", photoExt("a.b.heic"))
	assert.Equal(t, "", photoExt("noext"))
	assert.Equal(t, "", photoExt("trailingdot."))
}

func TestAllowedExtensions(t *testing.T) {
	for _, ext := range []string{"jpg", "jpeg", "png", "webp", "heic"} {
		assert.True(t, allowedExtensions[ext], ext)
	}
	assert.False(t, allowedExtensions["gif"])
	assert.False(t, allowedExtensions["svg"])
}

func TestStoredPhotoName(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, "20260314T092653Z_shelf.jpg", storedPhotoName(ts, "shelf.jpg"))

	// non-UTC input is normalized
	jst := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "20260314T092653Z_shelf.jpg", storedPhotoName(ts.In(jst), "shelf.jpg"))
}

func TestStoredPhotoNameOrdering(t *testing.T) {
	earlier := storedPhotoName(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), "a.jpg")
	later := storedPhotoName(time.Date(2026, 1, 2, 11, 0, 0, 0, time.UTC), "a.jpg")
	assert.Less(t, earlier, later)
}

func TestLibraryIDPattern(t *testing.T) {
	max := "a" + strings.Repeat("b", 31)
	valid := []string{"abc", "maple-street-box", "Box_42", max}
	for _, id := range valid {
		assert.True(t, libraryIDPattern.MatchString(id), id)
	}
	invalid := []string{"", "ab", "-leading", "_leading", "has space", "has/slash", max + "x"}
	for _, id := range invalid {
		assert.False(t, libraryIDPattern.MatchString(id), id)
	}
}

func TestEmailPattern(t *testing.T) {
	assert.True(t, emailPattern.MatchString("reader@example.com"))
	assert.True(t, emailPattern.MatchString("a.b+c@mail.example.co.jp"))
	assert.False(t, emailPattern.MatchString("not-an-email"))
	assert.False(t, emailPattern.MatchString("two@@example.com"))
	assert.False(t, emailPattern.MatchString("spaces in@example.com"))
	assert.False(t, emailPattern.MatchString("nodomain@host"))
}

func TestParseExifTime(t *testing.T) {
	got := parseExifTime("2023:07:05 10:11:12")
	require.NotNil(t, got)
	assert.Equal(t, "2023-07-05T10:11:12Z", *got)

	assert.Nil(t, parseExifTime("2023-07-05 10:11:12"))
	assert.Nil(t, parseExifTime(""))
	assert.Nil(t, parseExifTime("garbage"))
}

func TestExtractCaptureDateNonImage(t *testing.T) {
	assert.Nil(t, extractCaptureDate(bytes.NewReader([]byte("not an image"))))
	assert.Nil(t, extractCaptureDate(bytes.NewReader(nil)))
}
