package main

import (
	"io"
	"log"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

var (
	libraryIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{2,31}$`)
	emailPattern     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// allowedExtensions are the photo formats accepted for upload.
var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"heic": true,
}

func executeTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	if err := tpl.ExecuteTemplate(w, templateName, data); err != nil {
		log.Printf("Template execution error for %s: %v", templateName, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// currentEmail returns the signed-in email from the cookie session, if any.
func currentEmail(r *http.Request) (string, bool) {
	session, _ := store.Get(r, sessionName)
	email, ok := session.Values["email"].(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

// requireLogin redirects to /login when no session email is present. Handlers
// must return immediately when ok is false.
func requireLogin(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := currentEmail(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return "", false
	}
	return email, true
}

// sanitizeFilename strips directory components and squashes anything outside
// [A-Za-z0-9._-] so uploaded names are safe to store on disk.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	return name
}

// photoExt returns the lowercase extension without the dot, or "" when the
// name has none.
func photoExt(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// storedPhotoName prefixes the sanitized upload name with a UTC timestamp so
// lexical order matches upload order.
func storedPhotoName(t time.Time, name string) string {
	return t.UTC().Format("20060102T150405Z") + "_" + name
}

// extractCaptureDate reads the EXIF DateTimeOriginal (falling back to
// DateTime) from an image and returns it as RFC 3339 UTC. Any decode or parse
// failure yields nil; a photo without a capture date is not an error.
func extractCaptureDate(r io.Reader) *string {
	x, err := exif.Decode(r)
	if err != nil {
		return nil
	}
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		if ts := parseExifTime(raw); ts != nil {
			return ts
		}
	}
	return nil
}

// parseExifTime parses EXIF's "2006:01:02 15:04:05" layout, treated as UTC.
func parseExifTime(raw string) *string {
	parsed, err := time.Parse("2006:01:02 15:04:05", strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	s := parsed.UTC().Format(time.RFC3339)
	return &s
}
