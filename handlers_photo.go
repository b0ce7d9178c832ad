package main

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// handleUploadPhoto stores an uploaded photo under the library's directory,
// pulls its EXIF capture date, runs spine analysis and records the result.
// The caller has already verified the session and that the library exists.
func handleUploadPhoto(w http.ResponseWriter, r *http.Request, libraryID, email string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Upload too large or malformed", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Redirect(w, r, "/libraries/"+libraryID, http.StatusFound)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if filename == "" || !allowedExtensions[photoExt(filename)] {
		renderLibraryPage(w, r, libraryID, email, "Supported formats are jpg / png / webp / heic.")
		return
	}

	// the body is already capped by MaxBytesReader, read the file whole
	image, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	storedName := storedPhotoName(now, filename)
	storedPath := filepath.Join(dataDir, libraryID, storedName)
	if err := os.WriteFile(storedPath, image, 0o644); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	captureDate := extractCaptureDate(bytes.NewReader(image))
	analysis := analyzer.Analyze(r.Context(), image)
	if analysis.Status == "error" {
		log.Printf("DEBUG: handleUploadPhoto - analysis failed for %s: %s", storedName, analysis.Reason)
	}

	rec := PhotoRecord{
		Filename:    storedName,
		UploadedAt:  now.Format(time.RFC3339),
		CaptureDate: captureDate,
		Analysis:    analysis,
	}
	if err := db.SavePhoto(r.Context(), libraryID, rec); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/libraries/"+libraryID, http.StatusFound)
}

// handleUploadedFile serves stored photos at /uploads/{library}/{filename}.
func handleUploadedFile(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireLogin(w, r); !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/uploads/")
	segments := strings.SplitN(path, "/", 2)
	if len(segments) != 2 {
		http.NotFound(w, r)
		return
	}
	libraryID, filename := segments[0], segments[1]
	if !libraryIDPattern.MatchString(libraryID) {
		http.NotFound(w, r)
		return
	}
	// reject any path that is not a bare filename
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		http.NotFound(w, r)
		return
	}

	exists, err := db.LibraryExists(r.Context(), libraryID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(dataDir, libraryID, filename))
}
