package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	email, ok := requireLogin(w, r)
	if !ok {
		return
	}

	libraries, err := db.ListLibraries(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	executeTemplate(w, "index.html", IndexPageData{
		Title:     "Libraries - Bookbox",
		Libraries: libraries,
		Email:     email,
	})
}

func handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	email, ok := requireLogin(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	libraryID := strings.TrimSpace(r.FormValue("library_id"))
	if !libraryIDPattern.MatchString(libraryID) {
		renderIndexError(w, r, email, "Library IDs are 3-32 characters of letters, digits, hyphens and underscores.")
		return
	}

	// the photo directory must exist before the library becomes listable
	if err := os.MkdirAll(filepath.Join(dataDir, libraryID), 0o755); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := db.CreateLibrary(r.Context(), libraryID, time.Now().Unix()); err != nil {
		if errors.Is(err, ErrLibraryExists) {
			renderIndexError(w, r, email, "A library with that ID already exists.")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/libraries/"+libraryID, http.StatusFound)
}

// handleLibrary dispatches /libraries/{id} and /libraries/{id}/photos.
func handleLibrary(w http.ResponseWriter, r *http.Request) {
	email, ok := requireLogin(w, r)
	if !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/libraries/")
	segments := strings.SplitN(path, "/", 2)
	libraryID := segments[0]
	if libraryID == "" || !libraryIDPattern.MatchString(libraryID) {
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

	if len(segments) == 2 {
		if segments[1] == "photos" {
			handleUploadPhoto(w, r, libraryID, email)
			return
		}
		http.NotFound(w, r)
		return
	}

	renderLibraryPage(w, r, libraryID, email, "")
}

func renderIndexError(w http.ResponseWriter, r *http.Request, email, errMsg string) {
	libraries, err := db.ListLibraries(r.Context())
	if err != nil {
		log.Printf("DEBUG: renderIndexError - ListLibraries error: %v", err)
	}
	executeTemplate(w, "index.html", IndexPageData{
		Title:     "Libraries - Bookbox",
		Libraries: libraries,
		Error:     errMsg,
		Email:     email,
	})
}

func renderLibraryPage(w http.ResponseWriter, r *http.Request, libraryID, email, errMsg string) {
	records, err := db.ListPhotos(r.Context(), libraryID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	executeTemplate(w, "library.html", LibraryPageData{
		Title:     libraryID + " - Bookbox",
		LibraryID: libraryID,
		Records:   records,
		Error:     errMsg,
		Email:     email,
	})
}
