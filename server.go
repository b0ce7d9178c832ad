package main

import (
	"crypto/sha256"
	"embed"
	"encoding/base64"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "bookbox-session"

	// maxUploadSize caps photo upload request bodies at 16 MiB.
	maxUploadSize = 16 << 20
)

//go:embed templates/*
var templatesFS embed.FS

var (
	store    *sessions.CookieStore
	tpl      *template.Template
	db       *libraryStore
	analyzer *spineAnalyzer
	dataDir  string
)

// deriveSessionKey turns SECRET_KEY into a fixed-length signing key for the
// cookie store. A base64 value decoding to exactly 32 bytes is used as-is;
// anything else is hashed.
func deriveSessionKey(raw string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded
	}
	h := sha256.Sum256([]byte(raw))
	return h[:]
}

// listenAddr returns the bind address. The server is local-only and listens
// on 127.0.0.1:5001 unless PORT overrides the port.
func listenAddr() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5001"
	}
	return "127.0.0.1:" + port
}

func newTemplates() *template.Template {
	funcMap := template.FuncMap{
		"displayTime": displayTime,
		"hasBooks":    hasBooks,
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html"))
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", handleIndex)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/libraries", handleCreateLibrary)
	mux.HandleFunc("/libraries/", handleLibrary)
	mux.HandleFunc("/uploads/", handleUploadedFile)
	return mux
}

// Run initializes global state and starts the HTTP server.
func Run() {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		log.Println("WARNING: SECRET_KEY not set, sessions signed with development default")
		secret = "dev-secret-key"
	}
	store = sessions.NewCookieStore(deriveSessionKey(secret))
	store.Options = &sessions.Options{HttpOnly: true, Secure: false, Path: "/"}

	dataDir = os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("failed to create data dir %s: %v", dataDir, err)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "bookbox.db")
	}
	var err error
	db, err = newLibraryStore(dbPath)
	if err != nil {
		log.Fatalf("failed to initialize SQLite store: %v", err)
	}

	analyzer = newSpineAnalyzer(analyzerConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	})

	tpl = newTemplates()

	addr := listenAddr()
	log.Println("Listening on http://" + addr)
	log.Fatal(http.ListenAndServe(addr, loggingMiddleware(newMux())))
}

// displayTime renders an RFC 3339 timestamp in a compact form for templates.
// Accepts string or *string since capture dates are optional; values that
// fail to parse are shown unchanged.
func displayTime(v interface{}) string {
	var s string
	switch ts := v.(type) {
	case string:
		s = ts
	case *string:
		if ts == nil {
			return ""
		}
		s = *ts
	default:
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func hasBooks(a Analysis) bool {
	return a.Data != nil && len(a.Data.Books) > 0
}
