package main

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

var (
	ErrLibraryExists   = errors.New("library already exists")
	ErrLibraryNotFound = errors.New("library not found")
)

// libraryStore persists libraries and their photo records in SQLite. Photo
// bytes themselves live on disk under dataDir; the store only tracks metadata.
type libraryStore struct {
	db *sql.DB
}

func newLibraryStore(dbPath string) (*libraryStore, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "set busy_timeout")
	}
	schema := []string{`CREATE TABLE IF NOT EXISTS libraries(
						id TEXT PRIMARY KEY,
						created_at INTEGER
					);`, `CREATE TABLE IF NOT EXISTS photos(
						library_id TEXT NOT NULL,
						filename TEXT NOT NULL,
						uploaded_at TEXT,
						capture_date TEXT,
						analysis BLOB,
						PRIMARY KEY(library_id, filename)
					);`}
	for _, s := range schema {
		if _, err := sqlDB.Exec(s); err != nil {
			_ = sqlDB.Close()
			return nil, errors.Wrap(err, "bootstrap schema")
		}
	}
	return &libraryStore{db: sqlDB}, nil
}

func (s *libraryStore) Close() error {
	return s.db.Close()
}

func (s *libraryStore) CreateLibrary(ctx context.Context, id string, createdAt int64) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO libraries(id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`, id, createdAt)
	if err != nil {
		return errors.Wrapf(err, "create library %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLibraryExists
	}
	return nil
}

// ListLibraries returns all library ids ordered case-insensitively.
func (s *libraryStore) ListLibraries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM libraries ORDER BY id COLLATE NOCASE`)
	if err != nil {
		return nil, errors.Wrap(err, "list libraries")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *libraryStore) LibraryExists(ctx context.Context, id string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM libraries WHERE id = ?`, id)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *libraryStore) SavePhoto(ctx context.Context, libraryID string, rec PhotoRecord) error {
	analysis, err := json.Marshal(rec.Analysis)
	if err != nil {
		return errors.Wrap(err, "marshal analysis")
	}
	var capture sql.NullString
	if rec.CaptureDate != nil {
		capture = sql.NullString{String: *rec.CaptureDate, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO photos(library_id, filename, uploaded_at, capture_date, analysis) VALUES (?, ?, ?, ?, ?) ON CONFLICT(library_id, filename) DO UPDATE SET uploaded_at=excluded.uploaded_at, capture_date=excluded.capture_date, analysis=excluded.analysis`, libraryID, rec.Filename, rec.UploadedAt, capture, analysis)
	return errors.Wrapf(err, "save photo %s", rec.Filename)
}

// ListPhotos returns a library's photo records newest-first. Stored filenames
// start with a UTC timestamp, so descending filename order is upload order.
func (s *libraryStore) ListPhotos(ctx context.Context, libraryID string) ([]PhotoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, uploaded_at, capture_date, analysis FROM photos WHERE library_id = ? ORDER BY filename DESC`, libraryID)
	if err != nil {
		return nil, errors.Wrapf(err, "list photos for %s", libraryID)
	}
	defer rows.Close()

	var records []PhotoRecord
	for rows.Next() {
		var rec PhotoRecord
		var capture sql.NullString
		var analysis []byte
		if err := rows.Scan(&rec.Filename, &rec.UploadedAt, &capture, &analysis); err != nil {
			return nil, err
		}
		if capture.Valid {
			v := capture.String
			rec.CaptureDate = &v
		}
		if len(analysis) > 0 {
			if err := json.Unmarshal(analysis, &rec.Analysis); err != nil {
				return nil, errors.Wrapf(err, "unmarshal analysis for %s", rec.Filename)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
