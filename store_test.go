package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *libraryStore {
	t.Helper()
	s, err := newLibraryStore(filepath.Join(t.TempDir(), "bookbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestLibraryStore_CreateAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	libs, err := s.ListLibraries(ctx)
	require.NoError(t, err)
	assert.Empty(t, libs)

	require.NoError(t, s.CreateLibrary(ctx, "Zebra-box", 100))
	require.NoError(t, s.CreateLibrary(ctx, "apple-box", 101))
	require.NoError(t, s.CreateLibrary(ctx, "Maple-box", 102))

	libs, err = s.ListLibraries(ctx)
	require.NoError(t, err)
	// case-insensitive ordering
	assert.Equal(t, []string{"apple-box", "Maple-box", "Zebra-box"}, libs)
}

func TestLibraryStore_DuplicateCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateLibrary(ctx, "maple", 100))
	err := s.CreateLibrary(ctx, "maple", 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLibraryExists))
}

func TestLibraryStore_LibraryExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.LibraryExists(ctx, "maple")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateLibrary(ctx, "maple", 100))

	exists, err = s.LibraryExists(ctx, "maple")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLibraryStore_SaveAndListPhotos(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, "maple", 100))

	capture := "2023-07-05T10:11:12Z"
	first := PhotoRecord{
		Filename:    "20260102T100000Z_a.jpg",
		UploadedAt:  "2026-01-02T10:00:00Z",
		CaptureDate: &capture,
		Analysis: Analysis{
			Status: "ok",
			Data: &AnalysisData{Books: []Book{
				{Title: "The Go Programming Language", Author: "Donovan & Kernighan", Publisher: "Addison-Wesley"},
			}},
		},
	}
	second := PhotoRecord{
		Filename:   "20260102T110000Z_b.jpg",
		UploadedAt: "2026-01-02T11:00:00Z",
		Analysis:   Analysis{Status: "skipped", Reason: "OPENAI_API_KEY is not set"},
	}

	require.NoError(t, s.SavePhoto(ctx, "maple", first))
	require.NoError(t, s.SavePhoto(ctx, "maple", second))

	records, err := s.ListPhotos(ctx, "maple")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// newest first
	assert.Equal(t, second.Filename, records[0].Filename)
	assert.Equal(t, first.Filename, records[1].Filename)

	got := records[1]
	require.NotNil(t, got.CaptureDate)
	assert.Equal(t, capture, *got.CaptureDate)
	assert.Equal(t, "ok", got.Analysis.Status)
	require.NotNil(t, got.Analysis.Data)
	require.Len(t, got.Analysis.Data.Books, 1)
	assert.Equal(t, "The Go Programming Language", got.Analysis.Data.Books[0].Title)

	assert.Nil(t, records[0].CaptureDate)
	assert.Equal(t, "skipped", records[0].Analysis.Status)
}

func TestLibraryStore_SavePhotoUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, "maple", 100))

	rec := PhotoRecord{
		Filename:   "20260102T100000Z_a.jpg",
		UploadedAt: "2026-01-02T10:00:00Z",
		Analysis:   Analysis{Status: "error", Reason: "timeout"},
	}
	require.NoError(t, s.SavePhoto(ctx, "maple", rec))

	rec.Analysis = Analysis{Status: "ok", Data: &AnalysisData{Books: []Book{{Title: "Dune"}}}}
	require.NoError(t, s.SavePhoto(ctx, "maple", rec))

	records, err := s.ListPhotos(ctx, "maple")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].Analysis.Status)
}

func TestLibraryStore_ListPhotosScopedToLibrary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateLibrary(ctx, "maple", 100))
	require.NoError(t, s.CreateLibrary(ctx, "oak", 101))

	require.NoError(t, s.SavePhoto(ctx, "maple", PhotoRecord{
		Filename:   "20260102T100000Z_a.jpg",
		UploadedAt: "2026-01-02T10:00:00Z",
		Analysis:   Analysis{Status: "skipped"},
	}))

	records, err := s.ListPhotos(ctx, "oak")
	require.NoError(t, err)
	assert.Empty(t, records)
}
