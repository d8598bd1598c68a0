package envelope

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), 24*time.Hour)
}

func writeReport(t *testing.T, s *Store, reportType, content string) Artifact {
	t.Helper()
	id, path, err := s.NewPath(reportType)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	art, err := s.Register(id, path, reportType)
	require.NoError(t, err)
	return art
}

func TestStoreNewPathAndRegister(t *testing.T) {
	s := newTestStore(t)

	art := writeReport(t, s, "timing", "line one\nline two\nline three\n")
	require.Len(t, art.ID, 8)
	require.Contains(t, filepath.Base(art.Path), "timing_")
	require.Equal(t, 3, art.LineCount)
	require.Greater(t, art.SizeBytes, int64(0))
}

func TestStoreResolve(t *testing.T) {
	s := newTestStore(t)

	art := writeReport(t, s, "utilization", "data\n")
	path, err := s.Resolve(art.ID)
	require.NoError(t, err)
	require.Equal(t, art.Path, path)

	_, err = s.Resolve("deadbeef")
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestStoreResolveFromDiskAfterRestart(t *testing.T) {
	dir := t.TempDir()
	first := NewStore(dir, 0)

	id, path, err := first.NewPath("timing")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	// A fresh store has an empty index but still finds the file by glob.
	second := NewStore(dir, 0)
	resolved, err := second.Resolve(id)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
}

func TestStoreSweepRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, time.Hour)

	art := writeReport(t, s, "timing", "old\n")
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(art.Path, stale, stale))

	// Allocating a new path triggers the sweep.
	_, _, err := s.NewPath("utilization")
	require.NoError(t, err)

	_, statErr := os.Stat(art.Path)
	require.True(t, os.IsNotExist(statErr), "expired artifact should be removed")
	_, err = s.Resolve(art.ID)
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestStoreSweepDisabled(t *testing.T) {
	s := NewStore(t.TempDir(), 0)

	art := writeReport(t, s, "timing", "kept\n")
	stale := time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(art.Path, stale, stale))

	_, _, err := s.NewPath("messages")
	require.NoError(t, err)

	_, statErr := os.Stat(art.Path)
	require.NoError(t, statErr, "maxAge 0 keeps artifacts forever")
}

func writeNumberedFile(t *testing.T, lines int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestReadSectionRange(t *testing.T) {
	path := writeNumberedFile(t, 50)

	sec, err := ReadSection(path, 10, 5, "")
	require.NoError(t, err)
	require.Equal(t, 10, sec.StartLine)
	require.Equal(t, 14, sec.EndLine)
	require.Equal(t, 50, sec.TotalLines)
	require.Equal(t, 5, sec.ReturnedLines)
	require.Equal(t, "line 10\nline 11\nline 12\nline 13\nline 14", sec.Content)
}

func TestReadSectionClampsAtEOF(t *testing.T) {
	path := writeNumberedFile(t, 10)

	sec, err := ReadSection(path, 8, 100, "")
	require.NoError(t, err)
	require.Equal(t, 10, sec.EndLine)
	require.Equal(t, 3, sec.ReturnedLines)
}

func TestReadSectionStartBeyondEOF(t *testing.T) {
	path := writeNumberedFile(t, 10)

	_, err := ReadSection(path, 11, 5, "")
	require.ErrorIs(t, err, ErrRangeOutOfBounds)
}

func TestReadSectionPatternCentersWindow(t *testing.T) {
	path := writeNumberedFile(t, 100)

	sec, err := ReadSection(path, 1, 20, "LINE 40")
	require.NoError(t, err)
	require.Contains(t, sec.Content, "line 40", "pattern match is case-insensitive")
	require.Equal(t, 35, sec.StartLine, "window starts a quarter before the match")
	require.Equal(t, 20, sec.ReturnedLines)
}

func TestReadSectionPatternMiss(t *testing.T) {
	path := writeNumberedFile(t, 10)

	sec, err := ReadSection(path, 1, 20, "no such text")
	require.NoError(t, err, "a miss is a warning, not an error")
	require.NotEmpty(t, sec.Warning)
	require.Empty(t, sec.Content)
}

func TestReadSectionMissingFile(t *testing.T) {
	_, err := ReadSection(filepath.Join(t.TempDir(), "absent.txt"), 1, 10, "")
	require.ErrorIs(t, err, ErrFileNotFound)
}
