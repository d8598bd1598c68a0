package envelope

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrFileNotFound     = errors.New("report file not found")
	ErrRangeOutOfBounds = errors.New("requested range is outside the file")
	ErrArtifactNotFound = errors.New("report id not found")
)

// Artifact describes one full-report file written to the store directory.
type Artifact struct {
	ID         string    `json:"report_id"`
	Path       string    `json:"file_path"`
	ReportType string    `json:"report_type"`
	Created    time.Time `json:"created"`
	SizeBytes  int64     `json:"size_bytes"`
	LineCount  int       `json:"line_count"`
}

// Store manages full-report artifacts: path allocation, an in-memory index
// keyed by short ID, and age-based cleanup of old files.
type Store struct {
	dir    string
	maxAge time.Duration

	mu    sync.Mutex
	index map[string]Artifact

	log *logrus.Entry
}

// NewStore creates a store rooted at dir. Files older than maxAge are
// removed each time a new path is allocated; maxAge <= 0 disables cleanup.
func NewStore(dir string, maxAge time.Duration) *Store {
	return &Store{
		dir:    dir,
		maxAge: maxAge,
		index:  make(map[string]Artifact),
		log:    logrus.WithField("component", "envelope.store"),
	}
}

// NewPath allocates a unique artifact path for a report of the given type,
// creating the store directory and sweeping expired files.
func (s *Store) NewPath(reportType string) (id, path string, err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating reports dir: %w", err)
	}
	s.sweep()

	id = uuid.NewString()[:8]
	path = filepath.Join(s.dir, fmt.Sprintf("%s_%s.txt", reportType, id))
	return id, path, nil
}

// Register records a written artifact in the index and returns its metadata.
func (s *Store) Register(id, path, reportType string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Artifact{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Artifact{}, err
	}

	lines, err := countLines(path)
	if err != nil {
		return Artifact{}, err
	}

	art := Artifact{
		ID:         id,
		Path:       path,
		ReportType: reportType,
		Created:    time.Now(),
		SizeBytes:  info.Size(),
		LineCount:  lines,
	}

	s.mu.Lock()
	s.index[id] = art
	s.mu.Unlock()
	return art, nil
}

// Resolve maps a report ID to its file path, falling back to a directory
// scan for artifacts written by an earlier process.
func (s *Store) Resolve(id string) (string, error) {
	s.mu.Lock()
	art, ok := s.index[id]
	s.mu.Unlock()
	if ok {
		return art.Path, nil
	}

	matches, _ := filepath.Glob(filepath.Join(s.dir, fmt.Sprintf("*_%s.txt", id)))
	if len(matches) > 0 {
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
}

// sweep removes artifacts older than maxAge. Caller does not hold s.mu.
func (s *Store) sweep() {
	if s.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.maxAge)
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*.txt"))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			id := strings.TrimSuffix(filepath.Base(path), ".txt")
			if i := strings.LastIndexByte(id, '_'); i >= 0 {
				id = id[i+1:]
			}
			s.mu.Lock()
			delete(s.index, id)
			s.mu.Unlock()
			s.log.WithField("path", path).Debug("removed expired report artifact")
		}
	}
}

// Section is one paged read from a report artifact.
type Section struct {
	Path          string `json:"file_path"`
	StartLine     int    `json:"start_line"`
	EndLine       int    `json:"end_line"`
	TotalLines    int    `json:"total_lines"`
	ReturnedLines int    `json:"returned_lines"`
	Content       string `json:"content"`
	Warning       string `json:"warning,omitempty"`
}

// ReadSection reads numLines lines starting at startLine (1-indexed) from a
// report file. When pattern is non-empty the window is centered on the first
// line matching it (case-insensitive); a miss returns an empty section with
// a warning rather than an error. Stateless with respect to the session.
func ReadSection(path string, startLine, numLines int, pattern string) (*Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	// A trailing newline yields one phantom empty element.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	totalLines := len(lines)

	if numLines <= 0 {
		numLines = 100
	}
	if startLine <= 0 {
		startLine = 1
	}

	if pattern != "" {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid search pattern: %w", err)
		}
		found := -1
		for i, line := range lines {
			if re.MatchString(line) {
				found = i
				break
			}
		}
		if found < 0 {
			return &Section{
				Path:       path,
				TotalLines: totalLines,
				Warning:    fmt.Sprintf("pattern %q not found in file", pattern),
			}, nil
		}
		before := numLines / 4
		startLine = found + 1 - before
		if startLine < 1 {
			startLine = 1
		}
	}

	if startLine > totalLines {
		return nil, fmt.Errorf("%w: start line %d of %d", ErrRangeOutOfBounds, startLine, totalLines)
	}

	end := startLine - 1 + numLines
	if end > totalLines {
		end = totalLines
	}
	selected := lines[startLine-1 : end]

	return &Section{
		Path:          path,
		StartLine:     startLine,
		EndLine:       end,
		TotalLines:    totalLines,
		ReturnedLines: len(selected),
		Content:       strings.Join(selected, "\n"),
	}, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
