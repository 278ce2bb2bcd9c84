// Package documents loads shared reference files from disk and serves
// substring search and statistics over the loaded set.
package documents

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const excerptRadius = 100

var supportedExt = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
	".log": true,
}

// SupportedExtensions lists the file types the store accepts, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExt))
	for ext := range supportedExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Document is one loaded file plus the derived metadata the agents and the
// status surface report on.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Extension string    `json:"extension"`
	Content   string    `json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	WordCount int       `json:"word_count"`
	LineCount int       `json:"line_count"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Result is the outcome for one path in a batch. Exactly one of Document
// and Err is set.
type Result struct {
	Path     string
	Document *Document
	Err      error
}

// SearchHit is one document matching a search, with a window around the
// first occurrence.
type SearchHit struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Matches    int    `json:"matches"`
	Excerpt    string `json:"excerpt"`
}

// Stats summarizes the loaded set.
type Stats struct {
	DocumentCount int            `json:"document_count"`
	TotalBytes    int64          `json:"total_bytes"`
	TotalWords    int            `json:"total_words"`
	TotalLines    int            `json:"total_lines"`
	ByExtension   map[string]int `json:"by_extension"`
}

// Store holds loaded documents in memory, keyed by ID with one live
// document per path. Concurrent loads of the same path share one read.
type Store struct {
	logger *slog.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	docs   map[string]*Document
	byPath map[string]string
}

// NewStore builds an empty document store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger.With("component", "documents"),
		docs:   make(map[string]*Document),
		byPath: make(map[string]string),
	}
}

// Load reads one file into the store. Unsupported types, unreadable files
// and files with no content all fail; a reloaded path replaces its
// previous document.
func (s *Store) Load(path string) (*Document, error) {
	key := filepath.Clean(path)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.load(key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (s *Store) load(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExt[ext] {
		return nil, fmt.Errorf("documents: unsupported file type %q, supported: %s",
			ext, strings.Join(SupportedExtensions(), ", "))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("documents: read %s: %w", path, err)
	}

	content := string(raw)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("documents: %s is empty", path)
	}

	doc := &Document{
		ID:        uuid.NewString(),
		Name:      filepath.Base(path),
		Path:      path,
		Extension: ext,
		Content:   content,
		SizeBytes: int64(len(raw)),
		WordCount: len(strings.Fields(content)),
		LineCount: strings.Count(content, "\n") + 1,
		LoadedAt:  time.Now(),
	}

	s.mu.Lock()
	if oldID, ok := s.byPath[doc.Path]; ok {
		delete(s.docs, oldID)
	}
	s.byPath[doc.Path] = doc.ID
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	s.logger.Info("document loaded", "name", doc.Name, "words", doc.WordCount, "lines", doc.LineCount)
	return doc, nil
}

// IngestBatch loads paths in order. Failures are captured per path and do
// not stop the rest of the batch; results[i] always corresponds to
// paths[i].
func (s *Store) IngestBatch(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Path: path, Err: err}
			continue
		}
		doc, err := s.Load(path)
		results[i] = Result{Path: path, Document: doc, Err: err}
	}
	return results
}

// Search finds documents containing the query, case-insensitively, ordered
// by match count and then name.
func (s *Store) Search(query string) []SearchHit {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []SearchHit
	for _, doc := range s.docs {
		lower := strings.ToLower(doc.Content)
		n := strings.Count(lower, needle)
		if n == 0 {
			continue
		}
		hits = append(hits, SearchHit{
			DocumentID: doc.ID,
			Name:       doc.Name,
			Path:       doc.Path,
			Matches:    n,
			Excerpt:    excerpt(doc.Content, strings.Index(lower, needle), len(needle)),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Matches != hits[j].Matches {
			return hits[i].Matches > hits[j].Matches
		}
		return hits[i].Name < hits[j].Name
	})
	return hits
}

// Stats reports totals over the loaded set.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByExtension: make(map[string]int)}
	for _, doc := range s.docs {
		stats.DocumentCount++
		stats.TotalBytes += doc.SizeBytes
		stats.TotalWords += doc.WordCount
		stats.TotalLines += doc.LineCount
		stats.ByExtension[doc.Extension]++
	}
	return stats
}

// excerpt returns a window around the first match, widened outward so it
// never splits a multi-byte character.
func excerpt(content string, idx, matchLen int) string {
	start := idx - excerptRadius
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + excerptRadius
	if end > len(content) {
		end = len(content)
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	return content[start:end]
}
