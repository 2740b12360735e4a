// Package knowledge answers general cricket questions from a directory of
// text documents indexed in memory.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
)

const (
	maxSnippets   = 3
	maxHits       = 10
	windowBefore  = 300
	windowAfter   = 1000
	minAnchorWord = 4
)

type document struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Library is a searchable set of documents.
type Library struct {
	index  bleve.Index
	docs   map[string]string
	logger *slog.Logger
}

// Load indexes every .txt and .md file in dir. A missing directory yields
// an empty library.
func Load(dir string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create knowledge index: %w", err)
	}
	lib := &Library{index: index, docs: make(map[string]string), logger: logger}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Knowledge directory not found, general knowledge disabled", "dir", dir)
		return lib, nil
	}
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("read knowledge directory: %w", err)
	}

	batch := index.NewBatch()
	for _, e := range entries {
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if e.IsDir() || (ext != ".txt" && ext != ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("Failed to read knowledge file", "file", name, "error", err)
			continue
		}
		content := string(data)
		lib.docs[name] = content
		if err := batch.Index(name, document{Name: name, Content: content}); err != nil {
			index.Close()
			return nil, fmt.Errorf("index %s: %w", name, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("index knowledge batch: %w", err)
	}

	logger.Info("Knowledge library loaded", "dir", dir, "documents", len(lib.docs))
	return lib, nil
}

// Len returns the number of indexed documents.
func (l *Library) Len() int {
	return len(l.docs)
}

// Search returns up to three source-tagged snippets relevant to query.
func (l *Library) Search(ctx context.Context, query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" || len(l.docs) == 0 {
		return "", false
	}
	if ctx.Err() != nil {
		return "", false
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = maxHits
	req.IncludeLocations = true

	result, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		l.logger.Warn("Knowledge search failed", "error", err)
		return "", false
	}

	words := strings.Fields(strings.ToLower(query))
	var chunks []string
	for _, hit := range result.Hits {
		content, ok := l.docs[hit.ID]
		if !ok {
			continue
		}
		at := anchor(content, words)
		if at < 0 {
			at = firstLocation(hit.Locations)
		}
		if at < 0 {
			continue
		}
		chunks = append(chunks, fmt.Sprintf("\n📘 SOURCE: %s\n...%s...\n", hit.ID, window(content, at)))
		if len(chunks) == maxSnippets {
			break
		}
	}
	if len(chunks) == 0 {
		return "", false
	}
	return strings.Join(chunks, "\n"), true
}

// Close releases the index.
func (l *Library) Close() error {
	return l.index.Close()
}

// anchor returns the byte offset of the first query word longer than three
// letters found in content, or -1.
func anchor(content string, words []string) int {
	lower := strings.ToLower(content)
	if len(lower) != len(content) {
		return -1
	}
	for _, w := range words {
		if len(w) < minAnchorWord {
			continue
		}
		if idx := strings.Index(lower, w); idx >= 0 {
			return idx
		}
	}
	return -1
}

// firstLocation returns the earliest matched offset in the content field,
// or -1. Bleve matches stemmed terms that anchor may miss.
func firstLocation(locs search.FieldTermLocationMap) int {
	best := -1
	for _, list := range locs["content"] {
		for _, loc := range list {
			if best < 0 || int(loc.Start) < best {
				best = int(loc.Start)
			}
		}
	}
	return best
}

func window(content string, at int) string {
	start := max(0, at-windowBefore)
	end := min(len(content), at+windowAfter)
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	return strings.ReplaceAll(content[start:end], "\n", " ")
}
