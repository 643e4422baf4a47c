// Package library tracks the document library listing, its text
// search, and the processing-status poll loop.
package library

import (
	"context"
	"strings"
	"sync"

	"github.com/docquery-ai/document-assistant/internal/model"
)

// Fetcher is the slice of the remote client the library needs.
type Fetcher interface {
	Library(ctx context.Context) ([]model.DocumentInfo, error)
}

// Library holds the most recently fetched document listing.
type Library struct {
	fetcher Fetcher

	mu   sync.Mutex
	docs []model.DocumentInfo
}

// New creates an empty library; call Refresh to populate it.
func New(fetcher Fetcher) *Library {
	return &Library{fetcher: fetcher}
}

// Refresh replaces the listing with the server's current one.
func (l *Library) Refresh(ctx context.Context) error {
	docs, err := l.fetcher.Library(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.docs = docs
	l.mu.Unlock()
	return nil
}

// Documents returns a copy of the current listing.
func (l *Library) Documents() []model.DocumentInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.DocumentInfo(nil), l.docs...)
}

// Search returns documents whose filename contains query, case
// insensitively. An empty query returns the full listing.
func (l *Library) Search(query string) []model.DocumentInfo {
	query = strings.ToLower(strings.TrimSpace(query))
	docs := l.Documents()
	if query == "" {
		return docs
	}

	var matched []model.DocumentInfo
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.Filename), query) {
			matched = append(matched, doc)
		}
	}
	return matched
}

// Processing reports whether any document is still being indexed.
func (l *Library) Processing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, doc := range l.docs {
		if doc.Status == model.DocumentStatusProcessing {
			return true
		}
	}
	return false
}
