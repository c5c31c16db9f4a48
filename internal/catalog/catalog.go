// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog reads the library catalog and reading-progress files.
// catalog.json is generated by the cataloging tooling from the library's
// DDC folder tree; this package is the read side plus progress updates.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/dlm/pkg/types"
)

const (
	// CatalogFile sits at the library root.
	CatalogFile = "catalog.json"

	// ProgressFile records last-read positions, keyed by catalog ID.
	ProgressFile = "reading_progress.json"
)

type catalogDoc struct {
	Catalog []types.Book `json:"catalog"`
}

// Load reads the catalog at the library root.
func Load(libraryRoot string) ([]types.Book, error) {
	path := filepath.Join(libraryRoot, CatalogFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var doc catalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return doc.Catalog, nil
}

// ByID returns the catalog entry with the given ID.
func ByID(books []types.Book, id string) (types.Book, bool) {
	for _, b := range books {
		if b.ID == id {
			return b, true
		}
	}
	return types.Book{}, false
}

// Find matches books against a query: an exact title match wins, otherwise
// case-insensitive substring matches on title and author.
func Find(books []types.Book, query string) []types.Book {
	for _, b := range books {
		if b.Title == query {
			return []types.Book{b}
		}
	}

	q := strings.ToLower(query)
	var matches []types.Book
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) {
			matches = append(matches, b)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Title < matches[j].Title })
	return matches
}

// LoadProgress reads the reading-progress file. A missing file is an
// empty map, not an error.
func LoadProgress(libraryRoot string) (map[string]types.Progress, error) {
	path := filepath.Join(libraryRoot, ProgressFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]types.Progress{}, nil
		}
		return nil, fmt.Errorf("reading progress %s: %w", path, err)
	}
	var progress map[string]types.Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("parsing progress %s: %w", path, err)
	}
	return progress, nil
}

// SaveProgress writes the reading-progress file.
func SaveProgress(libraryRoot string, progress map[string]types.Progress) error {
	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}
	path := filepath.Join(libraryRoot, ProgressFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing progress %s: %w", path, err)
	}
	return nil
}
