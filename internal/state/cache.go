// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package state caches per-book sync results on the local machine: the
// remote note id and when the last sync ran. The cache is an optimization
// only; the remote search stays the source of truth, so a stale or
// missing cache never corrupts a sync.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"
)

// CacheFile is the cache filename, kept at the library root.
const CacheFile = ".dlm-sync.yaml"

// Entry records the outcome of the most recent sync for one book.
type Entry struct {
	NoteID      string    `yaml:"note_id"`
	LastSynced  time.Time `yaml:"last_synced"`
	Annotations int       `yaml:"annotations"`
}

// Cache maps book titles to their last sync outcome.
type Cache struct {
	path string

	Books map[string]Entry `yaml:"books"`
}

// Load reads the cache at the library root. A missing file is an empty
// cache; an unparseable one is also treated as empty, since the cache is
// disposable.
func Load(libraryRoot string) *Cache {
	c := &Cache{
		path:  filepath.Join(libraryRoot, CacheFile),
		Books: map[string]Entry{},
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return c
	}
	var onDisk Cache
	if err := yaml.Unmarshal(data, &onDisk); err != nil || onDisk.Books == nil {
		return c
	}
	c.Books = onDisk.Books
	return c
}

// Get returns the cached entry for a book title.
func (c *Cache) Get(title string) (Entry, bool) {
	e, ok := c.Books[title]
	return e, ok
}

// Put records a sync outcome.
func (c *Cache) Put(title string, e Entry) {
	c.Books[title] = e
}

// Titles returns the cached book titles in sorted order.
func (c *Cache) Titles() []string {
	titles := make([]string, 0, len(c.Books))
	for t := range c.Books {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// Save writes the cache back to disk.
func (c *Cache) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding sync cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing sync cache %s: %w", c.path, err)
	}
	return nil
}
