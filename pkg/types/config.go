// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "dlm/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// JoplinConfig holds settings for the remote notes client.
type JoplinConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the Joplin Web Clipper service base URL
	// (default "http://localhost:41184").
	APIURL string `json:"api_url" yaml:"api_url"`

	// Token is the per-machine Joplin API token. Usually loaded from
	// .secrets/joplin-token rather than the config file.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Notebook is the notebook reading notes are filed under
	// (default "Digital Library Notes").
	Notebook string `json:"notebook" yaml:"notebook"`

	// MaxRetries caps retry attempts on transient remote failures
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// LibraryConfig holds settings for the local library layout.
type LibraryConfig struct {
	// Root is the library root directory containing the DDC folder
	// tree, catalog.json, and reading_progress.json.
	Root string `json:"root" yaml:"root"`
}

// ReaderConfig holds settings for the annotation source readers.
type ReaderConfig struct {
	// ScriptTimeout bounds the AppleScript fallback call, since the
	// reader application may be unresponsive (default 10s).
	ScriptTimeout time.Duration `json:"script_timeout" yaml:"script_timeout"`

	// BooksLibraryDB overrides the Apple Books library database path.
	// Empty means discover it under the user's container.
	BooksLibraryDB string `json:"books_library_db,omitempty" yaml:"books_library_db,omitempty"`

	// BooksAnnotationDB overrides the Apple Books annotation database path.
	BooksAnnotationDB string `json:"books_annotation_db,omitempty" yaml:"books_annotation_db,omitempty"`
}

// SortConfig holds settings for inbox auto-sorting.
type SortConfig struct {
	HTTPConfig `yaml:",inline"`

	// InboxDir is the drop folder scanned for unfiled books, relative
	// to the library root (default "_Inbox").
	InboxDir string `json:"inbox_dir" yaml:"inbox_dir"`

	// LookupDelay is the pause between classification lookups, to stay
	// polite with the Open Library API (default 1s).
	LookupDelay time.Duration `json:"lookup_delay" yaml:"lookup_delay"`
}

// SyncConfig groups everything one sync invocation needs.
type SyncConfig struct {
	Joplin  JoplinConfig  `json:"joplin" yaml:"joplin"`
	Library LibraryConfig `json:"library" yaml:"library"`
	Reader  ReaderConfig  `json:"reader" yaml:"reader"`
}
