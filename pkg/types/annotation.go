// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SourceKind identifies which reader application captured an annotation.
type SourceKind string

const (
	SourcePDF  SourceKind = "pdf"
	SourceEPUB SourceKind = "epub"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	return k == SourcePDF || k == SourceEPUB
}

// Location is an annotation's position within a book.
type Location struct {
	// Native is the position as the capture tool records it: a page
	// number for PDFs, a store locator string for EPUBs. Identity is
	// derived from this value.
	Native string `json:"native" yaml:"native"`

	// SortKey orders annotations within one source kind. Zero-padded
	// so plain lexicographic comparison matches reading order.
	SortKey string `json:"sort_key" yaml:"sort_key"`

	// Display is the human-readable form rendered into the note (e.g. "p. 5").
	Display string `json:"display" yaml:"display"`
}

// Annotation is one highlight or free-standing note captured in a reader
// application, normalized away from the app-specific record shape.
type Annotation struct {
	Source   SourceKind `json:"source" yaml:"source"`
	Location Location   `json:"location" yaml:"location"`

	// Excerpt is the highlighted text. Empty for free-standing notes.
	Excerpt string `json:"excerpt" yaml:"excerpt"`

	// Comment is the user's note text. Never part of identity: editing
	// a comment must not create a duplicate entry on the next sync.
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// Style is the capture tool's tag (highlight color, note type).
	// Preserved for display only.
	Style string `json:"style,omitempty" yaml:"style,omitempty"`

	// CapturedAt records when this run extracted the annotation. The
	// source stores do not reliably expose original creation time.
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// stableIDLen is the number of hex characters kept from the digest. 48 bits
// is plenty for a personal library while keeping note markers short.
const stableIDLen = 12

// StableID returns a deterministic fingerprint used to recognize an
// annotation across repeated syncs and across machines. It hashes the
// source kind, the normalized location, and the normalized excerpt.
// Free-standing notes (empty excerpt) hash the comment instead, since the
// excerpt cannot disambiguate; two such notes at one location with
// identical comment text collapse to a single entry.
func (a Annotation) StableID() string {
	text := NormalizeSpace(a.Excerpt)
	if text == "" {
		text = NormalizeSpace(a.Comment)
	}
	h := sha256.New()
	h.Write([]byte(a.Source))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeSpace(a.Location.Native)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))[:stableIDLen]
}

// Less orders annotations by (source kind, sort key), breaking ties on
// stable id so repeated merges always render in the same order.
func (a Annotation) Less(b Annotation) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Location.SortKey != b.Location.SortKey {
		return a.Location.SortKey < b.Location.SortKey
	}
	return a.StableID() < b.StableID()
}

// NormalizeSpace trims s and collapses internal whitespace runs to single
// spaces. Case is preserved.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
