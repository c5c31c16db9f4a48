// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reader extracts annotations from the desktop reader applications
// and normalizes them into the canonical model. Each capture tool (Skim for
// PDFs, Apple Books for EPUBs) implements the same Reader interface so the
// merge engine stays source-agnostic.
package reader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pdiddy/dlm/pkg/types"
)

// Report summarizes what one extraction skipped or could not reach.
// Local extraction problems degrade to warnings rather than errors:
// partial data beats none.
type Report struct {
	// Skipped counts malformed records dropped during extraction.
	Skipped int

	// Warnings holds one message per skipped record or degraded path.
	Warnings []string
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) skipf(format string, args ...any) {
	r.Skipped++
	r.warnf(format, args...)
}

// Reader extracts the annotations for one book from a capture tool's
// store. A book with no annotations extracts to an empty slice, never an
// error. A missing or fully unreadable store also yields an empty slice,
// with the cause reported in the Report. The returned error is reserved
// for cancellation.
type Reader interface {
	Extract(ctx context.Context, book types.Book) ([]types.Annotation, Report, error)
}

// ForKind returns the reader for a source kind. The book file path in the
// catalog is relative to libraryRoot.
func ForKind(kind types.SourceKind, cfg types.ReaderConfig, libraryRoot string) (Reader, error) {
	switch kind {
	case types.SourcePDF:
		return NewSkimReader(cfg, libraryRoot), nil
	case types.SourceEPUB:
		return NewBooksReader(cfg), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q: use pdf or epub", kind)
	}
}

// bookFile resolves a catalog-relative book path against the library root.
func bookFile(libraryRoot string, book types.Book) string {
	if filepath.IsAbs(book.FilePath) {
		return book.FilePath
	}
	return filepath.Join(libraryRoot, book.FilePath)
}
