// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sync drives one end-of-session synchronization: extract the
// book's annotations from its source application, then merge them into
// the book's remote note. One invocation performs one local extraction,
// at most one remote read, and at most one remote write, in that order.
package sync

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/dlm/internal/merge"
	"github.com/pdiddy/dlm/internal/reader"
	"github.com/pdiddy/dlm/pkg/types"
)

// Run extracts and merges, writing per-step status and extraction
// warnings to w. Extraction warnings never abort the sync; remote
// failures do, with the book and step named in the error.
func Run(ctx context.Context, book types.Book, r reader.Reader, svc merge.NoteService, w io.Writer) (merge.Result, error) {
	anns, report, err := r.Extract(ctx, book)
	if err != nil {
		return merge.Result{}, fmt.Errorf("extracting annotations for %q: %w", book.Title, err)
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if report.Skipped > 0 {
		fmt.Fprintf(w, "warning: %d record(s) skipped during extraction\n", report.Skipped)
	}
	fmt.Fprintf(w, "extracted %d annotation(s) for %q\n", len(anns), book.Title)

	res, err := merge.Merge(ctx, svc, book, anns)
	if err != nil {
		return merge.Result{}, fmt.Errorf("syncing %q: %w", book.Title, err)
	}

	if res.Written {
		fmt.Fprintf(w, "synced %q: %d new, %d total in note\n", book.Title, res.Added, res.Total)
	} else {
		fmt.Fprintf(w, "%q is up to date (%d in note)\n", book.Title, res.Total)
	}
	return res, nil
}
