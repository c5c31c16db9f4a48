// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge reconciles freshly extracted annotations against the
// remote note for a book. Merging is idempotent: identical extractions
// produce identical bodies and no second remote write. Annotations synced
// earlier (possibly from another machine) are recognized by the stable-id
// markers already present in the note body and are never duplicated.
//
// The managed block is engine-owned: manual edits made inside it are
// overwritten on the next sync that changes the block. That is a
// documented constraint of the design, not silent data loss.
package merge

import (
	"context"
	"fmt"
	"sort"

	"github.com/pdiddy/dlm/pkg/types"
)

// NoteService is the remote client surface the engine needs. The engine
// performs at most one read and one write per invocation; the write is a
// single call, so cancellation never leaves a half-updated note.
type NoteService interface {
	// FindOrCreate returns the note titled after the book, creating an
	// empty one (metadata header plus empty managed block) when absent.
	FindOrCreate(ctx context.Context, book types.Book) (types.RemoteNote, error)

	// UpdateBody replaces the body of an existing note.
	UpdateBody(ctx context.Context, noteID, body string) error
}

// Result summarizes one merge invocation.
type Result struct {
	NoteID string

	// Written reports whether a remote write happened. False on the
	// common repeat-sync path with nothing new.
	Written bool

	// Added is the number of annotations not previously represented in
	// the note.
	Added int

	// Total is the number of entries in the managed block after the merge.
	Total int
}

// Merge fetches (or creates) the book's note, folds the extracted
// annotations into its managed block, and writes the body back only when
// it changed.
func Merge(ctx context.Context, svc NoteService, book types.Book, extracted []types.Annotation) (Result, error) {
	note, err := svc.FindOrCreate(ctx, book)
	if err != nil {
		return Result{}, fmt.Errorf("locating note for %q: %w", book.Title, err)
	}

	block := ParseBody(note.Body)
	existing := block.Entries()

	known := make(map[string]int, len(existing)) // stable id → index in entries
	entries := make([]Entry, len(existing))
	copy(entries, existing)
	for i, e := range existing {
		known[e.ID] = i
	}

	added := 0
	for _, a := range extracted {
		e := Entry{
			ID:      a.StableID(),
			Kind:    a.Source,
			SortKey: a.Location.SortKey,
			Text:    renderAnnotation(a),
		}
		if i, ok := known[e.ID]; ok {
			// Re-extracted: regenerate the stored rendering.
			entries[i] = e
			continue
		}
		known[e.ID] = len(entries)
		entries = append(entries, e)
		added++
	}

	result := Result{NoteID: note.ID, Added: added, Total: len(entries)}

	// Nothing new and the block already exists: idempotent no-op. This
	// also tolerates manual edits inside the block until the next real
	// change arrives.
	if added == 0 && block.Found() {
		return result, nil
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].less(entries[j]) })

	body := block.WithInner(renderInner(entries))
	if body == note.Body {
		return result, nil
	}

	if err := svc.UpdateBody(ctx, note.ID, body); err != nil {
		return Result{}, fmt.Errorf("updating note for %q: %w", book.Title, err)
	}
	result.Written = true
	return result, nil
}

// renderAnnotation produces the entry body: a location line with the
// capture tag, the excerpt as a quote, and the comment as trailing prose.
// Text is whitespace-normalized so the rendering of one annotation is
// identical no matter which machine or run produced it.
func renderAnnotation(a types.Annotation) string {
	var sb []byte
	sb = fmt.Appendf(sb, "**%s**", a.Location.Display)
	if a.Style != "" {
		sb = fmt.Appendf(sb, " (%s)", a.Style)
	}
	if excerpt := types.NormalizeSpace(a.Excerpt); excerpt != "" {
		sb = fmt.Appendf(sb, "\n\n> %s", excerpt)
	}
	if comment := types.NormalizeSpace(a.Comment); comment != "" {
		sb = fmt.Appendf(sb, "\n\n%s", comment)
	}
	return string(sb)
}
