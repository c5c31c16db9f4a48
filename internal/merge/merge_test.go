// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dlm/pkg/types"
)

// fakeNotes is an in-memory NoteService.
type fakeNotes struct {
	note    types.RemoteNote
	updates int
}

func (f *fakeNotes) FindOrCreate(ctx context.Context, book types.Book) (types.RemoteNote, error) {
	if f.note.ID == "" {
		f.note = types.RemoteNote{
			ID:    "note-1",
			Title: book.Title,
			Body:  fmt.Sprintf("Author: %s\n\n%s", book.Author, EmptyBlock()),
		}
	}
	return f.note, nil
}

func (f *fakeNotes) UpdateBody(ctx context.Context, noteID, body string) error {
	f.note.Body = body
	f.updates++
	return nil
}

func pdfHighlight(page int, excerpt, comment string) types.Annotation {
	return types.Annotation{
		Source: types.SourcePDF,
		Location: types.Location{
			Native:  fmt.Sprint(page),
			SortKey: fmt.Sprintf("%08d", page),
			Display: fmt.Sprintf("p. %d", page),
		},
		Excerpt:    excerpt,
		Comment:    comment,
		Style:      "Highlight",
		CapturedAt: time.Now().UTC(),
	}
}

var testBook = types.Book{Title: "Gravitation", Author: "Misner, Charles", DDC: "530.1"}

func TestMerge_EmptyNoteGetsOneEntry(t *testing.T) {
	svc := &fakeNotes{}
	extracted := []types.Annotation{pdfHighlight(5, "gravity well", "")}

	res, err := Merge(context.Background(), svc, testBook, extracted)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Total)

	entries := ParseBody(svc.note.Body).Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Text, "**p. 5**")
	assert.Contains(t, entries[0].Text, "> gravity well")
}

func TestMerge_Idempotent(t *testing.T) {
	svc := &fakeNotes{}
	extracted := []types.Annotation{pdfHighlight(5, "gravity well", "")}

	_, err := Merge(context.Background(), svc, testBook, extracted)
	require.NoError(t, err)
	bodyAfterFirst := svc.note.Body

	res, err := Merge(context.Background(), svc, testBook, extracted)
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Zero(t, res.Added)
	assert.Equal(t, 1, svc.updates)
	assert.Equal(t, bodyAfterFirst, svc.note.Body)
}

func TestMerge_DedupAcrossRuns(t *testing.T) {
	svc := &fakeNotes{}

	first := pdfHighlight(5, "gravity well", "")
	first.CapturedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err := Merge(context.Background(), svc, testBook, []types.Annotation{first})
	require.NoError(t, err)

	// Same highlight extracted on another machine at another time.
	second := pdfHighlight(5, "gravity  well ", "")
	second.CapturedAt = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	res, err := Merge(context.Background(), svc, testBook, []types.Annotation{second})
	require.NoError(t, err)

	assert.False(t, res.Written)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, ParseBody(svc.note.Body).Entries(), 1)
}

func TestMerge_OrdersByLocation(t *testing.T) {
	svc := &fakeNotes{}
	extracted := []types.Annotation{
		pdfHighlight(3, "third", ""),
		pdfHighlight(1, "first", ""),
		pdfHighlight(2, "second", ""),
	}

	_, err := Merge(context.Background(), svc, testBook, extracted)
	require.NoError(t, err)

	entries := ParseBody(svc.note.Body).Entries()
	require.Len(t, entries, 3)
	assert.Contains(t, entries[0].Text, "first")
	assert.Contains(t, entries[1].Text, "second")
	assert.Contains(t, entries[2].Text, "third")
}

func TestMerge_PreservesFreeRegions(t *testing.T) {
	prose := "My own reading plan.\n\nDo not touch this.\n"
	trailing := "\nClosing thoughts, also mine.\n"

	svc := &fakeNotes{}
	_, err := Merge(context.Background(), svc, testBook, []types.Annotation{pdfHighlight(5, "gravity well", "")})
	require.NoError(t, err)

	// Simulate user prose around the managed block.
	svc.note.Body = prose + svc.note.Body[strings.Index(svc.note.Body, BeginMarker):]
	svc.note.Body += trailing

	_, err = Merge(context.Background(), svc, testBook, []types.Annotation{
		pdfHighlight(5, "gravity well", ""),
		pdfHighlight(7, "event horizon", ""),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svc.note.Body, prose))
	assert.True(t, strings.HasSuffix(svc.note.Body, trailing))
	assert.Len(t, ParseBody(svc.note.Body).Entries(), 2)
}

func TestMerge_AppendsBlockToBodyWithoutMarkers(t *testing.T) {
	prose := "Pre-existing note written by hand."
	svc := &fakeNotes{note: types.RemoteNote{ID: "note-9", Title: testBook.Title, Body: prose}}

	_, err := Merge(context.Background(), svc, testBook, []types.Annotation{pdfHighlight(5, "gravity well", "")})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svc.note.Body, prose+"\n\n"))
	assert.Len(t, ParseBody(svc.note.Body).Entries(), 1)
}

func TestMerge_KeepsEntriesFromOtherSource(t *testing.T) {
	svc := &fakeNotes{}

	epub := types.Annotation{
		Source:   types.SourceEPUB,
		Location: types.Location{Native: "epubcfi(/6/2!/4)", SortKey: "00000001", Display: "chapter1"},
		Excerpt:  "an epub highlight",
	}
	_, err := Merge(context.Background(), svc, testBook, []types.Annotation{epub})
	require.NoError(t, err)

	// A later PDF-sourced sync must not drop the epub entry.
	res, err := Merge(context.Background(), svc, testBook, []types.Annotation{pdfHighlight(5, "gravity well", "")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	entries := ParseBody(svc.note.Body).Entries()
	require.Len(t, entries, 2)
	// pdf sorts before epub only alphabetically by kind; verify both kinds present.
	kinds := map[types.SourceKind]bool{entries[0].Kind: true, entries[1].Kind: true}
	assert.True(t, kinds[types.SourcePDF] && kinds[types.SourceEPUB])
}

func TestMerge_NoWriteForCommentEditWithoutNewIDs(t *testing.T) {
	svc := &fakeNotes{}
	_, err := Merge(context.Background(), svc, testBook, []types.Annotation{pdfHighlight(5, "gravity well", "old thought")})
	require.NoError(t, err)

	edited := pdfHighlight(5, "gravity well", "newer thought")
	res, err := Merge(context.Background(), svc, testBook, []types.Annotation{edited})
	require.NoError(t, err)

	// Same stable id, no new annotations: the repeat sync is a no-op.
	assert.False(t, res.Written)
	assert.Contains(t, svc.note.Body, "old thought")
}

func TestMerge_DuplicateExtractionCollapses(t *testing.T) {
	svc := &fakeNotes{}
	a := pdfHighlight(5, "gravity well", "")
	res, err := Merge(context.Background(), svc, testBook, []types.Annotation{a, a})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, ParseBody(svc.note.Body).Entries(), 1)
}

func TestRenderAnnotation(t *testing.T) {
	a := pdfHighlight(5, "gravity  well\nbends light", "see   also ch. 3")
	got := renderAnnotation(a)
	want := "**p. 5** (Highlight)\n\n> gravity well bends light\n\nsee also ch. 3"
	assert.Equal(t, want, got)
}
