// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package joplin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dlm/internal/httputil"
	"github.com/pdiddy/dlm/internal/merge"
	"github.com/pdiddy/dlm/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

// fakeJoplin is a minimal in-memory Joplin Data API.
type fakeJoplin struct {
	notes   map[string]*types.RemoteNote // id → note
	folders map[string]string            // id → title
	token   string

	searchCalls  int32
	createCalls  int32
	updateCalls  int32
	failuresLeft int32 // respond 503 this many times before behaving
}

func newFakeJoplin() *fakeJoplin {
	return &fakeJoplin{
		notes:   map[string]*types.RemoteNote{},
		folders: map[string]string{},
		token:   "tok-1",
	}
}

func (f *fakeJoplin) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.searchCalls, 1)
		if !f.authorized(w, r) {
			return
		}
		if atomic.AddInt32(&f.failuresLeft, -1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		query := r.URL.Query().Get("query")
		title := strings.TrimSuffix(strings.TrimPrefix(query, `title:"`), `"`)
		items := []map[string]string{}
		for id, n := range f.notes {
			if strings.Contains(n.Title, title) {
				items = append(items, map[string]string{"id": id, "title": n.Title})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items, "has_more": false})
	})

	mux.HandleFunc("/folders", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		if r.Method == http.MethodPost {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			id := fmt.Sprintf("folder-%d", len(f.folders)+1)
			f.folders[id] = body["title"]
			json.NewEncoder(w).Encode(map[string]string{"id": id, "title": body["title"]})
			return
		}
		items := []map[string]string{}
		for id, title := range f.folders {
			items = append(items, map[string]string{"id": id, "title": title})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items, "has_more": false})
	})

	mux.HandleFunc("/notes", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		atomic.AddInt32(&f.createCalls, 1)
		var body struct {
			ParentID string `json:"parent_id"`
			Title    string `json:"title"`
			Body     string `json:"body"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		id := fmt.Sprintf("note-%d", len(f.notes)+1)
		f.notes[id] = &types.RemoteNote{ID: id, Title: body.Title, Body: body.Body}
		json.NewEncoder(w).Encode(map[string]string{"id": id, "title": body.Title})
	})

	mux.HandleFunc("/notes/", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/notes/")
		note, ok := f.notes[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPut {
			atomic.AddInt32(&f.updateCalls, 1)
			var body struct {
				Body string `json:"body"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			note.Body = body.Body
			json.NewEncoder(w).Encode(map[string]string{"id": id})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": id, "body": note.Body})
	})

	return mux
}

func (f *fakeJoplin) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("token") != f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func testClient(t *testing.T, f *fakeJoplin, token string) *Client {
	t.Helper()
	ts := httptest.NewServer(f.handler())
	t.Cleanup(ts.Close)
	return New(types.JoplinConfig{
		APIURL:   ts.URL,
		Token:    token,
		Notebook: "Digital Library Notes",
	})
}

var testBook = types.Book{
	Title:    "Gravitation",
	Author:   "Misner, Charles",
	DDC:      "530.1",
	FilePath: "500_Science/gravitation.pdf",
}

func TestFindOrCreate_CreatesNoteAndNotebook(t *testing.T) {
	f := newFakeJoplin()
	c := testClient(t, f, "tok-1")

	note, err := c.FindOrCreate(context.Background(), testBook)
	require.NoError(t, err)

	assert.NotEmpty(t, note.ID)
	assert.Equal(t, "Gravitation", note.Title)
	assert.Contains(t, note.Body, "**Author:** Misner, Charles")
	assert.Contains(t, note.Body, "**DDC:** 530.1")
	assert.Contains(t, note.Body, merge.BeginMarker)
	assert.Contains(t, note.Body, merge.EndMarker)

	// The notebook was created on demand.
	require.Len(t, f.folders, 1)
	for _, title := range f.folders {
		assert.Equal(t, "Digital Library Notes", title)
	}
}

func TestFindOrCreate_ReturnsExistingNote(t *testing.T) {
	f := newFakeJoplin()
	f.notes["note-7"] = &types.RemoteNote{ID: "note-7", Title: "Gravitation", Body: "existing body"}
	c := testClient(t, f, "tok-1")

	note, err := c.FindOrCreate(context.Background(), testBook)
	require.NoError(t, err)
	assert.Equal(t, "note-7", note.ID)
	assert.Equal(t, "existing body", note.Body)
	assert.Zero(t, atomic.LoadInt32(&f.createCalls))
}

func TestFindOrCreate_IgnoresPartialTitleMatches(t *testing.T) {
	f := newFakeJoplin()
	f.notes["note-8"] = &types.RemoteNote{ID: "note-8", Title: "Gravitation and Cosmology", Body: "other book"}
	c := testClient(t, f, "tok-1")

	note, err := c.FindOrCreate(context.Background(), testBook)
	require.NoError(t, err)
	assert.NotEqual(t, "note-8", note.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.createCalls))
	_ = note
}

func TestFindOrCreate_DuplicateTitlesConflict(t *testing.T) {
	f := newFakeJoplin()
	f.notes["note-1"] = &types.RemoteNote{ID: "note-1", Title: "Gravitation"}
	f.notes["note-2"] = &types.RemoteNote{ID: "note-2", Title: "Gravitation"}
	c := testClient(t, f, "tok-1")

	_, err := c.FindOrCreate(context.Background(), testBook)
	assert.ErrorIs(t, err, ErrDuplicateNote)
}

func TestFindOrCreate_AuthRejected(t *testing.T) {
	f := newFakeJoplin()
	c := testClient(t, f, "wrong-token")

	_, err := c.FindOrCreate(context.Background(), testBook)
	assert.ErrorIs(t, err, ErrAuth)
	// Auth failures are not retried.
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.searchCalls))
}

func TestFindOrCreate_RetriesTransientFailure(t *testing.T) {
	f := newFakeJoplin()
	f.failuresLeft = 2
	f.notes["note-7"] = &types.RemoteNote{ID: "note-7", Title: "Gravitation", Body: "existing body"}
	c := testClient(t, f, "tok-1")

	note, err := c.FindOrCreate(context.Background(), testBook)
	require.NoError(t, err)
	assert.Equal(t, "note-7", note.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.searchCalls))
}

func TestFindOrCreate_UnavailableAfterRetries(t *testing.T) {
	f := newFakeJoplin()
	f.failuresLeft = 100
	c := testClient(t, f, "tok-1")

	_, err := c.FindOrCreate(context.Background(), testBook)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUpdateBody(t *testing.T) {
	f := newFakeJoplin()
	f.notes["note-7"] = &types.RemoteNote{ID: "note-7", Title: "Gravitation", Body: "old"}
	c := testClient(t, f, "tok-1")

	err := c.UpdateBody(context.Background(), "note-7", "new body")
	require.NoError(t, err)
	assert.Equal(t, "new body", f.notes["note-7"].Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.updateCalls))
}

func TestUpdateBody_NoteDeletedRemotely(t *testing.T) {
	f := newFakeJoplin()
	c := testClient(t, f, "tok-1")

	err := c.UpdateBody(context.Background(), "gone", "body")
	assert.ErrorIs(t, err, ErrNotFound)
}
