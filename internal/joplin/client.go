// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package joplin is the remote note client: it locates, creates, and
// updates the per-book notes through the Joplin Data API (the Web Clipper
// service). It is the only network-facing component of the sync path.
package joplin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/dlm/internal/httputil"
	"github.com/pdiddy/dlm/internal/merge"
	"github.com/pdiddy/dlm/pkg/types"
)

const (
	defaultAPIURL   = "http://localhost:41184"
	defaultNotebook = "Digital Library Notes"
	defaultTimeout  = 15 * time.Second
)

// Client talks to one Joplin instance. Notes live in a single notebook,
// resolved by name (and created if missing) on first use.
type Client struct {
	apiURL     string
	token      string
	notebook   string
	userAgent  string
	maxRetries int
	http       *http.Client

	notebookID string // cached after first resolution
}

// New builds a Client from config, applying defaults for anything unset.
func New(cfg types.JoplinConfig) *Client {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	notebook := cfg.Notebook
	if notebook == "" {
		notebook = defaultNotebook
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiURL:     apiURL,
		token:      cfg.Token,
		notebook:   notebook,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		http:       &http.Client{Timeout: timeout},
	}
}

// FindOrCreate returns the note titled after the book, creating an empty
// note (metadata header plus empty managed block) in the configured
// notebook when none exists. More than one note with the title is a
// conflict the user must resolve.
func (c *Client) FindOrCreate(ctx context.Context, book types.Book) (types.RemoteNote, error) {
	matches, err := c.findNotesByTitle(ctx, book.Title)
	if err != nil {
		return types.RemoteNote{}, fmt.Errorf("searching notes for %q: %w", book.Title, err)
	}

	switch len(matches) {
	case 0:
		return c.createNote(ctx, book)
	case 1:
		body, err := c.noteBody(ctx, matches[0].ID)
		if err != nil {
			return types.RemoteNote{}, fmt.Errorf("fetching note body for %q: %w", book.Title, err)
		}
		return types.RemoteNote{ID: matches[0].ID, Title: matches[0].Title, Body: body}, nil
	default:
		return types.RemoteNote{}, fmt.Errorf("%w: %q has %d notes", ErrDuplicateNote, book.Title, len(matches))
	}
}

// UpdateBody replaces the note body, keeping the markup language pinned to
// Markdown.
func (c *Client) UpdateBody(ctx context.Context, noteID, body string) error {
	payload := map[string]any{"body": body, "markup_language": 1}
	resp, err := c.do(ctx, http.MethodPut, "/notes/"+noteID, nil, payload)
	if err != nil {
		return fmt.Errorf("updating note %s: %w", noteID, err)
	}
	drain(resp)
	return nil
}

// --- note lookup and creation ---

type noteItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type pagedItems struct {
	Items   []noteItem `json:"items"`
	HasMore bool       `json:"has_more"`
}

// findNotesByTitle searches notes by title and keeps only exact matches,
// since the search endpoint also returns partial hits.
func (c *Client) findNotesByTitle(ctx context.Context, title string) ([]noteItem, error) {
	var matches []noteItem
	for page := 1; ; page++ {
		q := url.Values{
			"query":  {fmt.Sprintf("title:%q", title)},
			"type":   {"note"},
			"fields": {"id,title"},
			"page":   {strconv.Itoa(page)},
		}
		resp, err := c.do(ctx, http.MethodGet, "/search", q, nil)
		if err != nil {
			return nil, err
		}
		var pg pagedItems
		if err := decode(resp, &pg); err != nil {
			return nil, err
		}
		for _, item := range pg.Items {
			if item.Title == title {
				matches = append(matches, item)
			}
		}
		if !pg.HasMore {
			return matches, nil
		}
	}
}

func (c *Client) noteBody(ctx context.Context, noteID string) (string, error) {
	q := url.Values{"fields": {"body"}}
	resp, err := c.do(ctx, http.MethodGet, "/notes/"+noteID, q, nil)
	if err != nil {
		return "", err
	}
	var note struct {
		Body string `json:"body"`
	}
	if err := decode(resp, &note); err != nil {
		return "", err
	}
	return note.Body, nil
}

func (c *Client) createNote(ctx context.Context, book types.Book) (types.RemoteNote, error) {
	notebookID, err := c.notebookIDForName(ctx)
	if err != nil {
		return types.RemoteNote{}, fmt.Errorf("resolving notebook %q: %w", c.notebook, err)
	}

	body := initialBody(book)
	payload := map[string]any{
		"parent_id":       notebookID,
		"title":           book.Title,
		"body":            body,
		"markup_language": 1,
	}
	resp, err := c.do(ctx, http.MethodPost, "/notes", nil, payload)
	if err != nil {
		return types.RemoteNote{}, fmt.Errorf("creating note for %q: %w", book.Title, err)
	}
	var created noteItem
	if err := decode(resp, &created); err != nil {
		return types.RemoteNote{}, err
	}
	return types.RemoteNote{ID: created.ID, Title: book.Title, Body: body}, nil
}

// initialBody is a fresh note: a metadata header from the catalog entry
// and an empty managed block ready for the first merge.
func initialBody(book types.Book) string {
	var sb bytes.Buffer
	if book.Author != "" {
		fmt.Fprintf(&sb, "**Author:** %s\n", book.Author)
	}
	if book.DDC != "" {
		fmt.Fprintf(&sb, "**DDC:** %s\n", book.DDC)
	}
	if book.FilePath != "" {
		fmt.Fprintf(&sb, "**File:** %s\n", book.FilePath)
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(merge.EmptyBlock())
	return sb.String()
}

// notebookIDForName resolves the configured notebook by name, walking the
// paged folder list and creating the notebook when absent. The id is
// cached for the life of the client.
func (c *Client) notebookIDForName(ctx context.Context) (string, error) {
	if c.notebookID != "" {
		return c.notebookID, nil
	}

	for page := 1; ; page++ {
		q := url.Values{"page": {strconv.Itoa(page)}}
		resp, err := c.do(ctx, http.MethodGet, "/folders", q, nil)
		if err != nil {
			return "", err
		}
		var pg pagedItems
		if err := decode(resp, &pg); err != nil {
			return "", err
		}
		for _, folder := range pg.Items {
			if folder.Title == c.notebook {
				c.notebookID = folder.ID
				return folder.ID, nil
			}
		}
		if !pg.HasMore {
			break
		}
	}

	resp, err := c.do(ctx, http.MethodPost, "/folders", nil, map[string]any{"title": c.notebook})
	if err != nil {
		return "", err
	}
	var created noteItem
	if err := decode(resp, &created); err != nil {
		return "", err
	}
	c.notebookID = created.ID
	return created.ID, nil
}

// --- transport ---

// do performs one API call with the token attached, mapping failures onto
// the package's error taxonomy. Transient failures are retried with
// bounded backoff before being reported as ErrUnavailable.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*http.Response, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("token", c.token)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path+"?"+query.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		drain(resp)
		return nil, ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		drain(resp)
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
	return resp, nil
}

func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
