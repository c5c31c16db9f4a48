// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sorter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/dlm/internal/httputil"
	"github.com/pdiddy/dlm/pkg/types"
)

// openLibraryBase is the Open Library search endpoint. Declared as a var
// so tests can substitute an httptest server.
var openLibraryBase = "https://openlibrary.org/search.json"

// Lookup queries Open Library for a book's Dewey classification.
type Lookup struct {
	client     *http.Client
	userAgent  string
	maxRetries int
}

// NewLookup builds a Lookup from the sort config.
func NewLookup(cfg types.SortConfig) *Lookup {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Lookup{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
}

type openLibraryResponse struct {
	NumFound int              `json:"numFound"`
	Docs     []openLibraryDoc `json:"docs"`
}

type openLibraryDoc struct {
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	DDC        []string `json:"ddc"`
}

// DDC searches Open Library for the query and returns the first result's
// Dewey code and title. An empty ddc means the book was found but carries
// no classification; ErrNoMatch means it was not found at all.
func (l *Lookup) DDC(ctx context.Context, query string) (ddc, title string, err error) {
	params := url.Values{
		"q":      {query},
		"fields": {"ddc,title,author_name"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openLibraryBase+"?"+params.Encode(), nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, l.client, req, l.maxRetries)
	if err != nil {
		return "", "", fmt.Errorf("Open Library request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("Open Library returned HTTP %d", resp.StatusCode)
	}

	var olr openLibraryResponse
	if err := json.NewDecoder(resp.Body).Decode(&olr); err != nil {
		return "", "", fmt.Errorf("parsing Open Library response: %w", err)
	}

	if olr.NumFound == 0 || len(olr.Docs) == 0 {
		return "", "", ErrNoMatch
	}
	doc := olr.Docs[0]
	if len(doc.DDC) > 0 {
		ddc = doc.DDC[0]
	}
	return ddc, doc.Title, nil
}
