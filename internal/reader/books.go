// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/dlm/pkg/types"
)

// Apple Books keeps annotations in a per-user SQLite store shared across
// every book it manages, separate from the books library database that
// maps titles to asset ids.
const (
	booksAnnotationGlob = "Library/Containers/com.apple.iBooksX/Data/Documents/AEAnnotation/AEAnnotation*.sqlite"
	booksLibraryGlob    = "Library/Containers/com.apple.iBooksX/Data/Documents/BKLibrary/BKLibrary-1-*.sqlite"
)

// booksStyleNames maps Apple Books' numeric highlight style to a display tag.
var booksStyleNames = map[int64]string{
	0: "underline",
	1: "green",
	2: "blue",
	3: "yellow",
	4: "pink",
	5: "purple",
}

// chapterRef pulls the bracketed chapter fragment out of an EPUB locator,
// e.g. "chapter7" from "epubcfi(/6/12[chapter7]!/4/2,/1:0,/1:52)".
var chapterRef = regexp.MustCompile(`\[([^\]\[]+)\]`)

// BooksReader extracts EPUB annotations from the Apple Books store. The
// store covers every book the application manages, so extraction filters
// by the catalog title (exact match first, substring fallback for titles
// the store decorates with subtitles).
type BooksReader struct {
	libraryDB    string
	annotationDB string
}

// NewBooksReader builds a BooksReader, discovering the store databases
// under the user's container unless the config overrides their paths.
func NewBooksReader(cfg types.ReaderConfig) *BooksReader {
	return &BooksReader{
		libraryDB:    cfg.BooksLibraryDB,
		annotationDB: cfg.BooksAnnotationDB,
	}
}

// Extract looks the book up by title in the library database and pulls its
// annotations from the annotation database, oldest first. A missing store
// or unknown title degrades to an empty set with a warning.
func (r *BooksReader) Extract(ctx context.Context, book types.Book) ([]types.Annotation, Report, error) {
	var report Report

	libPath, annPath, err := r.locate()
	if err != nil {
		report.warnf("Apple Books store unavailable: %v", err)
		return nil, report, nil
	}

	assetID, err := findAsset(ctx, libPath, book)
	if err != nil {
		if ctx.Err() != nil {
			return nil, report, ctx.Err()
		}
		report.warnf("Apple Books lookup for %q failed: %v", book.Title, err)
		return nil, report, nil
	}
	if assetID == "" {
		report.warnf("book %q not found in Apple Books library", book.Title)
		return nil, report, nil
	}

	anns, err := readAnnotations(ctx, annPath, assetID, &report)
	if err != nil {
		if ctx.Err() != nil {
			return nil, report, ctx.Err()
		}
		report.warnf("reading Apple Books annotations for %q: %v", book.Title, err)
		return nil, report, nil
	}
	return anns, report, nil
}

// locate resolves the two store databases, globbing under the home
// directory when no override is configured.
func (r *BooksReader) locate() (libPath, annPath string, err error) {
	libPath, annPath = r.libraryDB, r.annotationDB
	if libPath != "" && annPath != "" {
		return libPath, annPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("resolving home directory: %w", err)
	}
	if libPath == "" {
		libPath, err = firstGlob(filepath.Join(home, booksLibraryGlob))
		if err != nil {
			return "", "", fmt.Errorf("library database: %w", err)
		}
	}
	if annPath == "" {
		annPath, err = firstGlob(filepath.Join(home, booksAnnotationGlob))
		if err != nil {
			return "", "", fmt.Errorf("annotation database: %w", err)
		}
	}
	return libPath, annPath, nil
}

func firstGlob(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no match for %s", pattern)
	}
	return matches[0], nil
}

func openReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
}

// findAsset returns the Apple Books asset id for the book, or "" when the
// title is not in the library. Exact title match first; the store often
// appends subtitles, so fall back to a substring match, preferring rows
// whose author also matches.
func findAsset(ctx context.Context, libPath string, book types.Book) (string, error) {
	db, err := openReadOnly(libPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var assetID string
	err = db.QueryRowContext(ctx,
		`SELECT ZASSETID FROM ZBKLIBRARYASSET WHERE ZTITLE = ? LIMIT 1`,
		book.Title,
	).Scan(&assetID)
	if err == nil {
		return assetID, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT ZASSETID, IFNULL(ZAUTHOR, '') FROM ZBKLIBRARYASSET WHERE ZTITLE LIKE ?`,
		"%"+book.Title+"%",
	)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	first := ""
	for rows.Next() {
		var id, author string
		if err := rows.Scan(&id, &author); err != nil {
			return "", err
		}
		if first == "" {
			first = id
		}
		if book.Author != "" && strings.Contains(strings.ToLower(author), strings.ToLower(surname(book.Author))) {
			return id, nil
		}
	}
	return first, rows.Err()
}

// surname returns the sort-name portion of a cataloged author
// ("Knuth, Donald" -> "Knuth").
func surname(author string) string {
	if i := strings.IndexByte(author, ','); i > 0 {
		return strings.TrimSpace(author[:i])
	}
	return strings.TrimSpace(author)
}

// readAnnotations pulls the not-deleted annotations for one asset in
// modification order. The store has no page numbers, so capture order is
// the sort order and the store locator is the identity basis.
func readAnnotations(ctx context.Context, annPath, assetID string, report *Report) ([]types.Annotation, error) {
	db, err := openReadOnly(annPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT IFNULL(ZANNOTATIONLOCATION, ''),
		       IFNULL(ZANNOTATIONSELECTEDTEXT, ''),
		       IFNULL(ZANNOTATIONREPRESENTATIVETEXT, ''),
		       IFNULL(ZANNOTATIONNOTE, ''),
		       IFNULL(ZANNOTATIONSTYLE, -1)
		FROM ZAEANNOTATION
		WHERE ZANNOTATIONASSETID = ? AND ZANNOTATIONDELETED = 0
		ORDER BY ZANNOTATIONMODIFICATIONDATE`,
		assetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	var anns []types.Annotation
	seq := 0
	for rows.Next() {
		var locator, selected, representative, note string
		var style int64
		if err := rows.Scan(&locator, &selected, &representative, &note, &style); err != nil {
			report.skipf("Apple Books: unreadable annotation row: %v", err)
			continue
		}

		excerpt := strings.TrimSpace(selected)
		if excerpt == "" {
			excerpt = strings.TrimSpace(representative)
		}
		comment := strings.TrimSpace(note)
		if excerpt == "" && comment == "" {
			continue
		}

		seq++
		anns = append(anns, types.Annotation{
			Source: types.SourceEPUB,
			Location: types.Location{
				Native:  locator,
				SortKey: fmt.Sprintf("%08d", seq),
				Display: locatorDisplay(locator, seq),
			},
			Excerpt:    excerpt,
			Comment:    comment,
			Style:      styleName(style),
			CapturedAt: now,
		})
	}
	return anns, rows.Err()
}

func styleName(style int64) string {
	if name, ok := booksStyleNames[style]; ok {
		return name
	}
	return ""
}

func locatorDisplay(locator string, seq int) string {
	if m := chapterRef.FindStringSubmatch(locator); m != nil {
		return m[1]
	}
	return fmt.Sprintf("loc. %d", seq)
}
