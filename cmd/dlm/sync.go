// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dlm/internal/catalog"
	"github.com/pdiddy/dlm/internal/joplin"
	"github.com/pdiddy/dlm/internal/reader"
	"github.com/pdiddy/dlm/internal/state"
	"github.com/pdiddy/dlm/internal/sync"
	"github.com/pdiddy/dlm/pkg/types"
)

const defaultUserAgent = "dlm/0.1"

var syncCmd = &cobra.Command{
	Use:   "sync [book-id-or-title]",
	Short: "Sync a book's annotations into its Joplin note",
	Long: `Sync extracts the book's highlights and notes from its annotation source
(Skim sidecar for PDFs, the Apple Books store for EPUBs), then merges them
into the book's Joplin note. Only the managed block between the dlm markers
is rewritten; prose added to the note by hand is preserved byte for byte.
Re-running a sync with no new annotations writes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("source", "", "annotation source: pdf or epub (default: inferred from the book's file type)")
	syncCmd.Flags().String("joplin-url", "", "Joplin Web Clipper API URL (default http://localhost:41184)")
	syncCmd.Flags().String("notebook", "", "Joplin notebook for reading notes (default \"Digital Library Notes\")")
	syncCmd.Flags().String("token", "", "Joplin API token (default: .secrets/joplin-token)")
	syncCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 15s)")
	syncCmd.Flags().Duration("script-timeout", 0, "AppleScript fallback timeout (default 10s)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	root := libraryRoot(cmd)

	books, err := catalog.Load(root)
	if err != nil {
		return err
	}
	book, err := resolveBook(books, args[0])
	if err != nil {
		return err
	}

	kind, err := sourceKind(cmd, book)
	if err != nil {
		return err
	}

	readerCfg := types.ReaderConfig{
		ScriptTimeout:     viper.GetDuration("reader.script_timeout"),
		BooksLibraryDB:    viper.GetString("reader.books_library_db"),
		BooksAnnotationDB: viper.GetString("reader.books_annotation_db"),
	}
	if t, _ := cmd.Flags().GetDuration("script-timeout"); t > 0 {
		readerCfg.ScriptTimeout = t
	}
	src, err := reader.ForKind(kind, readerCfg, root)
	if err != nil {
		return err
	}

	notes := joplin.New(joplinConfig(cmd))

	result, err := sync.Run(context.Background(), book, src, notes, os.Stdout)
	if err != nil {
		return err
	}

	cache := state.Load(root)
	cache.Put(book.Title, state.Entry{
		NoteID:      result.NoteID,
		LastSynced:  time.Now().UTC(),
		Annotations: result.Total,
	})
	if err := cache.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return nil
}

// resolveBook finds a catalog entry by id first, then by title search.
// Ambiguous title matches are an error listing the candidates.
func resolveBook(books []types.Book, query string) (types.Book, error) {
	if b, ok := catalog.ByID(books, query); ok {
		return b, nil
	}
	matches := catalog.Find(books, query)
	switch len(matches) {
	case 0:
		return types.Book{}, fmt.Errorf("no catalog entry matches %q", query)
	case 1:
		return matches[0], nil
	}
	msg := fmt.Sprintf("%q matches %d books:", query, len(matches))
	for _, b := range matches {
		msg += fmt.Sprintf("\n  %s  %s (%s)", b.ID, b.Title, b.Author)
	}
	return types.Book{}, fmt.Errorf("%s", msg)
}

func sourceKind(cmd *cobra.Command, book types.Book) (types.SourceKind, error) {
	if s, _ := cmd.Flags().GetString("source"); s != "" {
		kind := types.SourceKind(s)
		if !kind.Valid() {
			return "", fmt.Errorf("unknown source %q: use pdf or epub", s)
		}
		return kind, nil
	}
	switch book.FileType {
	case ".pdf":
		return types.SourcePDF, nil
	case ".epub":
		return types.SourceEPUB, nil
	}
	return "", fmt.Errorf("cannot infer annotation source from file type %q: pass --source", book.FileType)
}

func joplinConfig(cmd *cobra.Command) types.JoplinConfig {
	cfg := types.JoplinConfig{
		APIURL:     viper.GetString("joplin.api_url"),
		Notebook:   viper.GetString("joplin.notebook"),
		MaxRetries: viper.GetInt("joplin.max_retries"),
	}
	cfg.Timeout = viper.GetDuration("joplin.timeout")
	cfg.UserAgent = defaultUserAgent

	if u, _ := cmd.Flags().GetString("joplin-url"); u != "" {
		cfg.APIURL = u
	}
	if n, _ := cmd.Flags().GetString("notebook"); n != "" {
		cfg.Notebook = n
	}
	if t, _ := cmd.Flags().GetDuration("timeout"); t > 0 {
		cfg.Timeout = t
	}

	token, _ := cmd.Flags().GetString("token")
	cfg.Token = secretDefault("joplin-token", token)
	return cfg
}
