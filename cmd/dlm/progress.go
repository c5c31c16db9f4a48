// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dlm/internal/catalog"
	"github.com/pdiddy/dlm/pkg/types"
)

var progressCmd = &cobra.Command{
	Use:   "progress [book-id]",
	Short: "Show or record reading progress",
	Long: `Progress without arguments lists every book with recorded progress.
With a book id it shows that book's position; with --page it records a
new position and stamps today's date.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProgress,
}

func init() {
	progressCmd.Flags().Int("page", 0, "record the current page for the given book")

	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	root := libraryRoot(cmd)
	books, err := catalog.Load(root)
	if err != nil {
		return err
	}
	progress, err := catalog.LoadProgress(root)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if len(progress) == 0 {
			fmt.Println("No reading progress recorded.")
			return nil
		}
		for _, b := range books {
			if p, ok := progress[b.ID]; ok {
				fmt.Printf("%s  %-40s  p. %d  (%s)\n", b.ID, b.Title, p.Page, p.LastOpened)
			}
		}
		return nil
	}

	book, ok := catalog.ByID(books, args[0])
	if !ok {
		return fmt.Errorf("no catalog entry with id %q", args[0])
	}

	page, _ := cmd.Flags().GetInt("page")
	if page <= 0 {
		p, ok := progress[book.ID]
		if !ok {
			fmt.Printf("%s: no progress recorded\n", book.Title)
			return nil
		}
		fmt.Printf("%s: p. %d (last opened %s)\n", book.Title, p.Page, p.LastOpened)
		return nil
	}

	progress[book.ID] = types.Progress{
		Page:       page,
		LastOpened: time.Now().UTC().Format("2006-01-02"),
	}
	if err := catalog.SaveProgress(root, progress); err != nil {
		return err
	}
	fmt.Printf("%s: recorded p. %d\n", book.Title, page)
	return nil
}
