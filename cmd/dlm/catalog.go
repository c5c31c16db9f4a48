// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dlm/internal/catalog"
	"github.com/pdiddy/dlm/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the library catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every book in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		books, err := catalog.Load(libraryRoot(cmd))
		if err != nil {
			return err
		}
		printBooks(books)
		return nil
	},
}

var catalogFindCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Find books by title or author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		books, err := catalog.Load(libraryRoot(cmd))
		if err != nil {
			return err
		}
		matches := catalog.Find(books, args[0])
		if len(matches) == 0 {
			fmt.Printf("No books match %q.\n", args[0])
			return nil
		}
		printBooks(matches)
		return nil
	},
}

func printBooks(books []types.Book) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tDDC\tTYPE")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.DDC, b.FileType)
	}
	w.Flush()
	fmt.Printf("\n%d books\n", len(books))
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogFindCmd)
	rootCmd.AddCommand(catalogCmd)
}
