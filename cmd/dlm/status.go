// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dlm/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync for each book",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := state.Load(libraryRoot(cmd))
		titles := cache.Titles()
		if len(titles) == 0 {
			fmt.Println("No books synced yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE\tANNOTATIONS\tLAST SYNCED\tNOTE")
		for _, title := range titles {
			e, _ := cache.Get(title)
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				title, e.Annotations, e.LastSynced.Local().Format("2006-01-02 15:04"), e.NoteID)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
