// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dlm/internal/sorter"
	"github.com/pdiddy/dlm/pkg/types"
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "File inbox books into the library's Dewey folders",
	Long: `Sort scans the inbox for unfiled PDF and EPUB files, looks each one up
on Open Library for its Dewey classification, and moves classified books
into the matching library folder per sorting_config.json. Unclassified
books stay in the inbox.`,
	RunE: runSort,
}

func init() {
	sortCmd.Flags().String("inbox", "", "inbox directory relative to the library root (default _Inbox)")
	sortCmd.Flags().Duration("delay", 0, "pause between Open Library lookups (default 1s)")

	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	root := libraryRoot(cmd)

	rules, err := sorter.LoadRules(root)
	if err != nil {
		return err
	}

	cfg := types.SortConfig{
		InboxDir:    viper.GetString("sort.inbox_dir"),
		LookupDelay: viper.GetDuration("sort.lookup_delay"),
	}
	cfg.Timeout = viper.GetDuration("sort.timeout")
	cfg.UserAgent = defaultUserAgent
	if email := secretDefault("openlibrary-email", ""); email != "" {
		cfg.UserAgent = fmt.Sprintf("%s (%s)", defaultUserAgent, email)
	}
	if d, _ := cmd.Flags().GetString("inbox"); d != "" {
		cfg.InboxDir = d
	}
	if d, _ := cmd.Flags().GetDuration("delay"); d > 0 {
		cfg.LookupDelay = d
	}

	result, err := sorter.SortInbox(context.Background(), cfg, root, rules, sorter.NewLookup(cfg), os.Stdout)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d book(s) failed to sort", result.Failed)
	}
	return nil
}
