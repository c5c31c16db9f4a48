// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the dlm CLI, the digital library
// manager. It syncs reading annotations from Skim and Apple Books into
// Joplin notes, tracks reading progress, and files inbox books into the
// library's Dewey folder tree.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dlm/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds tokens loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value for
// key if one was loaded.
func secretDefault(key, fallback string) string {
	return secrets.Value(loadedSecrets, key, fallback)
}

// rootCmd is the base command for the dlm CLI.
var rootCmd = &cobra.Command{
	Use:   "dlm",
	Short: "Personal digital library manager",
	Long: `dlm manages a personal digital library organized as a Dewey folder tree.
It extracts highlights and notes from Skim (PDF) and Apple Books (EPUB),
merges them into per-book Joplin notes without touching prose written in
the note by hand, sorts new arrivals from the inbox, and tracks reading
progress against the catalog.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./dlm.yaml or ~/.config/dlm/config.yaml)")
	rootCmd.PersistentFlags().String("library", "", "library root directory (default: current directory)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dlm")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "dlm"))
		}
	}

	viper.SetEnvPrefix("DLM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// libraryRoot resolves the library root: the --library flag, then the
// library.root config key, then the current directory.
func libraryRoot(cmd *cobra.Command) string {
	if root, _ := cmd.Flags().GetString("library"); root != "" {
		return root
	}
	if root := viper.GetString("library.root"); root != "" {
		return root
	}
	return "."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
