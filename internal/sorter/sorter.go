// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sorter files inbox books into the library's DDC folder tree.
// Each unfiled book is looked up on Open Library for its Dewey code, then
// matched against the library's sorting rules (longest classification
// prefix wins). Books that cannot be classified stay in the inbox.
package sorter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/dlm/pkg/types"
)

// ErrNoMatch means the classification lookup found no record for a query.
var ErrNoMatch = errors.New("no classification match")

// RulesFile holds the library's sorting rules at the library root.
const RulesFile = "sorting_config.json"

// Rules maps Dewey prefixes to library folders. SubcategoryMap carries
// the specific prefixes ("781.65" -> "780_Music/781.65_Jazz"); DDCMap the
// broad centuries ("500" -> "500_Science").
type Rules struct {
	DDCMap         map[string]string `json:"ddc_map"`
	SubcategoryMap map[string]string `json:"subcategory_map"`
}

// LoadRules reads the sorting rules. A missing file yields empty rules.
func LoadRules(libraryRoot string) (Rules, error) {
	rules := Rules{DDCMap: map[string]string{}, SubcategoryMap: map[string]string{}}
	path := filepath.Join(libraryRoot, RulesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return rules, fmt.Errorf("reading sorting rules %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parsing sorting rules %s: %w", path, err)
	}
	if rules.DDCMap == nil {
		rules.DDCMap = map[string]string{}
	}
	if rules.SubcategoryMap == nil {
		rules.SubcategoryMap = map[string]string{}
	}
	return rules, nil
}

var (
	bracketed   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
	bookFileExt = map[string]bool{".pdf": true, ".epub": true}
)

// CleanFilename turns a book filename into a search query: extension and
// bracketed noise stripped, separators spaced out.
func CleanFilename(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stem)
	stem = bracketed.ReplaceAllString(stem, "")
	return strings.TrimSpace(spaceRuns.ReplaceAllString(stem, " "))
}

// Destination resolves a Dewey code to a library folder. Specific
// subcategory prefixes are tried longest-first before the broad century
// map; an unmatched code returns "".
func Destination(ddc string, rules Rules) string {
	ddc = strings.TrimSpace(ddc)
	if ddc == "" {
		return ""
	}

	prefixes := make([]string, 0, len(rules.SubcategoryMap))
	for p := range rules.SubcategoryMap {
		prefixes = append(prefixes, p)
	}
	// Longest prefix first so "781.65" beats "780".
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	for _, p := range prefixes {
		if strings.HasPrefix(ddc, p) {
			return rules.SubcategoryMap[p]
		}
	}

	century := centuryOf(ddc)
	if folder, ok := rules.DDCMap[century]; ok {
		return folder
	}
	return ""
}

// centuryOf reduces a Dewey code to its century key: "781.65" -> "700",
// "5" -> "500".
func centuryOf(ddc string) string {
	intPart := ddc
	if i := strings.IndexByte(intPart, '.'); i >= 0 {
		intPart = intPart[:i]
	}
	if intPart == "" || intPart[0] < '0' || intPart[0] > '9' {
		return ""
	}
	return string(intPart[0]) + "00"
}

// Result summarizes one inbox sorting run.
type Result struct {
	Moved   int
	Skipped int
	Failed  int
}

// SortInbox classifies every book file in the inbox and moves the ones
// that resolve to a known folder. Lookup failures and unknown codes skip
// the file with a warning; the run keeps going.
func SortInbox(ctx context.Context, cfg types.SortConfig, libraryRoot string, rules Rules, lookup *Lookup, w io.Writer) (Result, error) {
	inboxDir := cfg.InboxDir
	if inboxDir == "" {
		inboxDir = "_Inbox"
	}
	inbox := filepath.Join(libraryRoot, inboxDir)

	entries, err := os.ReadDir(inbox)
	if err != nil {
		return Result{}, fmt.Errorf("reading inbox %s: %w", inbox, err)
	}

	delay := cfg.LookupDelay
	if delay <= 0 {
		delay = time.Second
	}

	var result Result
	first := true
	for _, entry := range entries {
		if entry.IsDir() || !bookFileExt[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !first {
			time.Sleep(delay)
		}
		first = false

		name := entry.Name()
		query := CleanFilename(name)
		ddc, title, err := lookup.DDC(ctx, query)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				fmt.Fprintf(w, "skipped %s: no match for %q\n", name, query)
				result.Skipped++
				continue
			}
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			result.Failed++
			continue
		}

		folder := Destination(ddc, rules)
		if folder == "" {
			fmt.Fprintf(w, "skipped %s: no folder for DDC %q\n", name, ddc)
			result.Skipped++
			continue
		}

		destDir := filepath.Join(libraryRoot, folder)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			result.Failed++
			continue
		}
		if err := os.Rename(filepath.Join(inbox, name), filepath.Join(destDir, name)); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			result.Failed++
			continue
		}
		fmt.Fprintf(w, "filed   %s -> %s (DDC %s, %q)\n", name, folder, ddc, title)
		result.Moved++
	}

	fmt.Fprintf(w, "\nmoved: %d, skipped: %d, failed: %d\n", result.Moved, result.Skipped, result.Failed)
	return result, nil
}
