// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"howett.net/plist"

	"github.com/pdiddy/dlm/pkg/types"
)

// Skim note types that carry selected document text. Everything else
// (anchored notes, text notes) is free-standing commentary.
var skimExcerptTypes = map[string]bool{
	"Highlight": true,
	"Underline": true,
	"StrikeOut": true,
	"Circle":    true,
	"Square":    true,
}

// SkimReader extracts PDF annotations captured in Skim. The primary source
// is the .skim property-list sidecar stored next to the PDF; when the
// sidecar is absent it falls back to asking the running Skim instance for
// the open document's notes over AppleScript. The fallback only works
// while the document is open and some note types arrive without excerpt
// text, so the sidecar always wins when both exist.
type SkimReader struct {
	libraryRoot string
	script      scriptRunner
}

// NewSkimReader builds a SkimReader using osascript for the fallback path.
func NewSkimReader(cfg types.ReaderConfig, libraryRoot string) *SkimReader {
	timeout := cfg.ScriptTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SkimReader{
		libraryRoot: libraryRoot,
		script:      &osaRunner{timeout: timeout},
	}
}

// Extract reads the sidecar for book, or the running application's notes
// when no sidecar exists.
func (r *SkimReader) Extract(ctx context.Context, book types.Book) ([]types.Annotation, Report, error) {
	var report Report

	pdfPath := bookFile(r.libraryRoot, book)
	sidecar := strings.TrimSuffix(pdfPath, ".pdf") + ".skim"

	data, err := os.ReadFile(sidecar)
	if os.IsNotExist(err) {
		return r.extractScripted(ctx, &report)
	}
	if err != nil {
		report.warnf("skim sidecar %s unreadable: %v", sidecar, err)
		return nil, report, nil
	}

	anns := parseSkimSidecar(data, &report)
	return anns, report, ctx.Err()
}

// parseSkimSidecar decodes a .skim property list: a dictionary keyed by
// page number, each value an array of note records with selected text,
// note text, and a type tag. Malformed records are skipped and counted;
// an undecodable file degrades to an empty set.
func parseSkimSidecar(data []byte, report *Report) []types.Annotation {
	var pages map[string]interface{}
	if _, err := plist.Unmarshal(data, &pages); err != nil {
		report.warnf("skim sidecar unreadable: %v", err)
		return nil
	}

	now := time.Now().UTC()
	var anns []types.Annotation

	// Walk pages in numeric order so output and warnings come out stable.
	// Non-numeric keys sort first and get skipped in the loop below.
	keys := make([]string, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, erri := strconv.Atoi(strings.TrimSpace(keys[i]))
		pj, errj := strconv.Atoi(strings.TrimSpace(keys[j]))
		if erri != nil || errj != nil {
			if (erri != nil) != (errj != nil) {
				return erri != nil
			}
			return keys[i] < keys[j]
		}
		return pi < pj
	})

	for _, key := range keys {
		page, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || page < 0 {
			report.skipf("skim sidecar: page key %q is not a page number", key)
			continue
		}

		entries, ok := pages[key].([]interface{})
		if !ok {
			report.skipf("skim sidecar: page %d entry is not a note list", page)
			continue
		}

		for i, raw := range entries {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				report.skipf("skim sidecar: page %d note %d is malformed", page, i)
				continue
			}

			excerpt := stringField(entry, "SelectedText")
			comment := stringField(entry, "Note")
			if excerpt == "" && comment == "" {
				report.skipf("skim sidecar: page %d note %d has no text", page, i)
				continue
			}

			anns = append(anns, skimAnnotation(page, excerpt, comment, stringField(entry, "Type"), now))
		}
	}
	return anns
}

// extractScripted enumerates the open document's notes via AppleScript.
// Unavailability (no macOS, Skim not running, no open document) degrades
// to an empty set with a warning.
func (r *SkimReader) extractScripted(ctx context.Context, report *Report) ([]types.Annotation, Report, error) {
	out, err := r.script.Run(ctx, skimNotesScript)
	if err != nil {
		if ctx.Err() != nil {
			return nil, *report, ctx.Err()
		}
		report.warnf("no .skim sidecar and Skim scripting unavailable: %v", err)
		return nil, *report, nil
	}

	now := time.Now().UTC()
	var anns []types.Annotation
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			report.skipf("skim script: unparseable note line %q", line)
			continue
		}
		page, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			report.skipf("skim script: bad page index in %q", line)
			continue
		}

		noteType := strings.TrimSpace(fields[1])
		text := strings.TrimSpace(fields[2])
		if text == "" {
			continue
		}

		// The scripting interface returns one text per note. Selection
		// types carry the highlighted text; anchored notes carry only
		// the comment.
		excerpt, comment := "", text
		if skimExcerptTypes[noteType] {
			excerpt, comment = text, ""
		}
		anns = append(anns, skimAnnotation(page, excerpt, comment, noteType, now))
	}
	return anns, *report, nil
}

func skimAnnotation(page int, excerpt, comment, noteType string, capturedAt time.Time) types.Annotation {
	return types.Annotation{
		Source: types.SourcePDF,
		Location: types.Location{
			Native:  strconv.Itoa(page),
			SortKey: fmt.Sprintf("%08d", page),
			Display: fmt.Sprintf("p. %d", page),
		},
		Excerpt:    excerpt,
		Comment:    comment,
		Style:      noteType,
		CapturedAt: capturedAt,
	}
}

func stringField(entry map[string]interface{}, key string) string {
	s, _ := entry[key].(string)
	return strings.TrimSpace(s)
}

// skimNotesScript asks Skim for every note of the frontmost document as
// one "pageIndex<TAB>type<TAB>text" line per note.
const skimNotesScript = `tell application "Skim"
	if (count of documents) is 0 then return ""
	set noteLines to ""
	repeat with n in notes of document 1
		set noteLines to noteLines & ((index of page of n) as string) & tab & (type of n as string) & tab & (text of n) & linefeed
	end repeat
	return noteLines
end tell`

// scriptRunner abstracts osascript execution for testing.
type scriptRunner interface {
	Run(ctx context.Context, script string) (string, error)
}

// osaRunner runs AppleScript through osascript with a bounded timeout,
// since the target application may be unresponsive.
type osaRunner struct {
	timeout time.Duration
}

func (r *osaRunner) Run(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w", err)
	}
	return string(out), nil
}
