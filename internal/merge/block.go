// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/dlm/pkg/types"
)

// The managed annotation block is delimited by HTML comments, invisible
// in rendered Markdown. Everything between the markers is engine-owned
// and fully regenerated on each sync; everything outside is user prose
// and stays byte-identical.
const (
	BeginMarker = "<!-- dlm:notes:begin -->"
	EndMarker   = "<!-- dlm:notes:end -->"
)

// Each entry inside the block opens with a marker carrying the stable id,
// source kind, and sort key. The set of already-synced ids is recovered
// from these markers, so deduplication works across machines without any
// local annotation history.
var entryMarker = regexp.MustCompile(`(?m)^<!-- dlm:ann ([0-9a-f]+) (pdf|epub) (\S+) -->$`)

// Entry is one rendered annotation inside the managed block.
type Entry struct {
	ID      string
	Kind    types.SourceKind
	SortKey string

	// Text is the rendered entry body, marker line excluded.
	Text string
}

func (e Entry) marker() string {
	return fmt.Sprintf("<!-- dlm:ann %s %s %s -->", e.ID, e.Kind, e.SortKey)
}

// less orders entries by (kind, sort key, id); the id tie-break keeps
// output deterministic when two entries share a location.
func (e Entry) less(o Entry) bool {
	if e.Kind != o.Kind {
		return e.Kind < o.Kind
	}
	if e.SortKey != o.SortKey {
		return e.SortKey < o.SortKey
	}
	return e.ID < o.ID
}

// Block is a note body split around the managed annotation block.
type Block struct {
	prefix string // through the begin marker (or the whole body when absent)
	inner  string // current managed content
	suffix string // from the end marker on
	found  bool
}

// ParseBody locates the managed block in a note body. A body without
// markers parses to an empty block that WithInner appends after the
// existing content.
func ParseBody(body string) Block {
	begin := strings.Index(body, BeginMarker)
	if begin >= 0 {
		rest := begin + len(BeginMarker)
		if end := strings.Index(body[rest:], EndMarker); end >= 0 {
			return Block{
				prefix: body[:rest],
				inner:  body[rest : rest+end],
				suffix: body[rest+end:],
				found:  true,
			}
		}
	}
	return Block{prefix: body}
}

// Found reports whether the body already carries block markers.
func (b Block) Found() bool { return b.found }

// Entries parses the rendered entries out of the managed content.
// Anything inside the block that does not follow an entry marker belongs
// to the preceding entry; the engine owns the block, so stray edits are
// absorbed into entries and overwritten on the next regeneration.
func (b Block) Entries() []Entry {
	matches := entryMarker.FindAllStringSubmatchIndex(b.inner, -1)
	entries := make([]Entry, 0, len(matches))
	for i, m := range matches {
		textEnd := len(b.inner)
		if i+1 < len(matches) {
			textEnd = matches[i+1][0]
		}
		entries = append(entries, Entry{
			ID:      b.inner[m[2]:m[3]],
			Kind:    types.SourceKind(b.inner[m[4]:m[5]]),
			SortKey: b.inner[m[6]:m[7]],
			Text:    strings.TrimSpace(b.inner[m[1]:textEnd]),
		})
	}
	return entries
}

// WithInner reassembles a full note body around new managed content.
// Free regions pass through byte-identical. When the body had no markers
// yet, the block is appended after the existing content.
func (b Block) WithInner(inner string) string {
	if b.found {
		return b.prefix + inner + b.suffix
	}
	prefix := b.prefix
	switch {
	case prefix == "":
		// New note: block only.
	case strings.HasSuffix(prefix, "\n\n"):
	case strings.HasSuffix(prefix, "\n"):
		prefix += "\n"
	default:
		prefix += "\n\n"
	}
	return prefix + BeginMarker + inner + EndMarker + "\n"
}

// renderInner lays the entries out between the markers: one marker line,
// the entry body, and a blank line before the next entry. The layout is a
// pure function of the entries, so re-rendering an unchanged set
// reproduces the block byte for byte.
func renderInner(entries []Entry) string {
	if len(entries) == 0 {
		return "\n"
	}
	var sb strings.Builder
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString(e.marker())
		sb.WriteString("\n")
		sb.WriteString(e.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// EmptyBlock returns the body content of a freshly created note's managed
// region, ready to receive entries.
func EmptyBlock() string {
	return BeginMarker + "\n" + EndMarker + "\n"
}
