// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"testing"
	"time"
)

func pdfAnn(page, excerpt, comment string) Annotation {
	return Annotation{
		Source:   SourcePDF,
		Location: Location{Native: page, SortKey: "0000000" + page, Display: "p. " + page},
		Excerpt:  excerpt,
		Comment:  comment,
	}
}

// --- NormalizeSpace ---

func TestNormalizeSpace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "gravity well", "gravity well"},
		{"leading and trailing", "  gravity well \t", "gravity well"},
		{"internal runs collapsed", "gravity \t\n  well", "gravity well"},
		{"case preserved", "Gravity WELL", "Gravity WELL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSpace(tt.in); got != tt.want {
				t.Errorf("NormalizeSpace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- StableID ---

func TestStableID_Deterministic(t *testing.T) {
	a := pdfAnn("5", "gravity well", "")
	first := a.StableID()
	for i := 0; i < 10; i++ {
		if got := a.StableID(); got != first {
			t.Fatalf("StableID not stable across calls: %q vs %q", got, first)
		}
	}
	if len(first) != stableIDLen {
		t.Errorf("StableID length = %d, want %d", len(first), stableIDLen)
	}
}

func TestStableID_IgnoresCapturedAtAndComment(t *testing.T) {
	a := pdfAnn("5", "gravity well", "first thought")
	a.CapturedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	b := pdfAnn("5", "gravity well", "edited on another machine")
	b.CapturedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if a.StableID() != b.StableID() {
		t.Error("editing the comment changed the stable id")
	}
}

func TestStableID_WhitespaceNormalized(t *testing.T) {
	a := pdfAnn("5", "gravity   well", "")
	b := pdfAnn("5", " gravity well\n", "")
	if a.StableID() != b.StableID() {
		t.Error("whitespace variation changed the stable id")
	}
}

func TestStableID_DistinguishesInputs(t *testing.T) {
	base := pdfAnn("5", "gravity well", "")

	otherPage := pdfAnn("6", "gravity well", "")
	if base.StableID() == otherPage.StableID() {
		t.Error("different locations produced the same stable id")
	}

	otherText := pdfAnn("5", "event horizon", "")
	if base.StableID() == otherText.StableID() {
		t.Error("different excerpts produced the same stable id")
	}

	epub := base
	epub.Source = SourceEPUB
	if base.StableID() == epub.StableID() {
		t.Error("different source kinds produced the same stable id")
	}
}

func TestStableID_FreeStandingNoteUsesComment(t *testing.T) {
	a := pdfAnn("5", "", "check the appendix")
	b := pdfAnn("5", "", "re-read this chapter")
	if a.StableID() == b.StableID() {
		t.Error("free-standing notes with different comments share an id")
	}

	// Identical free-standing notes collapse to one. Accepted limitation.
	c := pdfAnn("5", "", "check the appendix")
	if a.StableID() != c.StableID() {
		t.Error("identical free-standing notes got distinct ids")
	}
}

// --- Less ---

func TestLess_OrdersBySortKeyThenID(t *testing.T) {
	anns := []Annotation{
		pdfAnn("3", "third", ""),
		pdfAnn("1", "first", ""),
		pdfAnn("2", "second", ""),
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].Less(anns[j]) })

	got := []string{anns[0].Excerpt, anns[1].Excerpt, anns[2].Excerpt}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestLess_TieBreakIsDeterministic(t *testing.T) {
	a := pdfAnn("5", "alpha", "")
	b := pdfAnn("5", "beta", "")

	abFirst := a.Less(b)
	baFirst := b.Less(a)
	if abFirst == baFirst {
		t.Fatal("tie-break gave no total order for equal locations")
	}
	// Same answer on every evaluation.
	for i := 0; i < 5; i++ {
		if a.Less(b) != abFirst {
			t.Fatal("tie-break order changed between evaluations")
		}
	}
}
