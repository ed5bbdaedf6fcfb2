package cmd

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateCell(t *testing.T) {
	if got := truncateCell("short", 40); got != "short" {
		t.Errorf("truncateCell = %q", got)
	}

	got := truncateCell(strings.Repeat("x", 80), 40)
	if len(got) != 40 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateCell = %q, want 40 chars ending ...", got)
	}

	// Multi-byte input must cut on rune boundaries, never mid-sequence.
	got = truncateCell(strings.Repeat("ü", 80), 40)
	if r := []rune(got); len(r) != 40 || !utf8.ValidString(got) {
		t.Errorf("truncateCell = %q (%d runes), want 40 valid runes", got, len(r))
	}
}
