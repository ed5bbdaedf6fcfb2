package pricing

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeConfig writes a pricing config JSON and returns a loader for it.
func writeConfig(t *testing.T, content string) *Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewLoader(path)
}

const validConfig = `{
  "gpt-4": {"input": 0.03, "output": 0.06},
  "gpt-3.5-turbo": {"input": 0.0015, "output": 0.002},
  "last_updated": "2025-07-28",
  "source": "manual_update",
  "note": "hand-edited"
}`

func TestLoad_ValidConfig(t *testing.T) {
	l := writeConfig(t, validConfig)
	tbl := l.Active()

	if tbl.Source != "manual_update" {
		t.Errorf("Source = %q, want manual_update", tbl.Source)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d, want 2 (metadata fields must not count as models)", tbl.Len())
	}
	r, ok := tbl.Lookup("gpt-4")
	if !ok || r.Input != 0.03 || r.Output != 0.06 {
		t.Errorf("Lookup(gpt-4) = %+v, %v", r, ok)
	}
	if tbl.LastUpdated.IsZero() {
		t.Error("LastUpdated not parsed from date-only string")
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.json"))
	tbl := l.Active()

	if tbl.Source != SourceFallback {
		t.Fatalf("Source = %q, want %q", tbl.Source, SourceFallback)
	}
	// The historically-default models must be present in the fallback.
	for _, m := range []string{"gpt-3.5-turbo", "gpt-4"} {
		if _, ok := tbl.Lookup(m); !ok {
			t.Errorf("fallback table missing %s", m)
		}
	}
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	l := writeConfig(t, `{not json`)
	if got := l.Active().Source; got != SourceFallback {
		t.Errorf("Source = %q, want %q", got, SourceFallback)
	}
}

func TestLoad_EntriesMissingRequiredFieldsSkipped(t *testing.T) {
	l := writeConfig(t, `{
	  "good": {"input": 0.1, "output": 0.2},
	  "no-output": {"input": 0.1},
	  "wrong-shape": "cheap"
	}`)
	tbl := l.Active()
	if tbl.Len() != 1 {
		t.Errorf("Len = %d, want 1", tbl.Len())
	}
	if _, ok := tbl.Lookup("no-output"); ok {
		t.Error("entry without output rate should be skipped")
	}
}

func TestRefresh_ManualIdempotent(t *testing.T) {
	l := writeConfig(t, validConfig)
	ctx := context.Background()

	if !l.Refresh(ctx, MethodManual) {
		t.Fatal("first manual refresh returned false for a valid config")
	}
	first := l.Active()

	if !l.Refresh(ctx, MethodManual) {
		t.Fatal("second manual refresh returned false for an unchanged config")
	}
	second := l.Active()

	if !reflect.DeepEqual(first.Models, second.Models) {
		t.Error("refresh on unchanged source produced different model rates")
	}
	if first.Source != second.Source {
		t.Errorf("sources differ across idempotent refresh: %q vs %q", first.Source, second.Source)
	}
}

func TestRefresh_ManualFailureKeepsActiveTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := os.WriteFile(path, []byte(validConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(path)
	before := l.Active()

	// Corrupt the file, then attempt a refresh.
	if err := os.WriteFile(path, []byte(`broken{`), 0o644); err != nil {
		t.Fatal(err)
	}
	if l.Refresh(context.Background(), MethodManual) {
		t.Fatal("refresh of a corrupt config should return false")
	}
	if l.Active() != before {
		t.Error("failed refresh must leave the previous snapshot in service")
	}
}

func TestInfo_NoReloadSideEffect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	l := NewLoader(path) // no file: fallback active

	info := l.Info()
	if info.Source != SourceFallback {
		t.Errorf("Info.Source = %q, want %q", info.Source, SourceFallback)
	}
	if info.ConfigFileExists {
		t.Error("ConfigFileExists should be false for a missing file")
	}

	// Creating the file after the fact must not change the active table
	// until an explicit refresh.
	if err := os.WriteFile(path, []byte(validConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	if l.Active().Source != SourceFallback {
		t.Error("Info or Active reloaded the table as a side effect")
	}
	info = l.Info()
	if !info.ConfigFileExists {
		t.Error("ConfigFileExists should report the file on disk")
	}
	if info.Source != SourceFallback {
		t.Error("Info must describe the active snapshot, not the file")
	}
}

func TestLookup_DateSuffixNormalization(t *testing.T) {
	tbl := &Table{Models: map[string]Rate{"gpt-4o": {Input: 0.005, Output: 0.015}}}

	if _, ok := tbl.Lookup("gpt-4o-2024-08-06"); !ok {
		t.Error("dated model name should normalize to its base entry")
	}
	if _, ok := tbl.Lookup("gpt-4o-mini"); ok {
		t.Error("non-numeric suffix must not normalize away")
	}
}
