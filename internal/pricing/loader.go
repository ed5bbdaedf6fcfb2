package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Method selects a refresh strategy.
type Method string

const (
	MethodAuto        Method = "auto"
	MethodGitHub      Method = "github"
	MethodWebScrape   Method = "web_scrape"
	MethodExternalAPI Method = "external_api"
	MethodManual      Method = "manual"
)

// autoOrder is the fixed order MethodAuto tries strategies in.
// First success wins.
var autoOrder = []Method{MethodGitHub, MethodExternalAPI, MethodWebScrape}

// Info is a read-only snapshot of the active table's provenance.
type Info struct {
	Source           string
	LastUpdated      time.Time
	ModelCount       int
	ConfigFileExists bool
}

// Loader resolves the active pricing table from a JSON config file,
// falling back to the built-in table when the file is missing or broken.
// The active snapshot is swapped atomically; a reader holding the old
// snapshot keeps a fully valid table.
type Loader struct {
	path    string
	active  atomic.Pointer[Table]
	fetcher *Fetcher
}

// NewLoader creates a loader for the pricing config at path and activates
// the result of an initial Load. Never fails: a missing or malformed file
// activates the fallback table.
func NewLoader(path string) *Loader {
	l := &Loader{path: path, fetcher: NewFetcher()}
	l.active.Store(l.Load())
	return l
}

// Path returns the pricing config file path.
func (l *Loader) Path() string { return l.path }

// Active returns the current pricing snapshot. The returned table is
// immutable; it stays valid even if a refresh swaps in a newer one.
func (l *Loader) Active() *Table {
	return l.active.Load()
}

// Load reads and parses the pricing config file. Any failure, including a
// file with no usable model entries, returns the fallback table. Load
// never returns nil and never returns an error: availability is the whole
// point of this path.
func (l *Loader) Load() *Table {
	t, err := l.loadFile()
	if err != nil {
		return Fallback()
	}
	return t
}

// loadFile reads the config file strictly, erroring on a missing file,
// parse failure, or a table with no usable entries.
func (l *Loader) loadFile() (*Table, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing config: %w", err)
	}
	t, err := parseConfig(data)
	if err != nil {
		return nil, err
	}
	if !t.valid(false) {
		return nil, fmt.Errorf("pricing config %s has no usable model entries", l.path)
	}
	return t, nil
}

// Refresh re-resolves the pricing table using the given method and, only
// if the result is valid, atomically swaps the active snapshot. Returns
// whether the swap happened. A failed refresh leaves the previous table
// untouched and in service.
func (l *Loader) Refresh(ctx context.Context, method Method) bool {
	switch method {
	case MethodManual, "":
		// Re-read the config file the operator edited. Swap only when the
		// file actually parsed; anything else would clobber a working table
		// over a typo in the config.
		t, err := l.loadFile()
		if err != nil {
			return false
		}
		if t.Source == SourceConfigFile {
			t.Source = SourceManual
		}
		l.active.Store(t)
		return true

	case MethodAuto:
		for _, m := range autoOrder {
			if l.refreshRemote(ctx, m) {
				return true
			}
		}
		return false

	case MethodGitHub, MethodWebScrape, MethodExternalAPI:
		return l.refreshRemote(ctx, method)

	default:
		return false
	}
}

// refreshRemote fetches from one remote strategy, validates, persists the
// result to the config file, and swaps the active snapshot.
func (l *Loader) refreshRemote(ctx context.Context, method Method) bool {
	t, err := l.fetcher.Fetch(ctx, method)
	if err != nil || !t.valid(true) {
		return false
	}
	t.LastUpdated = time.Now().UTC()
	// Best effort: the new snapshot serves even if the write fails.
	_ = l.save(t)
	l.active.Store(t)
	return true
}

// Info returns provenance for the active table. It never reloads.
func (l *Loader) Info() Info {
	t := l.Active()
	_, statErr := os.Stat(l.path)
	return Info{
		Source:           t.Source,
		LastUpdated:      t.LastUpdated,
		ModelCount:       t.Len(),
		ConfigFileExists: statErr == nil,
	}
}

// configFile is the on-disk JSON shape: model entries mixed with optional
// top-level metadata fields (last_updated, source, note).
type rawRate struct {
	Input  *float64 `json:"input"`
	Output *float64 `json:"output"`
}

func parseConfig(data []byte) (*Table, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing pricing config: %w", err)
	}

	t := &Table{Models: make(map[string]Rate), Source: SourceConfigFile}
	for key, val := range raw {
		switch key {
		case "last_updated":
			var s string
			if json.Unmarshal(val, &s) == nil {
				if ts, err := time.Parse(time.RFC3339, s); err == nil {
					t.LastUpdated = ts
				} else if ts, err := time.Parse("2006-01-02", s); err == nil {
					t.LastUpdated = ts
				}
			}
			continue
		case "source":
			var s string
			if json.Unmarshal(val, &s) == nil && s != "" {
				t.Source = s
			}
			continue
		case "note":
			var s string
			if json.Unmarshal(val, &s) == nil {
				t.Note = s
			}
			continue
		}

		// Model entry: both input and output are required.
		var r rawRate
		if err := json.Unmarshal(val, &r); err != nil {
			continue
		}
		if r.Input == nil || r.Output == nil {
			continue
		}
		t.Models[key] = Rate{Input: *r.Input, Output: *r.Output}
	}
	return t, nil
}

// save writes a table back to the config file in the same JSON shape
// parseConfig reads.
func (l *Loader) save(t *Table) error {
	out := make(map[string]any, len(t.Models)+3)
	for model, r := range t.Models {
		out[model] = r
	}
	out["source"] = t.Source
	if !t.LastUpdated.IsZero() {
		out["last_updated"] = t.LastUpdated.Format(time.RFC3339)
	}
	if t.Note != "" {
		out["note"] = t.Note
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding pricing config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating pricing config dir: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing pricing config: %w", err)
	}
	return nil
}
