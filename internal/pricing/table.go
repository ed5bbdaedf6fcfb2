// Package pricing maintains the per-model token price table used for cost
// accounting. The active table is an immutable snapshot behind an atomic
// pointer: readers hold a consistent view for the whole request while a
// refresh swaps in a replacement wholesale.
package pricing

import (
	"strings"
	"time"
)

// Provenance values recorded in Table.Source.
const (
	SourceFallback    = "hardcoded_fallback"
	SourceManual      = "manual_update"
	SourceGitHub      = "github"
	SourceWebScrape   = "web_scrape"
	SourceExternalAPI = "external_api"
	SourceConfigFile  = "config_file"
)

// Rate holds USD costs per 1000 tokens for one model.
type Rate struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Table is an immutable pricing snapshot: per-model rates plus provenance.
// Never mutate a Table after publishing it; build a new one and swap.
type Table struct {
	Models      map[string]Rate
	Source      string
	LastUpdated time.Time
	Note        string
}

// Lookup returns the rate for a model. Exact match first, then the model
// name with a trailing date suffix stripped (e.g. "gpt-4o-2024-08-06").
func (t *Table) Lookup(model string) (Rate, bool) {
	if r, ok := t.Models[model]; ok {
		return r, true
	}
	if base := stripDateSuffix(model); base != model {
		if r, ok := t.Models[base]; ok {
			return r, true
		}
	}
	return Rate{}, false
}

// Len returns the number of priced models.
func (t *Table) Len() int {
	return len(t.Models)
}

// stripDateSuffix removes a trailing all-digit segment of at least four
// digits, optionally date-formatted with dashes ("-2024-08-06" or "-0125").
func stripDateSuffix(model string) string {
	parts := strings.Split(model, "-")
	// Walk back over trailing numeric segments.
	end := len(parts)
	for end > 1 && isAllDigits(parts[end-1]) {
		end--
	}
	if end == len(parts) {
		return model
	}
	tail := strings.Join(parts[end:], "")
	if len(tail) < 4 {
		return model
	}
	return strings.Join(parts[:end], "-")
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Fallback returns the built-in default table. It is the table of record
// when no pricing config is available, and the floor the loader guarantees:
// every load path that fails ends here, never in an error.
func Fallback() *Table {
	return &Table{
		Source: SourceFallback,
		Models: map[string]Rate{
			// GPT-4 family
			"gpt-4":               {Input: 0.03, Output: 0.06},
			"gpt-4-turbo":         {Input: 0.01, Output: 0.03},
			"gpt-4-turbo-preview": {Input: 0.01, Output: 0.03},
			"gpt-4o":              {Input: 0.005, Output: 0.015},
			"gpt-4o-mini":         {Input: 0.00015, Output: 0.0006},

			// GPT-3.5 family
			"gpt-3.5-turbo":          {Input: 0.0015, Output: 0.002},
			"gpt-3.5-turbo-0125":     {Input: 0.0005, Output: 0.0015},
			"gpt-3.5-turbo-instruct": {Input: 0.0015, Output: 0.002},

			// Embedding models
			"text-embedding-ada-002": {Input: 0.0001, Output: 0},
			"text-embedding-3-small": {Input: 0.00002, Output: 0},
			"text-embedding-3-large": {Input: 0.00013, Output: 0},
		},
	}
}

// requiredModels must be present in any remotely fetched table before it
// is accepted. Guards against a truncated or restructured upstream file.
var requiredModels = []string{"gpt-3.5-turbo", "gpt-4", "gpt-4-turbo"}

// valid reports whether the table has at least one well-formed entry, and
// for remote sources, all required models.
func (t *Table) valid(remote bool) bool {
	if len(t.Models) == 0 {
		return false
	}
	if !remote {
		return true
	}
	for _, m := range requiredModels {
		if _, ok := t.Models[m]; !ok {
			return false
		}
	}
	return true
}
