// Package token provides deterministic token counting for prompt and
// completion text.
//
// Counts are heuristic estimates (a characters-per-token ratio tuned per
// model family), not exact tokenizer output. They are pure functions of
// (text, model): identical inputs always produce identical counts, which
// is what the accounting layer needs for reproducible cost records.
package token

import "strings"

// Profile describes how a model family maps text length to tokens.
type Profile struct {
	Name string
	// CharsPerToken is the average characters consumed per token.
	CharsPerToken int
	// Overhead is a fixed per-call token overhead (role markers, separators).
	Overhead int
}

// DefaultProfile is used for models with no registered profile.
// Roughly one token per four characters.
var DefaultProfile = Profile{Name: "default", CharsPerToken: 4, Overhead: 3}

// profiles maps model name prefixes to tokenizer profiles. Longest prefix
// wins. Chat and embedding families share the same encoding but embeddings
// carry no message framing overhead.
var profiles = []struct {
	prefix  string
	profile Profile
}{
	{"gpt-4", Profile{Name: "cl100k-chat", CharsPerToken: 4, Overhead: 3}},
	{"gpt-3.5", Profile{Name: "cl100k-chat", CharsPerToken: 4, Overhead: 3}},
	{"text-embedding-", Profile{Name: "cl100k-embed", CharsPerToken: 4, Overhead: 0}},
}

// ProfileFor returns the tokenizer profile for a model and whether the
// model was recognized. Unknown models get DefaultProfile and false.
func ProfileFor(model string) (Profile, bool) {
	best := -1
	bestLen := 0
	for i, p := range profiles {
		if strings.HasPrefix(model, p.prefix) && len(p.prefix) > bestLen {
			best = i
			bestLen = len(p.prefix)
		}
	}
	if best < 0 {
		return DefaultProfile, false
	}
	return profiles[best].profile, true
}

// Count returns the estimated token count for text under the given model.
// Empty text counts as zero. Never returns a negative count and never
// fails: unknown models fall back to DefaultProfile.
func Count(text, model string) int {
	n, _ := CountApprox(text, model)
	return n
}

// CountApprox is Count plus a flag reporting whether the estimate came
// from the fallback profile (true when the model is unrecognized).
func CountApprox(text, model string) (int, bool) {
	p, known := ProfileFor(model)
	if text == "" {
		return 0, !known
	}
	runes := len([]rune(text))
	n := p.Overhead + (runes+p.CharsPerToken-1)/p.CharsPerToken
	return n, !known
}
