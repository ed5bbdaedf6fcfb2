// Package usage turns token counts and pricing rates into cost records
// and per-session running totals.
package usage

import (
	"github.com/theirongolddev/promptroute/internal/pricing"
)

// PricingSourceUnpriced marks records for models absent from the active
// pricing table. The turn still completes; cost is recorded as zero.
const PricingSourceUnpriced = "unpriced"

// Record is the immutable cost accounting for one completed turn.
type Record struct {
	Model         string
	InputTokens   int
	OutputTokens  int
	InputCost     float64
	OutputCost    float64
	TotalCost     float64
	PricingSource string
	// Approximate is set when token counts came from the fallback
	// tokenizer profile rather than a known model profile.
	Approximate bool
}

// TotalTokens returns input plus output tokens.
func (r Record) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Totals is the monotone per-session accumulator. Reset only when the
// owning session resets.
type Totals struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64
	Requests     int
}

// Account prices a call against a pricing snapshot. Rates are USD per
// 1000 tokens, applied separately to each side. A model missing from the
// table yields a zero-cost record marked unpriced rather than an error:
// pricing gaps must never fail a turn.
func Account(model string, inputTokens, outputTokens int, table *pricing.Table) Record {
	rec := Record{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}

	rate, ok := table.Lookup(model)
	if !ok {
		rec.PricingSource = PricingSourceUnpriced
		return rec
	}

	rec.InputCost = float64(inputTokens) / 1000 * rate.Input
	rec.OutputCost = float64(outputTokens) / 1000 * rate.Output
	rec.TotalCost = rec.InputCost + rec.OutputCost
	rec.PricingSource = table.Source
	return rec
}

// Accumulate folds a record into the session totals. Call exactly once
// per completed or failed-but-metered turn.
func Accumulate(t *Totals, rec Record) {
	t.InputTokens += rec.InputTokens
	t.OutputTokens += rec.OutputTokens
	t.TotalCost += rec.TotalCost
	t.Requests++
}
