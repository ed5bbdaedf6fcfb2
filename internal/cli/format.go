// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/promptroute/internal/usage"
)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M", 1234567890 -> "1.2B"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a USD cost value. Per-turn costs run well under a
// cent, so small values keep four decimal places.
func FormatCost(cost float64) string {
	if cost >= 100 {
		return fmt.Sprintf("$%.0f", cost)
	}
	if cost >= 1 {
		return fmt.Sprintf("$%.2f", cost)
	}
	return fmt.Sprintf("$%.4f", cost)
}

// FormatUsageLine renders a single-turn usage summary, e.g.
// "182 tokens (gpt-3.5-turbo) • $0.0003 (~estimated)".
func FormatUsageLine(rec usage.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s tokens (%s) • %s",
		FormatNumber(int64(rec.TotalTokens())), rec.Model, FormatCost(rec.TotalCost))
	if rec.Approximate {
		b.WriteString(" (~estimated)")
	}
	return b.String()
}

// FormatTotalsLine renders a session-level usage summary.
func FormatTotalsLine(t usage.Totals) string {
	return fmt.Sprintf("%s requests • %s in / %s out • %s",
		FormatNumber(int64(t.Requests)),
		FormatTokens(int64(t.InputTokens)), FormatTokens(int64(t.OutputTokens)),
		FormatCost(t.TotalCost))
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
