package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/signalsift-ai/feedback-engine/internal/enrichment"
	"github.com/signalsift-ai/feedback-engine/internal/inference"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// NoResultsMessage is returned verbatim for an empty result set.
const NoResultsMessage = "No matching feedback found. Try broadening your search by removing filters or using different keywords."

const summaryDigestSize = 10

const summarySystemPrompt = `You summarize customer feedback search results for a product team. Write 2-3 sentences covering the dominant urgency, themes, and anything a product manager should act on. Plain text only, no lists.`

// Summarizer turns a result set into a short natural-language answer. The
// model path is attempted first; any fault degrades to a deterministic
// templated summary, so Summarize always returns a usable string.
type Summarizer struct {
	logger    *observability.Logger
	completer enrichment.Completer
}

// NewSummarizer creates a summarizer. A nil completer forces the template
// path.
func NewSummarizer(logger *observability.Logger, completer enrichment.Completer) *Summarizer {
	return &Summarizer{logger: logger, completer: completer}
}

// Summarize produces the answer text for a query and its results.
func (s *Summarizer) Summarize(ctx context.Context, query string, results []storage.Row) string {
	if len(results) == 0 {
		return NoResultsMessage
	}

	if s.completer != nil {
		summary, err := s.completer.Complete(ctx, summarySystemPrompt, s.digest(query, results))
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("Summary generation failed, using templated summary")
		}
	}

	return FallbackSummary(results)
}

// digest renders the top results into a compact prompt.
func (s *Summarizer) digest(query string, results []storage.Row) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n", query)
	fmt.Fprintf(&sb, "Matches: %d\n\nTop results:\n", len(results))

	n := len(results)
	if n > summaryDigestSize {
		n = summaryDigestSize
	}
	for _, row := range results[:n] {
		text := rowString(row, "summary")
		if text == "" {
			text = rowString(row, "content")
		}
		if len(text) > 200 {
			text = truncateRunes(text, 200) + "..."
		}
		fmt.Fprintf(&sb, "- [%s] (%s, %s) %s\n",
			rowString(row, "urgency"), rowString(row, "source"), rowString(row, "customer_tier"), text)
	}
	return sb.String()
}

// FallbackSummary composes the deterministic summary: Critical and High
// counts, then the three most frequent themes across all results with their
// counts, ties broken by first appearance.
func FallbackSummary(results []storage.Row) string {
	var critical, high int
	counts := make(map[string]int)
	var order []string

	for _, row := range results {
		switch rowString(row, "urgency") {
		case string(storage.UrgencyCritical):
			critical++
		case string(storage.UrgencyHigh):
			high++
		}

		theme := inference.InferTheme(rowString(row, "content"))
		if counts[theme] == 0 {
			order = append(order, theme)
		}
		counts[theme]++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching feedback items: %d Critical, %d High urgency.", len(results), critical, high)

	top := topThemes(counts, order, 3)
	if len(top) > 0 {
		sb.WriteString(" Top themes: ")
		parts := make([]string, len(top))
		for i, theme := range top {
			parts[i] = fmt.Sprintf("%s (%d)", theme, counts[theme])
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(".")
	}
	return sb.String()
}

// topThemes selects up to n themes by descending count, breaking ties by
// first-seen order.
func topThemes(counts map[string]int, order []string, n int) []string {
	selected := make([]string, 0, n)
	used := make(map[string]bool)

	for len(selected) < n && len(selected) < len(order) {
		best := ""
		for _, theme := range order {
			if used[theme] {
				continue
			}
			if best == "" || counts[theme] > counts[best] {
				best = theme
			}
		}
		if best == "" {
			break
		}
		used[best] = true
		selected = append(selected, best)
	}
	return selected
}

// truncateRunes cuts s to at most limit bytes without splitting a rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func rowString(row storage.Row, key string) string {
	if v, ok := row[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}
