package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/signalsift-ai/feedback-engine/internal/enrichment"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

func resultRow(urgency, content string) storage.Row {
	return storage.Row{
		"urgency":       urgency,
		"content":       content,
		"source":        "support",
		"customer_tier": "Pro",
	}
}

func TestSummarize_EmptyResults(t *testing.T) {
	s := NewSummarizer(observability.NopLogger(), nil)
	got := s.Summarize(context.Background(), "anything", nil)
	assert.Equal(t, NoResultsMessage, got)
}

func TestSummarize_EmptyResultsBypassesModel(t *testing.T) {
	completer := &enrichment.MockCompleter{
		Respond: func(system, user string) (string, error) {
			t.Fatal("model should not be called for an empty result set")
			return "", nil
		},
	}
	s := NewSummarizer(observability.NopLogger(), completer)
	got := s.Summarize(context.Background(), "anything", []storage.Row{})
	assert.Equal(t, NoResultsMessage, got)
}

func TestSummarize_ModelPath(t *testing.T) {
	completer := &enrichment.MockCompleter{
		Respond: func(system, user string) (string, error) {
			assert.Contains(t, user, "Query: billing issues")
			assert.Contains(t, user, "Matches: 1")
			return "Mostly billing complaints from Pro customers.", nil
		},
	}
	s := NewSummarizer(observability.NopLogger(), completer)

	got := s.Summarize(context.Background(), "billing issues", []storage.Row{
		resultRow("High", "my invoice doubled"),
	})
	assert.Equal(t, "Mostly billing complaints from Pro customers.", got)
}

func TestSummarize_ModelFaultFallsBack(t *testing.T) {
	completer := &enrichment.MockCompleter{
		Respond: func(system, user string) (string, error) {
			return "", errors.New("model offline")
		},
	}
	s := NewSummarizer(observability.NopLogger(), completer)

	got := s.Summarize(context.Background(), "billing issues", []storage.Row{
		resultRow("Critical", "my invoice doubled"),
	})
	assert.Contains(t, got, "Found 1 matching feedback items: 1 Critical, 0 High urgency.")
}

func TestSummarize_BlankModelResponseFallsBack(t *testing.T) {
	completer := &enrichment.MockCompleter{
		Respond: func(system, user string) (string, error) {
			return "   ", nil
		},
	}
	s := NewSummarizer(observability.NopLogger(), completer)

	got := s.Summarize(context.Background(), "q", []storage.Row{
		resultRow("Medium", "question about docs"),
	})
	assert.Contains(t, got, "Found 1 matching feedback items")
}

func TestFallbackSummary_Counts(t *testing.T) {
	results := []storage.Row{
		resultRow("Critical", "production outage, everything down"),
		resultRow("Critical", "another outage report"),
		resultRow("High", "invoice is wrong"),
		resultRow("Medium", "question about docs"),
	}

	got := FallbackSummary(results)
	assert.Contains(t, got, "Found 4 matching feedback items: 2 Critical, 1 High urgency.")
}

func TestFallbackSummary_TopThemes(t *testing.T) {
	results := []storage.Row{
		resultRow("Critical", "outage in eu-west"),
		resultRow("High", "another outage"),
		resultRow("Medium", "invoice is wrong"),
		resultRow("Medium", "billing page confusing"),
		resultRow("Low", "add support for custom domains please"),
	}

	got := FallbackSummary(results)
	assert.Contains(t, got, "Top themes:")
	assert.Contains(t, got, "Reliability (2)")
	assert.Contains(t, got, "Pricing & Billing (2)")
	assert.Contains(t, got, "Feature Request (1)")
}

func TestFallbackSummary_TiesBreakByFirstSeen(t *testing.T) {
	// Four themes with count 1 each; the first three seen win.
	results := []storage.Row{
		resultRow("Medium", "outage in eu-west"),
		resultRow("Medium", "invoice is wrong"),
		resultRow("Medium", "login token expired"),
		resultRow("Medium", "docs example is stale"),
	}

	got := FallbackSummary(results)
	assert.Contains(t, got, "Top themes: Reliability (1), Pricing & Billing (1), Authentication (1).")
	assert.NotContains(t, got, "Documentation")
}

func TestTopThemes_OrderedByCount(t *testing.T) {
	counts := map[string]int{"A": 1, "B": 3, "C": 2}
	order := []string{"A", "B", "C"}

	assert.Equal(t, []string{"B", "C", "A"}, topThemes(counts, order, 3))
	assert.Equal(t, []string{"B"}, topThemes(counts, order, 1))
}

func TestSummarize_DigestCapsAtTen(t *testing.T) {
	var captured string
	completer := &enrichment.MockCompleter{
		Respond: func(system, user string) (string, error) {
			captured = user
			return "summary", nil
		},
	}
	s := NewSummarizer(observability.NopLogger(), completer)

	var results []storage.Row
	for i := 0; i < 25; i++ {
		results = append(results, resultRow("Medium", fmt.Sprintf("item %d", i)))
	}
	s.Summarize(context.Background(), "q", results)

	assert.Contains(t, captured, "Matches: 25")
	assert.Contains(t, captured, "item 9")
	assert.NotContains(t, captured, "item 10")
}

func TestSummarize_DigestTruncatesOnRuneBoundary(t *testing.T) {
	var captured string
	completer := &enrichment.MockCompleter{
		Respond: func(system, user string) (string, error) {
			captured = user
			return "summary", nil
		},
	}
	s := NewSummarizer(observability.NopLogger(), completer)

	// 3-byte runes, so the digest byte cap falls mid-rune.
	results := []storage.Row{resultRow("Medium", strings.Repeat("✓", 100))}
	s.Summarize(context.Background(), "q", results)

	assert.True(t, utf8.ValidString(captured))
	assert.Contains(t, captured, "...")
}
