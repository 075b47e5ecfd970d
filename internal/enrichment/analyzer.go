package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/signalsift-ai/feedback-engine/internal/inference"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// Confidence levels assigned per sub-call. The final confidence is the mean
// of the two, so a record analyzed entirely by fallbacks lands at 0.5.
const (
	confidenceFallback     = 0.5
	confidenceAIDefault    = 0.7
	confidenceThemeSuccess = 0.8
)

const (
	maxSummaryLength = 200
	maxThemes        = 3
)

const sentimentSystemPrompt = `You are a customer feedback analyst. Respond with a single JSON object:
{"sentiment": "Positive|Neutral|Negative|Frustrated", "urgency": "Critical|High|Medium|Low", "value": <1-10>, "summary": "<one sentence>", "confidence": <0.0-1.0>}
The value field rates the business value of acting on this feedback. Respond with JSON only, no prose.`

const themeSystemPrompt = `You are a customer feedback analyst. Identify the product themes in the feedback. Respond with a single JSON object:
{"themes": ["<theme>", ...]}
Choose themes from this list: %s. Respond with JSON only, no prose.`

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// Analyzer enriches feedback records with sentiment, urgency, themes, and a
// short summary. The model path and the keyword path produce the same shape;
// a model fault degrades one sub-result, never the whole analysis.
type Analyzer struct {
	logger    *observability.Logger
	completer Completer
}

// NewAnalyzer creates an analyzer. A nil completer forces the keyword path.
func NewAnalyzer(logger *observability.Logger, completer Completer) *Analyzer {
	return &Analyzer{logger: logger, completer: completer}
}

type sentimentPayload struct {
	Sentiment  string   `json:"sentiment"`
	Urgency    string   `json:"urgency"`
	Value      *int     `json:"value"`
	Summary    string   `json:"summary"`
	Confidence *float64 `json:"confidence"`
}

type themePayload struct {
	Themes []string `json:"themes"`
}

// Analyze produces an analysis result for one feedback record. The two model
// sub-calls run concurrently; each falls back to keyword inference on its own
// fault, so Analyze never fails.
func (a *Analyzer) Analyze(ctx context.Context, rec *storage.FeedbackRecord) *storage.AnalysisResult {
	result := &storage.AnalysisResult{
		FeedbackID: rec.ID,
		ValueScore: rec.ValueScore,
		AnalyzedAt: time.Now(),
	}

	var (
		wg            sync.WaitGroup
		sentimentConf float64
		themeConf     float64
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sentimentConf = a.analyzeSentiment(ctx, rec, result)
	}()
	go func() {
		defer wg.Done()
		themeConf = a.extractThemes(ctx, rec, result)
	}()
	wg.Wait()

	result.Confidence = (sentimentConf + themeConf) / 2

	a.logger.Debug().
		Str("feedback_id", rec.ID.String()).
		Str("sentiment", string(result.Sentiment)).
		Strs("themes", result.Themes).
		Float64("confidence", result.Confidence).
		Msg("Analyzed feedback record")

	return result
}

// analyzeSentiment fills sentiment, urgency, and summary, returning the
// sub-call confidence.
func (a *Analyzer) analyzeSentiment(ctx context.Context, rec *storage.FeedbackRecord, result *storage.AnalysisResult) float64 {
	if a.completer != nil {
		raw, err := a.completer.Complete(ctx, sentimentSystemPrompt, rec.Content)
		if err == nil {
			var payload sentimentPayload
			if jsonErr := json.Unmarshal([]byte(ExtractJSON(raw)), &payload); jsonErr == nil {
				if sentiment, ok := storage.ParseSentiment(payload.Sentiment); ok {
					result.Sentiment = sentiment
					result.Urgency = parseUrgencyOr(payload.Urgency, rec.Urgency)
					result.ValueScore = valueScoreOr(payload.Value, rec.ValueScore)
					result.Summary = summaryOr(payload.Summary, rec.Content)
					if payload.Confidence != nil && *payload.Confidence > 0 && *payload.Confidence <= 1 {
						return *payload.Confidence
					}
					return confidenceAIDefault
				}
			}
			a.logger.Warn().
				Str("feedback_id", rec.ID.String()).
				Msg("Unusable sentiment response, using keyword fallback")
		} else {
			a.logger.Warn().
				Err(err).
				Str("feedback_id", rec.ID.String()).
				Msg("Sentiment analysis failed, using keyword fallback")
		}
	}

	result.Sentiment = inference.InferSentiment(rec.Content)
	result.Urgency = inference.InferUrgency(rec.Content)
	result.Summary = summaryOr("", rec.Content)
	return confidenceFallback
}

// extractThemes fills the theme list, returning the sub-call confidence.
func (a *Analyzer) extractThemes(ctx context.Context, rec *storage.FeedbackRecord, result *storage.AnalysisResult) float64 {
	if a.completer != nil {
		system := fmt.Sprintf(themeSystemPrompt, strings.Join(inference.ThemeNames(), ", "))
		raw, err := a.completer.Complete(ctx, system, rec.Content)
		if err == nil {
			var payload themePayload
			if jsonErr := json.Unmarshal([]byte(ExtractJSON(raw)), &payload); jsonErr == nil {
				if themes := normalizeThemes(payload.Themes); len(themes) > 0 {
					result.Themes = themes
					return confidenceThemeSuccess
				}
			}
			a.logger.Warn().
				Str("feedback_id", rec.ID.String()).
				Msg("Unusable theme response, using keyword fallback")
		} else {
			a.logger.Warn().
				Err(err).
				Str("feedback_id", rec.ID.String()).
				Msg("Theme extraction failed, using keyword fallback")
		}
	}

	result.Themes = []string{inference.InferTheme(rec.Content)}
	return confidenceFallback
}

// ExtractJSON pulls a JSON object out of a model response: a fenced code
// block first, then the outermost brace pair, then the raw text if it already
// looks like an object. Anything else yields an empty object.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		return raw
	}
	if m := bareJSONRe.FindString(raw); m != "" {
		return m
	}
	return "{}"
}

// normalizeThemes trims, deduplicates, and keeps only known vocabulary
// entries, preserving response order. An analysis carries at most three
// themes, so the list is capped there.
func normalizeThemes(themes []string) []string {
	seen := make(map[string]bool, len(themes))
	out := make([]string, 0, maxThemes)
	for _, t := range themes {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] || !inference.KnownTheme(t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxThemes {
			break
		}
	}
	return out
}

// valueScoreOr returns the model value score when it is present and in range,
// otherwise the heuristic score.
func valueScoreOr(value *int, fallback int) int {
	if value != nil && *value >= 1 && *value <= 10 {
		return *value
	}
	return fallback
}

func parseUrgencyOr(raw string, fallback storage.UrgencyCategory) storage.UrgencyCategory {
	if urgency, ok := storage.ParseUrgency(raw); ok {
		return urgency
	}
	return fallback
}

// summaryOr returns the model summary when present, otherwise a truncated
// slice of the original content.
func summaryOr(summary, content string) string {
	summary = strings.TrimSpace(summary)
	if summary != "" {
		return summary
	}
	content = strings.TrimSpace(content)
	if len(content) > maxSummaryLength {
		return truncateRunes(content, maxSummaryLength) + "..."
	}
	return content
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
