package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

func TestInferSentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want storage.Sentiment
	}{
		{"more negatives", "this is broken and full of bugs, total fail", storage.SentimentNegative},
		{"more positives", "love it, works well, really helpful", storage.SentimentPositive},
		{"no matches", "the deploy completed at noon", storage.SentimentNeutral},
		{"equal counts tie to neutral", "great product with a bug", storage.SentimentNeutral},
		{"frustration marker", "this is ridiculous, nothing deploys", storage.SentimentFrustrated},
		{"triple exclamation", "fix this now!!!", storage.SentimentFrustrated},
		{"negative with contrast", "the api is broken but I had hope for it", storage.SentimentFrustrated},
		{"positive with contrast stays positive", "great docs but could use more examples", storage.SentimentPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferSentiment(tt.text))
		})
	}
}

func TestInferUrgency(t *testing.T) {
	tests := []struct {
		name string
		text string
		want storage.UrgencyCategory
	}{
		{"critical keyword", "production down since midnight", storage.UrgencyCritical},
		{"exclamation escalation", "please look at this!!!", storage.UrgencyCritical},
		{"high keyword", "this is blocking our release", storage.UrgencyHigh},
		{"low keyword", "nice to have for the next version", storage.UrgencyLow},
		{"no keywords", "the button moved to the left", storage.UrgencyMedium},
		{"critical beats low", "urgent: even this nice to have is down", storage.UrgencyCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferUrgency(tt.text))
		})
	}
}

func TestInferTheme_RuleOrder(t *testing.T) {
	// Rate-limit keywords outrank the generic request/feature rules.
	assert.Equal(t, "Rate Limiting", InferTheme("getting 429 too many requests on every call"))
	assert.Equal(t, "Performance", InferTheme("cold start latency is rough"))
	assert.Equal(t, "Pricing & Billing", InferTheme("my invoice doubled this month"))
	assert.Equal(t, "Feature Request", InferTheme("please add support for custom domains"))
	assert.Equal(t, DefaultTheme, InferTheme("hello there"))
}

func TestThemeNames_IncludesCatchAll(t *testing.T) {
	names := ThemeNames()
	assert.Equal(t, DefaultTheme, names[len(names)-1])
	assert.Len(t, names, len(ThemeVocabulary)+1)
}

func TestKnownTheme(t *testing.T) {
	assert.True(t, KnownTheme("Rate Limiting"))
	assert.True(t, KnownTheme(DefaultTheme))
	assert.False(t, KnownTheme("Weather"))
}
