// Package storage provides database models and repositories for the feedback engine.
package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies the channel a feedback record arrived from.
type Source string

const (
	SourceSupport Source = "support"
	SourceDiscord Source = "discord"
	SourceGitHub  Source = "github"
	SourceEmail   Source = "email"
	SourceTwitter Source = "twitter"
	SourceForum   Source = "forum"
)

// KnownSources lists every accepted source tag.
var KnownSources = []Source{
	SourceSupport, SourceDiscord, SourceGitHub,
	SourceEmail, SourceTwitter, SourceForum,
}

// ValidSource reports whether s is a known source tag.
func ValidSource(s Source) bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}

// CustomerTier represents customer segmentation used as a scoring input.
type CustomerTier string

const (
	TierEnterprise CustomerTier = "Enterprise"
	TierPro        CustomerTier = "Pro"
	TierFree       CustomerTier = "Free"
)

// UrgencyCategory represents the categorical urgency of a record.
type UrgencyCategory string

const (
	UrgencyCritical UrgencyCategory = "Critical"
	UrgencyHigh     UrgencyCategory = "High"
	UrgencyMedium   UrgencyCategory = "Medium"
	UrgencyLow      UrgencyCategory = "Low"
)

// ParseUrgency canonicalizes an urgency label, case-insensitively.
func ParseUrgency(s string) (UrgencyCategory, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return UrgencyCritical, true
	case "high":
		return UrgencyHigh, true
	case "medium":
		return UrgencyMedium, true
	case "low":
		return UrgencyLow, true
	}
	return "", false
}

// Sentiment represents the derived sentiment label of a record.
type Sentiment string

const (
	SentimentPositive   Sentiment = "Positive"
	SentimentNeutral    Sentiment = "Neutral"
	SentimentNegative   Sentiment = "Negative"
	SentimentFrustrated Sentiment = "Frustrated"
)

// ParseSentiment canonicalizes a sentiment label, case-insensitively.
func ParseSentiment(s string) (Sentiment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return SentimentPositive, true
	case "neutral":
		return SentimentNeutral, true
	case "negative":
		return SentimentNegative, true
	case "frustrated":
		return SentimentFrustrated, true
	}
	return "", false
}

// FeedbackRecord is the canonical normalized feedback fact. It is created once
// at ingestion and later annotated with analyses; the engine never deletes it.
type FeedbackRecord struct {
	ID              uuid.UUID
	Source          Source
	AuthorEmail     *string
	AuthorUsername  *string
	Content         string
	ProductArea     *string
	CustomerTier    CustomerTier
	Urgency         UrgencyCategory
	UrgencyScore    int
	ValueScore      int
	EngagementScore *float64
	Metadata        json.RawMessage
	CreatedAt       time.Time
	ResolvedAt      *time.Time
	IngestedAt      time.Time
}

// AnalysisResult holds the AI-or-heuristic derived labels for one record.
// Every stored FeedbackRecord has exactly one most-recent AnalysisResult.
type AnalysisResult struct {
	ID         uuid.UUID
	FeedbackID uuid.UUID
	Sentiment  Sentiment
	Urgency    UrgencyCategory
	Themes     []string
	Summary    string
	ValueScore int
	Confidence float64
	AnalyzedAt time.Time
}

// Theme is a controlled-vocabulary topic label, many-to-many with records.
type Theme struct {
	ID   uuid.UUID
	Name string
}
