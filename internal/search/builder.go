package search

import (
	"fmt"
	"strings"
)

// sortColumns is the closed set of allowed sort keys. The sort key and the
// limit are the only values interpolated into the query text; everything
// user-controlled is bound as a parameter.
var sortColumns = map[string]string{
	"urgency_score":    "f.urgency_score",
	"value_score":      "f.value_score",
	"engagement_score": "f.engagement_score",
	"created_at":       "f.created_at",
}

// BuildQuery compiles an intent into a parameterized query and its ordered
// argument list. Absent filters contribute no clause. The theme join fans out
// one row per linked theme, so rows are grouped by feedback identity before
// sorting and limiting.
func BuildQuery(intent QueryIntent) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	placeholder := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(intent.Urgency) > 0 {
		marks := make([]string, len(intent.Urgency))
		for i, u := range intent.Urgency {
			marks[i] = placeholder(string(u))
		}
		conditions = append(conditions, fmt.Sprintf("f.urgency IN (%s)", strings.Join(marks, ", ")))
	}

	if len(intent.Sentiments) > 0 {
		marks := make([]string, len(intent.Sentiments))
		for i, s := range intent.Sentiments {
			marks[i] = placeholder(string(s))
		}
		conditions = append(conditions, fmt.Sprintf("sa.sentiment IN (%s)", strings.Join(marks, ", ")))
	}

	if intent.CustomerTier != "" {
		conditions = append(conditions, fmt.Sprintf("f.customer_tier = %s", placeholder(string(intent.CustomerTier))))
	}

	if intent.ProductArea != "" {
		conditions = append(conditions, fmt.Sprintf("f.product_area = %s", placeholder(intent.ProductArea)))
	}

	if intent.Theme != "" {
		conditions = append(conditions, fmt.Sprintf("t.name LIKE %s", placeholder("%"+intent.Theme+"%")))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT f.id, f.source, f.author_email, f.author_username, f.content,
	f.product_area, f.customer_tier, f.urgency, f.urgency_score, f.value_score,
	f.engagement_score, f.created_at,
	sa.sentiment, sa.summary, sa.confidence
FROM feedback f
LEFT JOIN sentiment_analyses sa ON sa.feedback_id = f.id
LEFT JOIN feedback_themes ft ON ft.feedback_id = f.id
LEFT JOIN themes t ON t.id = ft.theme_id`)

	if len(conditions) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	sb.WriteString("\nGROUP BY f.id, f.source, f.author_email, f.author_username, f.content, f.product_area, f.customer_tier, f.urgency, f.urgency_score, f.value_score, f.engagement_score, f.created_at, sa.sentiment, sa.summary, sa.confidence")

	sortExpr, ok := sortColumns[intent.SortBy]
	if !ok {
		sortExpr = sortColumns[DefaultSortKey]
	}
	sb.WriteString(fmt.Sprintf("\nORDER BY %s DESC, f.created_at DESC", sortExpr))

	limit := clampLimit(intent.Limit)
	sb.WriteString(fmt.Sprintf("\nLIMIT %d", limit))

	return sb.String(), args
}
