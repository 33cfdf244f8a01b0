package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nemsutalks/internal/metrics"
	"nemsutalks/pkg/domain"
)

const analyzerSystemPrompt = `You classify feedback submitted by university students and staff.
Reply with a single JSON object and nothing else, using exactly these keys:
{"category": string, "sentimentType": string, "isAppropriate": boolean, "rewrittenContent": string, "reason": string}`

const analyzerPromptTemplate = `Analyze the following sentiment submission from a university student/staff member and provide:

1. Category: Classify into one of these categories based on the content:
   - "Administration" - Related to administrative processes, policies, enrollment, records, management
   - "Instruction" - Related to teaching, classes, professors, curriculum, learning experience
   - "Physical Facilities & Equipment" - Related to buildings, classrooms, equipment, infrastructure, maintenance
   - "Student Services" - Related to student support, counseling, activities, organizations
   - "Campus Safety" - Related to security, safety measures, emergency procedures
   - "Other" - If it doesn't fit any category above

2. Sentiment Type: Determine if the overall tone is Positive, Negative, or Neutral

3. Content Appropriateness: Check if the content is:
   - Free from hate speech, profanity, or personal attacks
   - Constructive rather than purely destructive
   - Respectful even if critical

4. Rewritten Content:
   - If the content contains inappropriate language, profanity, or is overly harsh/unconstructive, rewrite it to be constructive and professional while preserving the core message/concern
   - If the content is already appropriate, return it as-is

5. Reason: If you rewrote the content, briefly explain why. Otherwise leave it empty.

Sentiment to analyze:
%q`

// SentimentAnalyzer asks a language model for category, polarity and an
// appropriateness check of a submission.
type SentimentAnalyzer struct {
	gen TextGenerator
}

func NewSentimentAnalyzer(gen TextGenerator) *SentimentAnalyzer {
	return &SentimentAnalyzer{gen: gen}
}

// Analyze returns the model's verdict. Category and label must be members
// of the closed sets; anything else is ErrInvalidAnalysis.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, content string) (domain.Analysis, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Analysis{}, ErrContentRequired
	}
	start := time.Now()
	raw, err := a.gen.GenerateText(ctx, analyzerSystemPrompt, fmt.Sprintf(analyzerPromptTemplate, content))
	if err != nil {
		observe("analyze", start, err)
		return domain.Analysis{}, fmt.Errorf("analyze sentiment: %w", err)
	}
	out, err := parseAnalysis(raw, content)
	observe("analyze", start, err)
	return out, err
}

func parseAnalysis(raw, original string) (domain.Analysis, error) {
	var out domain.Analysis
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &out); err != nil {
		return domain.Analysis{}, fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}
	if !out.Category.Valid() {
		return domain.Analysis{}, fmt.Errorf("%w: category %q", ErrInvalidAnalysis, out.Category)
	}
	if !out.SentimentType.Valid() {
		return domain.Analysis{}, fmt.Errorf("%w: sentimentType %q", ErrInvalidAnalysis, out.SentimentType)
	}
	if strings.TrimSpace(out.RewrittenContent) == "" {
		out.RewrittenContent = original
	}
	return out, nil
}

// extractJSONObject trims prose or code fences around the first JSON object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(raw)
	}
	return raw[start : end+1]
}

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.AIRequestSeconds.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
