// Package sentiment holds the local keyword heuristic that labels feed posts.
// It is deliberately crude: each cue counts once if it appears anywhere in
// the lower-cased text, and the side with more cues wins.
package sentiment

import (
	"strings"

	"nemsutalks/pkg/domain"
)

var positiveCues = []string{
	"thank",
	"great",
	"amazing",
	"excellent",
	"good",
	"love",
	"appreciate",
	"helpful",
	"fantastic",
	"wonderful",
	"improved",
	"best",
}

var negativeCues = []string{
	"bad",
	"terrible",
	"poor",
	"frustrating",
	"unreliable",
	"broken",
	"needs attention",
	"problem",
	"issue",
	"difficult",
	"worse",
	"complaint",
}

// Classify returns the polarity of content. Ties, including no cues at all,
// are Neutral.
func Classify(content string) domain.Polarity {
	pos, neg := Score(content)
	switch {
	case pos > neg:
		return domain.PolarityPositive
	case neg > pos:
		return domain.PolarityNegative
	default:
		return domain.PolarityNeutral
	}
}

// Score returns how many positive and negative cues occur in content.
// Multi-word cues match as literal substrings.
func Score(content string) (positive, negative int) {
	lower := strings.ToLower(content)
	return countCues(lower, positiveCues), countCues(lower, negativeCues)
}

func countCues(lower string, cues []string) int {
	n := 0
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			n++
		}
	}
	return n
}
