package vectorstore

import (
	"math"
	"strings"
	"time"
)

// EngagementScore combines votes and comments on a log scale so a single
// viral post cannot dominate ranking. Comments are weighted slightly higher
// than score.
func EngagementScore(score, numComments int) float64 {
	logScore := math.Log1p(math.Max(0, float64(score)))
	logComments := math.Log1p(math.Max(0, float64(numComments)))
	return (logScore + 1.2*logComments) / 2.2
}

// TimeRelevance returns a recency factor: 1.0 for fresh posts, decaying
// linearly to 0.7 over one week and never below it. Posts with no creation
// time are treated as fresh.
func TimeRelevance(created, now time.Time) float64 {
	if created.Unix() <= 0 {
		return 1.0
	}
	ageHours := now.Sub(created).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	const (
		decayRate   = 0.3
		decayPeriod = 168.0 // one week in hours
	)
	factor := 1.0 - decayRate*math.Min(1.0, ageHours/decayPeriod)
	return math.Max(0.7, factor)
}

// finalSimilarity applies ranking boosts on top of the raw cosine similarity:
// document length normalization, engagement, recency, title term overlap and
// an original-content bonus. The result stays in [0, 1].
func finalSimilarity(base float64, query, title string, docLength int, engagement, timeRelevance float64, isOC bool) float64 {
	score := base

	if docLength > 0 {
		switch {
		case docLength < 20:
			score *= 0.8
		case docLength > 1000:
			score *= 0.9
		}
	}

	if engagement > 0 {
		boost := math.Min(0.2, math.Log1p(engagement)/100)
		score = math.Min(1.0, score*(1+boost))
	}

	if timeRelevance > 0 {
		score *= timeRelevance
	}

	queryTerms := strings.Fields(strings.ToLower(query))
	if len(queryTerms) > 0 {
		titleTerms := make(map[string]struct{})
		for _, t := range strings.Fields(strings.ToLower(title)) {
			titleTerms[t] = struct{}{}
		}
		matched := 0
		for _, t := range queryTerms {
			if _, ok := titleTerms[t]; ok {
				matched++
			}
		}
		if matched > 0 {
			ratio := float64(matched) / float64(len(queryTerms))
			score = math.Min(1.0, score*(1+ratio*0.1))
		}
	}

	if isOC {
		score = math.Min(1.0, score*1.1)
	}

	return score
}
