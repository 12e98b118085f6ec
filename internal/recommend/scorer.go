package recommend

import (
	"sort"

	"github.com/abx-learn/backend/internal/models"
)

const (
	MaxRecommendations = 8

	similarLimit   = 4
	interestsLimit = 3
	nextLevelLimit = 3
	maxScore       = 100.0

	ReasonSimilar   = "Similar pathogen characteristics"
	ReasonInterests = "Matches your learning interests"
	ReasonNextLevel = "Next difficulty level"
)

// Recommend ranks pool against focal. Three passes contribute candidates
// (similar, matching interests, next level); the first occurrence of a name
// wins, then the list is sorted by score and cut to MaxRecommendations.
// A nil focal or empty pool yields an empty list. behavior may be nil.
func Recommend(pool []models.Entity, focal *models.Entity, behavior *models.BehaviorSummary) []models.Recommendation {
	out := []models.Recommendation{}
	if focal == nil || len(pool) == 0 {
		return out
	}

	var all []models.Recommendation
	all = append(all, similar(pool, focal)...)
	if behavior != nil && len(behavior.MostViewedCategories) > 0 {
		all = append(all, interests(pool, behavior)...)
	}
	all = append(all, nextLevel(pool, focal)...)

	seen := make(map[string]struct{}, len(all))
	for _, rec := range all {
		if _, dup := seen[rec.Entity.Name]; dup {
			continue
		}
		seen[rec.Entity.Name] = struct{}{}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

func similar(pool []models.Entity, focal *models.Entity) []models.Recommendation {
	var out []models.Recommendation
	for _, p := range pool {
		if len(out) == similarLimit {
			break
		}
		if p.Name == focal.Name {
			continue
		}
		if !sameAttr(p.GramStatus, focal.GramStatus) && p.SharedConditions(*focal) == 0 {
			continue
		}
		out = append(out, models.Recommendation{
			Entity:    p,
			Score:     SimilarityScore(p, *focal),
			Reasoning: ReasonSimilar,
			Category:  models.RecSimilar,
		})
	}
	return out
}

func interests(pool []models.Entity, behavior *models.BehaviorSummary) []models.Recommendation {
	var out []models.Recommendation
	for _, p := range pool {
		if len(out) == interestsLimit {
			break
		}
		if !contains(behavior.MostViewedCategories, p.Category) {
			continue
		}
		out = append(out, models.Recommendation{
			Entity:    p,
			Score:     RelevanceScore(p, *behavior),
			Reasoning: ReasonInterests,
			Category:  models.RecYourInterests,
		})
	}
	return out
}

func nextLevel(pool []models.Entity, focal *models.Entity) []models.Recommendation {
	base := focal.Complexity()
	var out []models.Recommendation
	for _, p := range pool {
		if len(out) == nextLevelLimit {
			break
		}
		c := p.Complexity()
		if c <= base || c > base+2 {
			continue
		}
		out = append(out, models.Recommendation{
			Entity:    p,
			Score:     DifficultyScore(p),
			Reasoning: ReasonNextLevel,
			Category:  models.RecNextLevel,
		})
	}
	return out
}

// SimilarityScore is 30 for a matching gram status, 20 per shared condition
// and 15 for matching morphology, capped at 100.
func SimilarityScore(a, b models.Entity) float64 {
	score := 0.0
	if sameAttr(a.GramStatus, b.GramStatus) {
		score += 30
	}
	score += 20 * float64(a.SharedConditions(b))
	if sameAttr(a.Morphology, b.Morphology) {
		score += 15
	}
	return capScore(score)
}

// RelevanceScore is 50, plus 25 when the category is a top category, plus 20
// when the gram status is the preferred one, capped at 100.
func RelevanceScore(p models.Entity, behavior models.BehaviorSummary) float64 {
	score := 50.0
	if p.Category != "" && contains(behavior.MostViewedCategories, p.Category) {
		score += 25
	}
	if behavior.GramStatusPreference != nil && sameAttr(p.GramStatus, *behavior.GramStatusPreference) {
		score += 20
	}
	return capScore(score)
}

func DifficultyScore(p models.Entity) float64 {
	return capScore(float64(p.Complexity() * 10))
}

func capScore(s float64) float64 {
	if s > maxScore {
		return maxScore
	}
	return s
}

// sameAttr reports equal, non-empty attribute values. Two pathogens that both
// lack an attribute are not alike on it.
func sameAttr(a, b string) bool {
	return a != "" && a == b
}

func contains(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
