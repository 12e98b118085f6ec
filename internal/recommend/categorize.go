package recommend

import (
	"fmt"
	"strings"

	"github.com/abx-learn/backend/internal/models"
)

var knownCategories = map[string]bool{
	models.RecSimilar:         true,
	models.RecYourInterests:   true,
	models.RecNextLevel:       true,
	models.RecRecentlyPopular: true,
}

// Categorize groups recommendations by their category label. Unrecognized
// labels land in Discover and empty groups are left out.
func Categorize(recs []models.Recommendation) map[string][]models.Recommendation {
	out := make(map[string][]models.Recommendation)
	for _, r := range recs {
		key := r.Category
		if !knownCategories[key] {
			key = models.RecDiscover
		}
		out[key] = append(out[key], r)
	}
	return out
}

// ── Learning Path ───────────────────────────────────────

const (
	systematicSectionSize = 5
	interestSectionSize   = 3
)

// LearningPath builds study sections. Systematic learners get a gram-positive
// and a gram-negative section; everyone else gets one section per top
// category that has pathogens.
func LearningPath(pool []models.Entity, prefs models.Preferences, behavior models.BehaviorSummary) []models.LearningSection {
	sections := []models.LearningSection{}

	if prefs.SystematicLearning {
		sections = append(sections,
			models.LearningSection{
				Section:   "Gram-Positive Bacteria",
				Pathogens: byGram(pool, "Positive"),
				Reasoning: "Systematic learning: Gram-positive organisms",
			},
			models.LearningSection{
				Section:   "Gram-Negative Bacteria",
				Pathogens: byGram(pool, "Negative"),
				Reasoning: "Systematic learning: Gram-negative organisms",
			},
		)
		return sections
	}

	for _, category := range behavior.MostViewedCategories {
		var matched []models.Entity
		for _, p := range pool {
			if p.Category == category {
				matched = append(matched, p)
				if len(matched) == interestSectionSize {
					break
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		sections = append(sections, models.LearningSection{
			Section:   fmt.Sprintf("%s Focus", category),
			Pathogens: matched,
			Reasoning: fmt.Sprintf("Based on your interest in %s", category),
		})
	}
	return sections
}

func byGram(pool []models.Entity, status string) []models.Entity {
	out := []models.Entity{}
	for _, p := range pool {
		if strings.EqualFold(p.GramStatus, status) {
			out = append(out, p)
			if len(out) == systematicSectionSize {
				break
			}
		}
	}
	return out
}
