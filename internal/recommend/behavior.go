// Package recommend turns interaction history into a behavior summary and
// ranks catalog pathogens against a focal pathogen.
package recommend

import (
	"sort"

	"github.com/abx-learn/backend/internal/models"
)

const (
	topCategoryCount = 3
	minStyleSamples  = 3
	randomStyleRatio = 0.8
	unknownCategory  = "Unknown"
)

// AnalyzeBehavior summarizes an interaction history. It never fails: records
// without a pathogen only contribute their time.
func AnalyzeBehavior(history []models.InteractionRecord) models.BehaviorSummary {
	summary := models.BehaviorSummary{
		MostViewedCategories:  []string{},
		ExplorationStyle:      models.StyleSystematic,
		DifficultyProgression: models.ProgressionSteady,
	}
	if len(history) == 0 {
		return summary
	}

	categories := newCounter()
	gram := newCounter()
	var total float64

	for _, rec := range history {
		total += float64(rec.TimeSpent)
		if rec.Pathogen == nil {
			continue
		}
		category := rec.Category
		if category == "" {
			category = unknownCategory
		}
		// one mention per condition on the pathogen
		for range rec.Pathogen.Conditions {
			categories.add(category)
		}
		if rec.Pathogen.GramStatus != "" {
			gram.add(rec.Pathogen.GramStatus)
		}
	}

	summary.MostViewedCategories = categories.top(topCategoryCount)
	if best := gram.top(1); len(best) == 1 {
		summary.GramStatusPreference = &best[0]
	}
	summary.AverageSessionLength = total / float64(len(history))
	summary.ExplorationStyle = explorationStyle(history)
	return summary
}

func explorationStyle(history []models.InteractionRecord) string {
	if len(history) < minStyleSamples {
		return models.StyleSystematic
	}

	var mentions int
	unique := make(map[string]struct{})
	for _, rec := range history {
		category := ""
		if rec.Pathogen != nil {
			category = rec.Pathogen.Category
		}
		if category == "" {
			category = rec.Category
		}
		if category == "" {
			continue
		}
		mentions++
		unique[category] = struct{}{}
	}

	switch {
	case mentions == 0:
		return models.StyleSystematic
	case len(unique) == 1:
		return models.StyleFocused
	case float64(len(unique))/float64(mentions) > randomStyleRatio:
		return models.StyleRandom
	default:
		return models.StyleSystematic
	}
}

// counter tallies keys and remembers first-seen order for tie breaks.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns up to n keys by count descending, earlier keys first on ties.
func (c *counter) top(n int) []string {
	keys := append([]string{}, c.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
