// Package session keeps live exploration counters and learner preferences.
// Nothing here is persisted; a new Tracker starts empty.
package session

import (
	"sync"

	"github.com/abx-learn/backend/internal/metrics"
	"github.com/abx-learn/backend/internal/models"
)

// ConditionIndex resolves condition ids to condition records.
type ConditionIndex interface {
	Condition(id string) (models.Entity, bool)
}

const DefaultInteractionType = "view"

type Tracker struct {
	mu    sync.Mutex
	index ConditionIndex
	stats models.SessionStats
	prefs models.Preferences
}

// NewTracker creates a Tracker. index may be nil, in which case condition
// categories are never counted.
func NewTracker(index ConditionIndex) *Tracker {
	return &Tracker{
		index: index,
		stats: emptyStats(),
		prefs: models.DefaultPreferences(),
	}
}

func emptyStats() models.SessionStats {
	return models.SessionStats{
		PreferredCategories: map[string]int{},
		AttributeFocus:      map[string]int{},
	}
}

// RecordInteraction counts one interaction. entity may be nil; then only the
// view count and running average time change. Time is not validated.
func (t *Tracker) RecordInteraction(entity *models.Entity, interactionType string, timeSpentSeconds float64) {
	if interactionType == "" {
		interactionType = DefaultInteractionType
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.stats
	prev := float64(s.TotalViewed)
	s.TotalViewed++
	s.ExplorationDepth++
	s.AverageTimePerPathogen = (s.AverageTimePerPathogen*prev + timeSpentSeconds) / float64(s.TotalViewed)

	if entity != nil {
		if t.index != nil {
			for _, id := range entity.Conditions {
				if cond, ok := t.index.Condition(id); ok && cond.Category != "" {
					s.PreferredCategories[cond.Category]++
				}
			}
		}
		if entity.GramStatus != "" {
			s.AttributeFocus[entity.GramStatus]++
		}
	}

	metrics.Interactions.WithLabelValues(interactionType).Inc()
}

// ResetSession zeroes the counters. Preferences are kept.
func (t *Tracker) ResetSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = emptyStats()
}

// Stats returns a copy of the counters.
func (t *Tracker) Stats() models.SessionStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.stats
	out.PreferredCategories = copyCounts(t.stats.PreferredCategories)
	out.AttributeFocus = copyCounts(t.stats.AttributeFocus)
	return out
}

func (t *Tracker) Preferences() models.Preferences {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyPrefs(t.prefs)
}

// UpdatePreferences merges the non-nil fields of patch and returns the result.
func (t *Tracker) UpdatePreferences(patch models.PreferencesPatch) models.Preferences {
	t.mu.Lock()
	defer t.mu.Unlock()

	if patch.SystematicLearning != nil {
		t.prefs.SystematicLearning = *patch.SystematicLearning
	}
	if patch.PreferSimilarPathogens != nil {
		t.prefs.PreferSimilarPathogens = *patch.PreferSimilarPathogens
	}
	if patch.IncludeRecentlyViewed != nil {
		t.prefs.IncludeRecentlyViewed = *patch.IncludeRecentlyViewed
	}
	if patch.DifficultyLevel != nil {
		t.prefs.DifficultyLevel = *patch.DifficultyLevel
	}
	if patch.FocusAreas != nil {
		t.prefs.FocusAreas = append([]string{}, (*patch.FocusAreas)...)
	}
	return copyPrefs(t.prefs)
}

// SetPreferences replaces the preferences wholesale.
func (t *Tracker) SetPreferences(p models.Preferences) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prefs = copyPrefs(p)
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyPrefs(p models.Preferences) models.Preferences {
	p.FocusAreas = append([]string{}, p.FocusAreas...)
	return p
}
