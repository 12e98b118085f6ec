package session

import (
	"math"
	"testing"

	"github.com/abx-learn/backend/internal/models"
)

type mapIndex map[string]models.Entity

func (m mapIndex) Condition(id string) (models.Entity, bool) {
	e, ok := m[id]
	return e, ok
}

var testIndex = mapIndex{
	"cap":  {ID: "cap", Name: "CAP", Category: "Respiratory"},
	"hap":  {ID: "hap", Name: "HAP", Category: "Respiratory"},
	"uti":  {ID: "uti", Name: "Cystitis", Category: "Genitourinary"},
	"none": {ID: "none", Name: "Uncategorized"},
}

func TestRecordInteraction(t *testing.T) {
	tr := NewTracker(testIndex)

	tr.RecordInteraction(&models.Entity{Name: "S. pneumoniae", GramStatus: "Positive", Conditions: []string{"cap", "hap", "missing"}}, "", 10)
	tr.RecordInteraction(&models.Entity{Name: "E. coli", GramStatus: "Negative", Conditions: []string{"uti", "none"}}, "click", 20)

	s := tr.Stats()
	if s.TotalViewed != 2 || s.ExplorationDepth != 2 {
		t.Errorf("TotalViewed/ExplorationDepth = %d/%d, want 2/2", s.TotalViewed, s.ExplorationDepth)
	}
	if s.AverageTimePerPathogen != 15 {
		t.Errorf("AverageTimePerPathogen = %v, want 15", s.AverageTimePerPathogen)
	}
	if s.PreferredCategories["Respiratory"] != 2 || s.PreferredCategories["Genitourinary"] != 1 {
		t.Errorf("PreferredCategories = %v", s.PreferredCategories)
	}
	if len(s.PreferredCategories) != 2 {
		t.Errorf("PreferredCategories has extra entries: %v", s.PreferredCategories)
	}
	if s.AttributeFocus["Positive"] != 1 || s.AttributeFocus["Negative"] != 1 {
		t.Errorf("AttributeFocus = %v", s.AttributeFocus)
	}
}

func TestRunningAverageAcceptsAnyTime(t *testing.T) {
	tr := NewTracker(nil)
	for _, secs := range []float64{10, -4, 0} {
		tr.RecordInteraction(nil, "view", secs)
	}
	if got := tr.Stats().AverageTimePerPathogen; math.Abs(got-2) > 1e-9 {
		t.Errorf("AverageTimePerPathogen = %v, want 2", got)
	}
}

func TestNilEntityAndNilIndex(t *testing.T) {
	tr := NewTracker(nil)
	tr.RecordInteraction(nil, "view", 5)
	tr.RecordInteraction(&models.Entity{Name: "x", Conditions: []string{"cap"}}, "view", 5)

	s := tr.Stats()
	if s.TotalViewed != 2 {
		t.Errorf("TotalViewed = %d, want 2", s.TotalViewed)
	}
	if len(s.PreferredCategories) != 0 || len(s.AttributeFocus) != 0 {
		t.Errorf("counted categories without an index: %+v", s)
	}
}

func TestResetKeepsPreferences(t *testing.T) {
	tr := NewTracker(testIndex)
	yes := true
	tr.UpdatePreferences(models.PreferencesPatch{SystematicLearning: &yes})
	tr.RecordInteraction(&models.Entity{Name: "x", GramStatus: "Positive"}, "view", 3)

	tr.ResetSession()

	s := tr.Stats()
	if s.TotalViewed != 0 || s.AverageTimePerPathogen != 0 || len(s.AttributeFocus) != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
	if !tr.Preferences().SystematicLearning {
		t.Error("preferences lost on reset")
	}
}

func TestDefaultPreferences(t *testing.T) {
	p := NewTracker(nil).Preferences()
	if p.SystematicLearning || !p.PreferSimilarPathogens || p.IncludeRecentlyViewed {
		t.Errorf("flags = %+v", p)
	}
	if p.DifficultyLevel != models.DifficultyAdaptive || p.FocusAreas == nil || len(p.FocusAreas) != 0 {
		t.Errorf("defaults = %+v", p)
	}
}

func TestUpdatePreferencesMerges(t *testing.T) {
	tr := NewTracker(nil)
	level := models.DifficultyAdvanced
	areas := []string{"Respiratory"}

	got := tr.UpdatePreferences(models.PreferencesPatch{DifficultyLevel: &level, FocusAreas: &areas})

	if got.DifficultyLevel != "advanced" || len(got.FocusAreas) != 1 {
		t.Errorf("merged = %+v", got)
	}
	if !got.PreferSimilarPathogens {
		t.Error("untouched field changed")
	}

	areas[0] = "mutated"
	if tr.Preferences().FocusAreas[0] != "Respiratory" {
		t.Error("preferences alias the caller's slice")
	}
}

func TestSetPreferencesReplaces(t *testing.T) {
	tr := NewTracker(nil)
	tr.SetPreferences(models.Preferences{DifficultyLevel: models.DifficultyBeginner})

	p := tr.Preferences()
	if p.PreferSimilarPathogens || p.DifficultyLevel != "beginner" {
		t.Errorf("Preferences = %+v", p)
	}
}

func TestStatsIsACopy(t *testing.T) {
	tr := NewTracker(testIndex)
	tr.RecordInteraction(&models.Entity{Name: "x", Conditions: []string{"cap"}}, "view", 1)

	s := tr.Stats()
	s.PreferredCategories["Respiratory"] = 99

	if tr.Stats().PreferredCategories["Respiratory"] != 1 {
		t.Error("internal counters mutated through copy")
	}
}

func TestManager(t *testing.T) {
	m := NewManager(testIndex)
	m.For(1).RecordInteraction(nil, "view", 1)

	if m.For(1).Stats().TotalViewed != 1 {
		t.Error("For(1) did not return the same tracker")
	}
	if m.For(2).Stats().TotalViewed != 0 {
		t.Error("users share a tracker")
	}
}
