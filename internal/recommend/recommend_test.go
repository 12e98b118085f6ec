package recommend

import (
	"fmt"
	"testing"

	"github.com/abx-learn/backend/internal/models"
)

func strptr(s string) *string { return &s }

// ── Behavior ────────────────────────────────────────────

func TestAnalyzeBehaviorEmpty(t *testing.T) {
	for _, h := range [][]models.InteractionRecord{nil, {}} {
		s := AnalyzeBehavior(h)
		if len(s.MostViewedCategories) != 0 || s.MostViewedCategories == nil {
			t.Errorf("MostViewedCategories = %#v, want empty slice", s.MostViewedCategories)
		}
		if s.GramStatusPreference != nil || s.AverageSessionLength != 0 {
			t.Errorf("summary = %+v", s)
		}
		if s.ExplorationStyle != models.StyleSystematic || s.DifficultyProgression != models.ProgressionSteady {
			t.Errorf("style/progression = %s/%s", s.ExplorationStyle, s.DifficultyProgression)
		}
	}
}

func TestAnalyzeBehavior(t *testing.T) {
	history := []models.InteractionRecord{
		{Pathogen: &models.Entity{GramStatus: "Positive", Category: "X", Conditions: []string{"a", "b"}}, Category: "Respiratory", TimeSpent: 10},
		{Pathogen: &models.Entity{GramStatus: "Negative", Conditions: []string{"a"}}, Category: "Genitourinary", TimeSpent: 20},
		{Category: "CNS", TimeSpent: 30},
		{Pathogen: &models.Entity{GramStatus: "Negative", Conditions: []string{"a"}}},
	}

	s := AnalyzeBehavior(history)

	want := []string{"Respiratory", "Genitourinary", "Unknown"}
	if fmt.Sprint(s.MostViewedCategories) != fmt.Sprint(want) {
		t.Errorf("MostViewedCategories = %v, want %v", s.MostViewedCategories, want)
	}
	if s.GramStatusPreference == nil || *s.GramStatusPreference != "Negative" {
		t.Errorf("GramStatusPreference = %v, want Negative", s.GramStatusPreference)
	}
	if s.AverageSessionLength != 15 {
		t.Errorf("AverageSessionLength = %v, want 15", s.AverageSessionLength)
	}
	if s.ExplorationStyle != models.StyleRandom {
		t.Errorf("ExplorationStyle = %s, want random", s.ExplorationStyle)
	}
}

func TestCategoryTiesKeepFirstSeen(t *testing.T) {
	history := []models.InteractionRecord{
		{Pathogen: &models.Entity{Conditions: []string{"a"}}, Category: "D"},
		{Pathogen: &models.Entity{Conditions: []string{"a"}}, Category: "C"},
		{Pathogen: &models.Entity{Conditions: []string{"a"}}, Category: "B"},
		{Pathogen: &models.Entity{Conditions: []string{"a"}}, Category: "A"},
		{Pathogen: &models.Entity{Conditions: []string{"a"}}, Category: "A"},
	}
	got := AnalyzeBehavior(history).MostViewedCategories
	if fmt.Sprint(got) != "[A D C]" {
		t.Errorf("MostViewedCategories = %v, want [A D C]", got)
	}
}

func TestGramPreferenceTie(t *testing.T) {
	history := []models.InteractionRecord{
		{Pathogen: &models.Entity{GramStatus: "Negative"}},
		{Pathogen: &models.Entity{GramStatus: "Positive"}},
	}
	pref := AnalyzeBehavior(history).GramStatusPreference
	if pref == nil || *pref != "Negative" {
		t.Errorf("GramStatusPreference = %v, want Negative", pref)
	}
}

func TestExplorationStyle(t *testing.T) {
	rec := func(cat string) models.InteractionRecord {
		return models.InteractionRecord{Pathogen: &models.Entity{Category: cat}}
	}
	tests := []struct {
		name    string
		history []models.InteractionRecord
		want    string
	}{
		{"too few", []models.InteractionRecord{rec("A"), rec("B")}, models.StyleSystematic},
		{"one category", []models.InteractionRecord{rec("A"), rec("A"), rec("A")}, models.StyleFocused},
		{"all different", []models.InteractionRecord{rec("A"), rec("B"), rec("C")}, models.StyleRandom},
		{"mixed", []models.InteractionRecord{rec("A"), rec("A"), rec("B"), rec("B"), rec("C")}, models.StyleSystematic},
		{"ratio exactly 0.8", []models.InteractionRecord{rec("A"), rec("B"), rec("C"), rec("D"), rec("A")}, models.StyleSystematic},
		{"no categories", []models.InteractionRecord{{}, {}, {}}, models.StyleSystematic},
	}
	for _, tt := range tests {
		if got := AnalyzeBehavior(tt.history).ExplorationStyle; got != tt.want {
			t.Errorf("%s: style = %s, want %s", tt.name, got, tt.want)
		}
	}
}

// ── Scoring ─────────────────────────────────────────────

var (
	focal = models.Entity{Name: "A", GramStatus: "Positive", Morphology: "cocci", Category: "Respiratory", Conditions: []string{"c1", "c2"}}
	pool  = []models.Entity{
		focal,
		{Name: "B", GramStatus: "Positive", Morphology: "cocci", Category: "Respiratory", Conditions: []string{"c1"}},
		{Name: "C", GramStatus: "Negative", Morphology: "rod", Category: "Genitourinary", Conditions: []string{"c2", "c3"}},
		{Name: "D", GramStatus: "Negative", Morphology: "rod", Category: "Genitourinary", Conditions: []string{"c3", "c4", "c5", "c6"}},
		{Name: "E", GramStatus: "Negative", Category: "CNS", Conditions: []string{"c7", "c8", "c9"}},
	}
)

func TestRecommend(t *testing.T) {
	behavior := &models.BehaviorSummary{
		MostViewedCategories: []string{"Genitourinary"},
		GramStatusPreference: strptr("Negative"),
	}

	recs := Recommend(pool, &focal, behavior)

	want := []struct {
		name     string
		score    float64
		category string
	}{
		{"D", 95, models.RecYourInterests},
		{"B", 65, models.RecSimilar},
		{"E", 30, models.RecNextLevel},
		// C scores 95 as an interest but its earlier similar entry wins
		{"C", 20, models.RecSimilar},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d recommendations, want %d: %+v", len(recs), len(want), recs)
	}
	for i, w := range want {
		r := recs[i]
		if r.Entity.Name != w.name || r.Score != w.score || r.Category != w.category {
			t.Errorf("recs[%d] = %s/%v/%s, want %s/%v/%s", i, r.Entity.Name, r.Score, r.Category, w.name, w.score, w.category)
		}
	}
	if recs[1].Reasoning != ReasonSimilar || recs[0].Reasoning != ReasonInterests || recs[2].Reasoning != ReasonNextLevel {
		t.Errorf("reasoning = %q %q %q", recs[0].Reasoning, recs[1].Reasoning, recs[2].Reasoning)
	}
}

func TestRecommendEmptyInputs(t *testing.T) {
	if got := Recommend(pool, nil, nil); got == nil || len(got) != 0 {
		t.Errorf("nil focal: %v", got)
	}
	if got := Recommend(nil, &focal, nil); len(got) != 0 {
		t.Errorf("empty pool: %v", got)
	}
}

func TestRecommendCapsAndLimits(t *testing.T) {
	var big []models.Entity
	for i := 0; i < 20; i++ {
		big = append(big, models.Entity{
			Name:       fmt.Sprintf("P%02d", i),
			GramStatus: "Positive",
			Category:   "Respiratory",
			Conditions: []string{"c1", "c2", "c3"},
		})
	}
	f := models.Entity{Name: "F", GramStatus: "Positive", Conditions: []string{"c1"}}
	behavior := &models.BehaviorSummary{MostViewedCategories: []string{"Respiratory"}}

	recs := Recommend(big, &f, behavior)

	similar := 0
	for _, r := range recs {
		if r.Category == models.RecSimilar {
			similar++
		}
	}
	if similar != similarLimit {
		t.Errorf("similar = %d, want %d", similar, similarLimit)
	}
	if len(recs) > MaxRecommendations {
		t.Errorf("len = %d, want <= %d", len(recs), MaxRecommendations)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Errorf("not sorted at %d: %v > %v", i, recs[i].Score, recs[i-1].Score)
		}
	}
}

func TestScores(t *testing.T) {
	many := models.Entity{GramStatus: "Positive", Morphology: "rod", Conditions: []string{"1", "2", "3", "4", "5", "6"}}
	if got := SimilarityScore(many, many); got != 100 {
		t.Errorf("SimilarityScore capped = %v, want 100", got)
	}
	if got := SimilarityScore(models.Entity{}, models.Entity{}); got != 0 {
		t.Errorf("SimilarityScore of empty entities = %v, want 0", got)
	}
	if got := DifficultyScore(models.Entity{Conditions: make([]string, 12)}); got != 100 {
		t.Errorf("DifficultyScore = %v, want 100", got)
	}
	b := models.BehaviorSummary{MostViewedCategories: []string{"X"}}
	if got := RelevanceScore(models.Entity{Category: "Y"}, b); got != 50 {
		t.Errorf("RelevanceScore base = %v, want 50", got)
	}
}

// ── Categorize / Learning path ──────────────────────────

func TestCategorize(t *testing.T) {
	recs := []models.Recommendation{
		{Entity: models.Entity{Name: "a"}, Category: models.RecSimilar},
		{Entity: models.Entity{Name: "b"}, Category: "Trending"},
		{Entity: models.Entity{Name: "c"}, Category: models.RecSimilar},
	}
	got := Categorize(recs)
	if len(got) != 2 {
		t.Errorf("groups = %v, want Similar and Discover only", got)
	}
	if len(got[models.RecSimilar]) != 2 || len(got[models.RecDiscover]) != 1 {
		t.Errorf("groups = %+v", got)
	}
	if len(Categorize(nil)) != 0 {
		t.Error("empty input produced groups")
	}
}

func TestLearningPathSystematic(t *testing.T) {
	var p []models.Entity
	for i := 0; i < 7; i++ {
		p = append(p, models.Entity{Name: fmt.Sprint("pos", i), GramStatus: "positive"})
	}
	p = append(p, models.Entity{Name: "neg", GramStatus: "Negative"})

	sections := LearningPath(p, models.Preferences{SystematicLearning: true}, models.BehaviorSummary{})

	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Section != "Gram-Positive Bacteria" || len(sections[0].Pathogens) != 5 {
		t.Errorf("positive section = %s with %d", sections[0].Section, len(sections[0].Pathogens))
	}
	if sections[1].Reasoning != "Systematic learning: Gram-negative organisms" || len(sections[1].Pathogens) != 1 {
		t.Errorf("negative section = %+v", sections[1])
	}
}

func TestLearningPathInterests(t *testing.T) {
	behavior := models.BehaviorSummary{MostViewedCategories: []string{"Genitourinary", "Nowhere", "Respiratory"}}

	sections := LearningPath(pool, models.DefaultPreferences(), behavior)

	if len(sections) != 2 {
		t.Fatalf("sections = %+v, want 2", sections)
	}
	if sections[0].Section != "Genitourinary Focus" || len(sections[0].Pathogens) != 2 {
		t.Errorf("first = %+v", sections[0])
	}
	if sections[1].Reasoning != "Based on your interest in Respiratory" {
		t.Errorf("second reasoning = %q", sections[1].Reasoning)
	}
	if got := LearningPath(pool, models.DefaultPreferences(), models.BehaviorSummary{}); got == nil || len(got) != 0 {
		t.Errorf("no interests: %v", got)
	}
}
