package models

import (
	"math"

	"github.com/goccy/go-json"
)

// ── Exploration Session ─────────────────────────────────

// SessionStats holds live exploration counters. TotalViewed and
// ExplorationDepth always move together.
type SessionStats struct {
	TotalViewed            int            `json:"totalViewed"`
	AverageTimePerPathogen float64        `json:"averageTimePerPathogen"`
	PreferredCategories    map[string]int `json:"preferredCategories"`
	AttributeFocus         map[string]int `json:"attributeFocus"`
	ExplorationDepth       int            `json:"explorationDepth"`
}

const (
	DifficultyAdaptive     = "adaptive"
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

type Preferences struct {
	SystematicLearning     bool     `json:"systematicLearning"`
	PreferSimilarPathogens bool     `json:"preferSimilarPathogens"`
	IncludeRecentlyViewed  bool     `json:"includeRecentlyViewed"`
	DifficultyLevel        string   `json:"difficultyLevel" validate:"oneof=adaptive beginner intermediate advanced"`
	FocusAreas             []string `json:"focusAreas"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		PreferSimilarPathogens: true,
		DifficultyLevel:        DifficultyAdaptive,
		FocusAreas:             []string{},
	}
}

// PreferencesPatch is a partial update; nil fields are left alone.
type PreferencesPatch struct {
	SystematicLearning     *bool     `json:"systematicLearning,omitempty"`
	PreferSimilarPathogens *bool     `json:"preferSimilarPathogens,omitempty"`
	IncludeRecentlyViewed  *bool     `json:"includeRecentlyViewed,omitempty"`
	DifficultyLevel        *string   `json:"difficultyLevel,omitempty" validate:"omitempty,oneof=adaptive beginner intermediate advanced"`
	FocusAreas             *[]string `json:"focusAreas,omitempty"`
}

// ── Interaction History ─────────────────────────────────

// Seconds is a duration in seconds that decodes anything non-numeric as 0.
type Seconds float64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		*s = 0
		return nil
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		*s = 0
		return nil
	}
	*s = Seconds(f)
	return nil
}

// InteractionRecord is one entry of a learner's exploration history.
type InteractionRecord struct {
	Pathogen  *Entity `json:"pathogen"`
	Category  string  `json:"category"`
	TimeSpent Seconds `json:"timeSpent"`
}

// UnmarshalJSON never fails. A record that is not an object decodes as the
// zero record, a pathogen that is not an object as nil, and a category that
// is neither string nor number as "".
func (r *InteractionRecord) UnmarshalJSON(data []byte) error {
	*r = InteractionRecord{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if p, ok := raw["pathogen"]; ok {
		var fields map[string]any
		if json.Unmarshal(p, &fields) == nil && fields != nil {
			e := entityFromMap(fields)
			r.Pathogen = &e
		}
	}
	if c, ok := raw["category"]; ok {
		var v any
		if json.Unmarshal(c, &v) == nil {
			r.Category = looseString(v)
		}
	}
	if ts, ok := raw["timeSpent"]; ok {
		r.TimeSpent.UnmarshalJSON(ts)
	}
	return nil
}

const (
	StyleSystematic = "systematic"
	StyleFocused    = "focused"
	StyleRandom     = "random"

	ProgressionSteady = "steady"
)

type BehaviorSummary struct {
	MostViewedCategories  []string `json:"mostViewedCategories"`
	GramStatusPreference  *string  `json:"gramStatusPreference"`
	AverageSessionLength  float64  `json:"averageSessionLength"`
	ExplorationStyle      string   `json:"explorationStyle"`
	DifficultyProgression string   `json:"difficultyProgression"`
}

// ── Recommendations ─────────────────────────────────────

const (
	RecSimilar         = "Similar"
	RecYourInterests   = "Your Interests"
	RecNextLevel       = "Next Level"
	RecRecentlyPopular = "Recently Popular"
	RecDiscover        = "Discover"
)

type Recommendation struct {
	Entity    Entity  `json:"entity"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
	Category  string  `json:"category"`
}

type LearningSection struct {
	Section   string   `json:"section"`
	Pathogens []Entity `json:"pathogens"`
	Reasoning string   `json:"reasoning"`
}

// ── Requests ────────────────────────────────────────────

type RecordInteractionRequest struct {
	PathogenName    string  `json:"pathogenName"`
	Pathogen        *Entity `json:"pathogen"`
	InteractionType string  `json:"interactionType"`
	TimeSpent       Seconds `json:"timeSpent"`
}

type BehaviorRequest struct {
	History []InteractionRecord `json:"history"`
}

type RecommendationRequest struct {
	PathogenName string              `json:"pathogenName"`
	Pathogen     *Entity             `json:"pathogen"`
	History      []InteractionRecord `json:"history"`
}

type RecommendationResponse struct {
	Behavior        BehaviorSummary             `json:"behavior"`
	Recommendations []Recommendation            `json:"recommendations"`
	ByCategory      map[string][]Recommendation `json:"byCategory"`
}

type LearningPathResponse struct {
	Behavior BehaviorSummary   `json:"behavior"`
	Sections []LearningSection `json:"sections"`
}
