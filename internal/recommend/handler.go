package recommend

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/abx-learn/backend/internal/metrics"
	"github.com/abx-learn/backend/internal/middleware"
	"github.com/abx-learn/backend/internal/models"
	"github.com/abx-learn/backend/internal/session"
)

// Pool is the set of pathogens recommendations are drawn from.
type Pool interface {
	Pathogens() []models.Entity
	Pathogen(name string) (models.Entity, bool)
}

type Handler struct {
	pool     Pool
	sessions *session.Manager
	validate *validator.Validate
}

func NewHandler(pool Pool, sessions *session.Manager) *Handler {
	return &Handler{pool: pool, sessions: sessions, validate: validator.New()}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/explore/interactions", h.RecordInteraction).Methods("POST")
	r.HandleFunc("/explore/session", h.GetSession).Methods("GET")
	r.HandleFunc("/explore/session/reset", h.ResetSession).Methods("POST")
	r.HandleFunc("/explore/preferences", h.GetPreferences).Methods("GET")
	r.HandleFunc("/explore/preferences", h.PatchPreferences).Methods("PATCH")
	r.HandleFunc("/explore/preferences", h.PutPreferences).Methods("PUT")
	r.HandleFunc("/explore/behavior", h.AnalyzeBehavior).Methods("POST")
	r.HandleFunc("/explore/recommendations", h.Recommendations).Methods("POST")
	r.HandleFunc("/explore/learning-path", h.LearningPath).Methods("POST")
}

func getUserID(r *http.Request) (int64, bool) {
	return middleware.UserID(r.Context())
}

func (h *Handler) tracker(w http.ResponseWriter, r *http.Request) (*session.Tracker, bool) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return nil, false
	}
	return h.sessions.For(userID), true
}

// resolve picks the entity a request is about. A name is looked up in the
// pool; an inline entity is used as given. Neither means no entity.
func (h *Handler) resolve(w http.ResponseWriter, name string, inline *models.Entity) (*models.Entity, bool) {
	if name != "" {
		p, ok := h.pool.Pathogen(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Pathogen not found"})
			return nil, false
		}
		return &p, true
	}
	if inline != nil && inline.Name == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "pathogen.name is required"})
		return nil, false
	}
	return inline, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// ── Session ─────────────────────────────────────────────

func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	var req models.RecordInteractionRequest
	if !decode(w, r, &req) {
		return
	}
	entity, ok := h.resolve(w, req.PathogenName, req.Pathogen)
	if !ok {
		return
	}

	t.RecordInteraction(entity, req.InteractionType, float64(req.TimeSpent))
	writeJSON(w, http.StatusOK, t.Stats())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.Stats())
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	t.ResetSession()
	w.WriteHeader(http.StatusNoContent)
}

// ── Preferences ─────────────────────────────────────────

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.Preferences())
}

func (h *Handler) PatchPreferences(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	var patch models.PreferencesPatch
	if !decode(w, r, &patch) {
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficultyLevel must be adaptive, beginner, intermediate or advanced"})
		return
	}
	writeJSON(w, http.StatusOK, t.UpdatePreferences(patch))
}

func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	prefs := models.DefaultPreferences()
	if !decode(w, r, &prefs) {
		return
	}
	if err := h.validate.Struct(prefs); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficultyLevel must be adaptive, beginner, intermediate or advanced"})
		return
	}
	t.SetPreferences(prefs)
	writeJSON(w, http.StatusOK, t.Preferences())
}

// ── Analysis ────────────────────────────────────────────

func (h *Handler) AnalyzeBehavior(w http.ResponseWriter, r *http.Request) {
	var req models.BehaviorRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeBehavior(req.History))
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationRequest
	if !decode(w, r, &req) {
		return
	}
	focal, ok := h.resolve(w, req.PathogenName, req.Pathogen)
	if !ok {
		return
	}

	behavior := AnalyzeBehavior(req.History)
	recs := Recommend(h.pool.Pathogens(), focal, &behavior)
	metrics.RecommendationsServed.Observe(float64(len(recs)))
	writeJSON(w, http.StatusOK, models.RecommendationResponse{
		Behavior:        behavior,
		Recommendations: recs,
		ByCategory:      Categorize(recs),
	})
}

// LearningPath builds sections from the caller's history and stored
// preferences.
func (h *Handler) LearningPath(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	var req models.BehaviorRequest
	if !decode(w, r, &req) {
		return
	}

	behavior := AnalyzeBehavior(req.History)
	writeJSON(w, http.StatusOK, models.LearningPathResponse{
		Behavior: behavior,
		Sections: LearningPath(h.pool.Pathogens(), t.Preferences(), behavior),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
