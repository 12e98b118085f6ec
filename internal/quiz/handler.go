package quiz

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/abx-learn/backend/internal/logging"
	"github.com/abx-learn/backend/internal/middleware"
	"github.com/abx-learn/backend/internal/models"
)

// Planner writes study plans from quiz statistics.
type Planner interface {
	StudyPlan(ctx context.Context, stats models.QuizStats) (*models.StudyPlanResponse, error)
}

type Handler struct {
	trackers *Manager
	planner  Planner
	validate *validator.Validate
}

// NewHandler creates a Handler. planner may be nil, which disables the study
// plan endpoint.
func NewHandler(trackers *Manager, planner Planner) *Handler {
	return &Handler{trackers: trackers, planner: planner, validate: validator.New()}
}

// Register mounts the quiz routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/quiz/start", h.StartQuiz).Methods("POST")
	r.HandleFunc("/quiz/answer", h.RecordAnswer).Methods("POST")
	r.HandleFunc("/quiz/complete", h.CompleteQuiz).Methods("POST")
	r.HandleFunc("/quiz/reset", h.ResetSession).Methods("POST")
	r.HandleFunc("/quiz/session", h.GetSession).Methods("GET")
	r.HandleFunc("/quiz/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/quiz/history", h.ClearHistory).Methods("DELETE")
	r.HandleFunc("/quiz/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/quiz/topics/{topic}", h.GetTopicPerformance).Methods("GET")
	r.HandleFunc("/quiz/study-plan", h.GetStudyPlan).Methods("GET")
}

func getUserID(r *http.Request) (int64, bool) {
	return middleware.UserID(r.Context())
}

func (h *Handler) tracker(w http.ResponseWriter, r *http.Request) (*Tracker, bool) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return nil, false
	}
	return h.trackers.For(userID), true
}

// ── Session ─────────────────────────────────────────────

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	var req models.StartQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "quizId and a positive totalQuestions are required"})
		return
	}

	writeJSON(w, http.StatusCreated, t.StartQuiz(req.QuizID, req.TotalQuestions))
}

func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	var req models.RecordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "questionIndex must not be negative"})
		return
	}

	if !t.RecordAnswer(req.QuestionIndex, req.SelectedAnswer, req.CorrectAnswer, req.QuestionText) {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No quiz in progress"})
		return
	}
	writeJSON(w, http.StatusOK, t.CurrentSession())
}

func (h *Handler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	attempt := t.CompleteQuiz()
	if attempt == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	t.ResetCurrentSession()
	w.WriteHeader(http.StatusNoContent)
}

// GetSession returns the session in progress, or null.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.CurrentSession())
}

// ── History & Stats ─────────────────────────────────────

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.History())
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	t.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.Stats())
}

func (h *Handler) GetTopicPerformance(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}

	perf := t.TopicPerformance(mux.Vars(r)["topic"])
	if perf == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No answers for this topic yet"})
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

func (h *Handler) GetStudyPlan(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tracker(w, r)
	if !ok {
		return
	}
	if h.planner == nil {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Study coach is disabled"})
		return
	}

	plan, err := h.planner.StudyPlan(r.Context(), t.Stats())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("study plan failed")
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to generate study plan"})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
