package quiz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/abx-learn/backend/internal/kvstore"
	"github.com/abx-learn/backend/internal/middleware"
	"github.com/abx-learn/backend/internal/models"
)

type stubPlanner struct {
	err error
}

func (p stubPlanner) StudyPlan(ctx context.Context, stats models.QuizStats) (*models.StudyPlanResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.StudyPlanResponse{WeakAreas: stats.WeakAreas, Plan: "review", Model: "stub"}, nil
}

func newTestRouter(planner Planner) http.Handler {
	kv := kvstore.NewMemory()
	r := mux.NewRouter()
	NewHandler(NewManager(kv, kv, ""), planner).Register(r)
	return middleware.LocalUser(r)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQuizFlowOverHTTP(t *testing.T) {
	h := newTestRouter(nil)

	if rec := do(t, h, "POST", "/quiz/complete", ""); rec.Code != http.StatusNoContent {
		t.Errorf("complete without session: %d, want 204", rec.Code)
	}
	if rec := do(t, h, "POST", "/quiz/answer", `{"questionIndex":0,"selectedAnswer":1,"correctAnswer":1}`); rec.Code != http.StatusConflict {
		t.Errorf("answer without session: %d, want 409", rec.Code)
	}

	if rec := do(t, h, "POST", "/quiz/start", `{"quizId":"q1","totalQuestions":3}`); rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	answers := []string{
		`{"questionIndex":0,"selectedAnswer":2,"correctAnswer":2,"questionText":"Pneumonia first line?"}`,
		`{"questionIndex":1,"selectedAnswer":1,"correctAnswer":3,"questionText":"UTI in pregnancy?"}`,
		`{"questionIndex":2,"selectedAnswer":0,"correctAnswer":0,"questionText":"Meningitis empiric?"}`,
	}
	for _, a := range answers {
		if rec := do(t, h, "POST", "/quiz/answer", a); rec.Code != http.StatusOK {
			t.Fatalf("answer: %d %s", rec.Code, rec.Body)
		}
	}

	rec := do(t, h, "POST", "/quiz/complete", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: %d", rec.Code)
	}
	var attempt models.QuizAttempt
	if err := json.Unmarshal(rec.Body.Bytes(), &attempt); err != nil {
		t.Fatal(err)
	}
	if attempt.ScorePercentage != 67 || attempt.CorrectAnswers != 2 {
		t.Errorf("attempt = %+v", attempt)
	}

	if rec := do(t, h, "GET", "/quiz/session", ""); strings.TrimSpace(rec.Body.String()) != "null" {
		t.Errorf("session after complete = %s", rec.Body)
	}

	rec = do(t, h, "GET", "/quiz/stats", "")
	var stats models.QuizStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalQuizzes != 1 || stats.AverageScore != 67 {
		t.Errorf("stats = %+v", stats)
	}

	if rec := do(t, h, "GET", "/quiz/topics/uti", ""); rec.Code != http.StatusOK {
		t.Errorf("topic uti: %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/quiz/topics/sepsis", ""); rec.Code != http.StatusNotFound {
		t.Errorf("topic sepsis: %d, want 404", rec.Code)
	}

	if rec := do(t, h, "DELETE", "/quiz/history", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear history: %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/quiz/history", ""); strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("history after clear = %s", rec.Body)
	}
}

func TestStartQuizValidation(t *testing.T) {
	h := newTestRouter(nil)
	for _, body := range []string{"{", `{"quizId":"","totalQuestions":3}`, `{"quizId":"q","totalQuestions":0}`} {
		if rec := do(t, h, "POST", "/quiz/start", body); rec.Code != http.StatusBadRequest {
			t.Errorf("start %s: %d, want 400", body, rec.Code)
		}
	}
}

func TestStudyPlanEndpoint(t *testing.T) {
	if rec := do(t, newTestRouter(nil), "GET", "/quiz/study-plan", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled coach: %d, want 503", rec.Code)
	}
	if rec := do(t, newTestRouter(stubPlanner{}), "GET", "/quiz/study-plan", ""); rec.Code != http.StatusOK {
		t.Errorf("stub coach: %d, want 200", rec.Code)
	}
	if rec := do(t, newTestRouter(stubPlanner{err: errors.New("boom")}), "GET", "/quiz/study-plan", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("failing coach: %d, want 502", rec.Code)
	}
}

func TestHandlerRequiresUser(t *testing.T) {
	kv := kvstore.NewMemory()
	r := mux.NewRouter()
	NewHandler(NewManager(kv, nil, ""), nil).Register(r)

	if rec := do(t, r, "GET", "/quiz/stats", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no user: %d, want 401", rec.Code)
	}
}
