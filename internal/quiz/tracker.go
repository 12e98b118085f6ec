package quiz

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abx-learn/backend/internal/kvstore"
	"github.com/abx-learn/backend/internal/logging"
	"github.com/abx-learn/backend/internal/metrics"
	"github.com/abx-learn/backend/internal/models"
	"github.com/abx-learn/backend/internal/persist"
)

// DefaultHistoryKey is the store key completed attempts are kept under.
const DefaultHistoryKey = "quizHistory"

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Tracker runs one learner's quiz sessions and owns their history.
//
// Session states: no session, in progress. StartQuiz always begins a fresh
// session, discarding any unfinished one. CompleteQuiz and
// ResetCurrentSession return to no session.
type Tracker struct {
	mu      sync.Mutex
	clock   Clock
	session *models.QuizSession
	history *persist.Value[[]models.QuizAttempt]
	log     zerolog.Logger
}

func NewTracker(store kvstore.Store, historyKey string) *Tracker {
	return NewTrackerWithClock(store, historyKey, realClock{})
}

// NewTrackerWithClock creates a Tracker with a custom clock (for testing).
func NewTrackerWithClock(store kvstore.Store, historyKey string, clock Clock) *Tracker {
	if historyKey == "" {
		historyKey = DefaultHistoryKey
	}
	return &Tracker{
		clock: clock,
		history: persist.New(store, historyKey, func() []models.QuizAttempt {
			return []models.QuizAttempt{}
		}),
		log: logging.WithComponent("quiz"),
	}
}

// Watch keeps history in sync with writes announced by n.
func (t *Tracker) Watch(n kvstore.Notifier) func() {
	return t.history.Watch(n)
}

// StartQuiz begins a new session and returns a copy of it.
func (t *Tracker) StartQuiz(quizID string, totalQuestions int) models.QuizSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil {
		t.log.Debug().Str("quiz_id", t.session.QuizID).Msg("discarding unfinished session")
	}
	t.session = &models.QuizSession{
		QuizID:         quizID,
		TotalQuestions: totalQuestions,
		StartTime:      t.clock.Now(),
		Answers:        []models.AnswerRecord{},
	}
	return copySession(t.session)
}

// RecordAnswer appends an answer to the active session. It returns false and
// does nothing when no session is active. Indexes beyond TotalQuestions are
// accepted.
func (t *Tracker) RecordAnswer(questionIndex, selectedAnswer, correctAnswer int, questionText string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return false
	}
	t.session.Answers = append(t.session.Answers, models.AnswerRecord{
		QuestionIndex:  questionIndex,
		QuestionText:   questionText,
		SelectedAnswer: selectedAnswer,
		CorrectAnswer:  correctAnswer,
		IsCorrect:      selectedAnswer == correctAnswer,
		Timestamp:      t.clock.Now(),
	})
	t.session.CurrentQuestion = questionIndex + 1
	return true
}

// CompleteQuiz turns the active session into a history entry. It returns nil
// without changing anything when there is no session or it has no answers.
func (t *Tracker) CompleteQuiz() *models.QuizAttempt {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || len(t.session.Answers) == 0 {
		return nil
	}

	s := t.session
	correct := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	denominator := s.TotalQuestions
	if denominator <= 0 {
		denominator = len(s.Answers)
	}

	end := t.clock.Now()
	attempt := models.QuizAttempt{
		QuizID:          s.QuizID,
		TotalQuestions:  s.TotalQuestions,
		StartTime:       s.StartTime,
		Answers:         append([]models.AnswerRecord(nil), s.Answers...),
		CurrentQuestion: s.CurrentQuestion,
		EndTime:         end,
		CorrectAnswers:  correct,
		ScorePercentage: ScorePercentage(correct, denominator),
		Duration:        FormatDuration(s.StartTime, end),
		CompletedAt:     end,
	}

	t.history.Update(func(h []models.QuizAttempt) []models.QuizAttempt {
		return append(h[:len(h):len(h)], attempt)
	})
	t.session = nil

	metrics.QuizCompletions.Inc()
	metrics.QuizScores.Observe(float64(attempt.ScorePercentage))
	t.log.Info().
		Str("quiz_id", attempt.QuizID).
		Int("score", attempt.ScorePercentage).
		Msg("quiz completed")

	return &attempt
}

// ResetCurrentSession drops the active session without recording it.
func (t *Tracker) ResetCurrentSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session = nil
}

// ClearHistory empties the stored history.
func (t *Tracker) ClearHistory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history.Set([]models.QuizAttempt{})
}

// CurrentSession returns a copy of the active session, or nil.
func (t *Tracker) CurrentSession() *models.QuizSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil
	}
	s := copySession(t.session)
	return &s
}

func (t *Tracker) History() []models.QuizAttempt {
	h := t.history.Get()
	return append([]models.QuizAttempt{}, h...)
}

func (t *Tracker) Stats() models.QuizStats {
	return ComputeStats(t.history.Get())
}

func (t *Tracker) TopicPerformance(topic string) *models.TopicPerformance {
	return TopicPerformance(t.history.Get(), topic)
}

func copySession(s *models.QuizSession) models.QuizSession {
	out := *s
	out.Answers = append([]models.AnswerRecord{}, s.Answers...)
	return out
}
