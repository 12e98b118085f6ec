package models

import "time"

// ── Quiz Sessions ───────────────────────────────────────

type AnswerRecord struct {
	QuestionIndex  int       `json:"questionIndex"`
	QuestionText   string    `json:"questionText"`
	SelectedAnswer int       `json:"selectedAnswer"`
	CorrectAnswer  int       `json:"correctAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	Timestamp      time.Time `json:"timestamp"`
}

// QuizSession is an attempt in progress. At most one is active per tracker.
type QuizSession struct {
	QuizID          string         `json:"quizId"`
	TotalQuestions  int            `json:"totalQuestions"`
	StartTime       time.Time      `json:"startTime"`
	Answers         []AnswerRecord `json:"answers"`
	CurrentQuestion int            `json:"currentQuestion"`
}

// QuizAttempt is a completed session as stored in history.
type QuizAttempt struct {
	QuizID          string         `json:"quizId"`
	TotalQuestions  int            `json:"totalQuestions"`
	StartTime       time.Time      `json:"startTime"`
	Answers         []AnswerRecord `json:"answers"`
	CurrentQuestion int            `json:"currentQuestion"`
	EndTime         time.Time      `json:"endTime"`
	CorrectAnswers  int            `json:"correctAnswers"`
	ScorePercentage int            `json:"scorePercentage"`
	Duration        string         `json:"duration"`
	CompletedAt     time.Time      `json:"completedAt"`
}

// ── Quiz Statistics ─────────────────────────────────────

const (
	TrendInsufficientData = "insufficient_data"
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
)

type QuizStats struct {
	TotalQuizzes     int           `json:"totalQuizzes"`
	AverageScore     int           `json:"averageScore"`
	BestScore        int           `json:"bestScore"`
	RecentQuizzes    []QuizAttempt `json:"recentQuizzes"`
	ImprovementTrend string        `json:"improvementTrend"`
	WeakAreas        []WeakArea    `json:"weakAreas"`
	StreakCount      int           `json:"streakCount"`
}

type WeakArea struct {
	Topic          string `json:"topic"`
	Accuracy       int    `json:"accuracy"`
	TotalQuestions int    `json:"totalQuestions"`
}

type TopicPerformance struct {
	Topic          string `json:"topic"`
	TotalQuestions int    `json:"totalQuestions"`
	CorrectAnswers int    `json:"correctAnswers"`
	Accuracy       int    `json:"accuracy"`
}

// ── Requests ────────────────────────────────────────────

type StartQuizRequest struct {
	QuizID         string `json:"quizId" validate:"required"`
	TotalQuestions int    `json:"totalQuestions" validate:"gt=0"`
}

type RecordAnswerRequest struct {
	QuestionIndex  int    `json:"questionIndex" validate:"gte=0"`
	SelectedAnswer int    `json:"selectedAnswer"`
	CorrectAnswer  int    `json:"correctAnswer"`
	QuestionText   string `json:"questionText"`
}

type StudyPlanResponse struct {
	WeakAreas []WeakArea `json:"weakAreas"`
	Plan      string     `json:"plan"`
	Model     string     `json:"model"`
}
