package quiz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/abx-learn/backend/internal/models"
)

const (
	// trendWindow is the size of both the recent and the older window.
	trendWindow = 5
	// trendThreshold is the score difference, in percentage points, that
	// counts as a change.
	trendThreshold = 5.0

	recentQuizCount = 5

	weakAccuracyBelow = 70
	weakMinQuestions  = 3

	streakScore = 80
)

// topicKeywords maps a topic to the substrings that identify it in a
// question. Order is the order topics are first reported in.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"pneumonia", []string{"pneumonia"}},
	{"uti", []string{"uti", "urinary"}},
	{"sepsis", []string{"sepsis"}},
	{"meningitis", []string{"meningitis"}},
	{"antibiotics", []string{"antibiotic", "antimicrobial"}},
}

const generalTopic = "general"

// ComputeStats derives every statistic from the full history.
func ComputeStats(history []models.QuizAttempt) models.QuizStats {
	stats := models.QuizStats{
		TotalQuizzes:     len(history),
		RecentQuizzes:    RecentQuizzes(history, recentQuizCount),
		ImprovementTrend: ImprovementTrend(history),
		WeakAreas:        WeakAreas(history),
		StreakCount:      StreakCount(history),
	}
	if len(history) == 0 {
		return stats
	}

	sum := 0
	for _, a := range history {
		sum += a.ScorePercentage
		if a.ScorePercentage > stats.BestScore {
			stats.BestScore = a.ScorePercentage
		}
	}
	stats.AverageScore = int(math.Round(float64(sum) / float64(len(history))))
	return stats
}

// RecentQuizzes returns the last n attempts, newest first.
func RecentQuizzes(history []models.QuizAttempt, n int) []models.QuizAttempt {
	start := len(history) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.QuizAttempt, 0, len(history)-start)
	for i := len(history) - 1; i >= start; i-- {
		out = append(out, history[i])
	}
	return out
}

// ImprovementTrend compares the mean score of the last five attempts with the
// five before them.
func ImprovementTrend(history []models.QuizAttempt) string {
	if len(history) < 2*trendWindow {
		return models.TrendInsufficientData
	}
	n := len(history)
	recent := meanScore(history[n-trendWindow:])
	older := meanScore(history[n-2*trendWindow : n-trendWindow])

	switch diff := recent - older; {
	case diff > trendThreshold:
		return models.TrendImproving
	case diff < -trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func meanScore(attempts []models.QuizAttempt) float64 {
	sum := 0
	for _, a := range attempts {
		sum += a.ScorePercentage
	}
	return float64(sum) / float64(len(attempts))
}

// StreakCount counts consecutive attempts scoring at least 80, newest first.
func StreakCount(history []models.QuizAttempt) int {
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ScorePercentage < streakScore {
			break
		}
		streak++
	}
	return streak
}

// TopicsFor returns every topic a question mentions, or "general" if none.
func TopicsFor(questionText string) []string {
	text := strings.ToLower(questionText)
	var topics []string
	for _, tk := range topicKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(text, kw) {
				topics = append(topics, tk.topic)
				break
			}
		}
	}
	if len(topics) == 0 {
		return []string{generalTopic}
	}
	return topics
}

type tally struct {
	correct, total int
}

// WeakAreas lists topics answered at least three times with under 70%
// accuracy, weakest first. Ties keep the order topics were first seen.
func WeakAreas(history []models.QuizAttempt) []models.WeakArea {
	var order []string
	tallies := make(map[string]*tally)

	for _, attempt := range history {
		for _, ans := range attempt.Answers {
			for _, topic := range TopicsFor(ans.QuestionText) {
				t, ok := tallies[topic]
				if !ok {
					t = &tally{}
					tallies[topic] = t
					order = append(order, topic)
				}
				t.total++
				if ans.IsCorrect {
					t.correct++
				}
			}
		}
	}

	weak := []models.WeakArea{}
	for _, topic := range order {
		t := tallies[topic]
		acc := percent(t.correct, t.total)
		if acc < weakAccuracyBelow && t.total >= weakMinQuestions {
			weak = append(weak, models.WeakArea{Topic: topic, Accuracy: acc, TotalQuestions: t.total})
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Accuracy < weak[j].Accuracy })
	return weak
}

// TopicPerformance aggregates answers whose question text contains topic,
// case-insensitively. It returns nil when no question matches.
func TopicPerformance(history []models.QuizAttempt, topic string) *models.TopicPerformance {
	needle := strings.ToLower(topic)
	var t tally
	for _, attempt := range history {
		for _, ans := range attempt.Answers {
			if !strings.Contains(strings.ToLower(ans.QuestionText), needle) {
				continue
			}
			t.total++
			if ans.IsCorrect {
				t.correct++
			}
		}
	}
	if t.total == 0 {
		return nil
	}
	return &models.TopicPerformance{
		Topic:          topic,
		TotalQuestions: t.total,
		CorrectAnswers: t.correct,
		Accuracy:       percent(t.correct, t.total),
	}
}

// ScorePercentage is round(100 * correct / total).
func ScorePercentage(correct, total int) int {
	return percent(correct, total)
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// FormatDuration renders end-start as "<m>m <s>s".
func FormatDuration(start, end time.Time) string {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
