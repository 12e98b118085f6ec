package coach

import (
	"fmt"
	"strings"

	"github.com/abx-learn/backend/internal/models"
)

func SystemPrompt() string {
	return `You are a clinical pharmacology tutor helping a student learn antibiotic selection and infectious disease management.

You receive the student's quiz statistics and the topics where their accuracy is weakest.
Write a short, concrete study plan:
- One numbered step per weak topic, weakest first.
- Each step names what to review (drug classes, first-line empiric choices, common pathogens) and a way to self-test.
- Keep the whole plan under 200 words.
- Plain text only. No markdown headings, no code fences.`
}

// BuildUserPrompt lists weak areas as "- topic: N% over M questions" lines.
func BuildUserPrompt(stats models.QuizStats, weak []models.WeakArea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quizzes completed: %d\n", stats.TotalQuizzes)
	fmt.Fprintf(&b, "Average score: %d%%\n", stats.AverageScore)
	fmt.Fprintf(&b, "Best score: %d%%\n", stats.BestScore)
	fmt.Fprintf(&b, "Trend: %s\n", strings.ReplaceAll(stats.ImprovementTrend, "_", " "))
	fmt.Fprintf(&b, "Current streak: %d\n", stats.StreakCount)

	if len(weak) == 0 {
		b.WriteString("\nNo weak topics yet. Suggest how to keep improving.\n")
		return b.String()
	}

	b.WriteString("\nWeak topics:\n")
	for _, w := range weak {
		fmt.Fprintf(&b, "- %s: %d%% over %d questions\n", w.Topic, w.Accuracy, w.TotalQuestions)
	}
	return b.String()
}

// cleanResponse strips surrounding code fences a model may add anyway.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], " ") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
