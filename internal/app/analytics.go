package app

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"trivia-service/internal/domain"
)

const (
	maxAreas          = 3
	keywordsPerAnswer = 3
	minKeywordRunes   = 5
)

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// extractAreas collects keywords from the questions of the answers matching keep:
// the first three words longer than four letters per question, deduplicated, at most three.
func extractAreas(answers []domain.AnswerRecord, keep func(domain.AnswerRecord) bool) []string {
	areas := []string{}
	seen := map[string]bool{}
	for _, a := range answers {
		if !keep(a) {
			continue
		}
		for _, word := range keywords(a.Question) {
			if len(areas) == maxAreas {
				return areas
			}
			if seen[word] {
				continue
			}
			seen[word] = true
			areas = append(areas, word)
		}
	}
	return areas
}

func keywords(text string) []string {
	clean := punctuation.ReplaceAllString(strings.ToLower(text), "")
	out := make([]string, 0, keywordsPerAnswer)
	for _, tok := range strings.Fields(clean) {
		if utf8.RuneCountInString(tok) < minKeywordRunes {
			continue
		}
		out = append(out, tok)
		if len(out) == keywordsPerAnswer {
			break
		}
	}
	return out
}

// fallbackFeedback is used when the oracle cannot write the personalized narrative.
func fallbackFeedback(topic string, total int, summary domain.Summary) string {
	verdict := "You have taken a good first step. With practice and dedication your understanding of the topic will keep growing."
	if summary.CorrectAnswers > summary.IncorrectAnswers {
		verdict = "Excellent work! You show a good command of the topic."
	}
	return fmt.Sprintf(
		"Thanks for completing this trivia on %s! You got %d correct answers out of %d questions, "+
			"with an average accuracy of %d%%. %s Review the questions you found difficult and take "+
			"the time to understand those concepts. Every attempt is a chance to learn. Keep going!",
		topic, summary.CorrectAnswers, total, summary.AverageAccuracy, verdict,
	)
}
