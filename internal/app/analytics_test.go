package app

import (
	"reflect"
	"strings"
	"testing"

	"trivia-service/internal/domain"
)

func TestExtractAreas(t *testing.T) {
	answers := []domain.AnswerRecord{
		{Question: "¿Qué función cumple la mitocondria en la célula?", Score: 9},
		{Question: "Explain photosynthesis, briefly!", Score: 8},
		{Question: "What about osmosis?", Score: 2},
		{Question: "Name the organelle responsible", Score: 4},
	}

	strong := extractAreas(answers, func(a domain.AnswerRecord) bool { return a.Score >= 8 })
	if want := []string{"función", "cumple", "mitocondria"}; !reflect.DeepEqual(strong, want) {
		t.Fatalf("expected %v, got %v", want, strong)
	}

	weak := extractAreas(answers, func(a domain.AnswerRecord) bool { return a.Score < 5 })
	if want := []string{"about", "osmosis", "organelle"}; !reflect.DeepEqual(weak, want) {
		t.Fatalf("expected %v, got %v", want, weak)
	}
}

func TestExtractAreasDeduplicates(t *testing.T) {
	answers := []domain.AnswerRecord{
		{Question: "Goroutines and channels", Score: 10},
		{Question: "channels, goroutines, select", Score: 10},
	}
	got := extractAreas(answers, func(domain.AnswerRecord) bool { return true })
	if want := []string{"goroutines", "channels", "select"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if none := extractAreas(nil, func(domain.AnswerRecord) bool { return true }); none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestPercentage(t *testing.T) {
	if percentage(0, 0) != 0 {
		t.Fatalf("expected 0 for empty max score")
	}
	if got := percentage(7, 30); got != 23 {
		t.Fatalf("expected 23, got %d", got)
	}
	if got := percentage(5, 10); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestFallbackFeedback(t *testing.T) {
	good := fallbackFeedback("Go", 3, domain.Summary{CorrectAnswers: 2, IncorrectAnswers: 1, AverageAccuracy: 70})
	if !strings.Contains(good, "Excellent work") || !strings.Contains(good, "2 correct answers out of 3") {
		t.Fatalf("unexpected feedback %q", good)
	}
	poor := fallbackFeedback("Go", 3, domain.Summary{CorrectAnswers: 1, IncorrectAnswers: 2})
	if strings.Contains(poor, "Excellent work") {
		t.Fatalf("expected encouraging variant, got %q", poor)
	}
}
