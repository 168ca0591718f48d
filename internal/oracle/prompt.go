package oracle

import (
	"fmt"
	"strings"

	"trivia-service/internal/domain"
)

const questionSystemPrompt = "You are an expert author of educational trivia questions. " +
	"You ALWAYS reply with a single valid JSON object and nothing else: no markdown, no explanations. " +
	"Your reply MUST start with { and end with }."

const evaluationSystemPrompt = "You are a fair, expert grader who gives constructive, detailed feedback. " +
	"You ALWAYS reply with a single valid JSON object and nothing else: no markdown, no explanations. " +
	"Your reply MUST start with { and end with }."

const feedbackSystemPrompt = "You are an expert, approachable and motivating tutor. You write personalized " +
	"feedback that makes students want to keep learning. Your style is conversational, specific and positive."

func difficultyStyle(d domain.Difficulty) string {
	switch d {
	case domain.DifficultyEasy:
		return "conceptual and direct"
	case domain.DifficultyMedium:
		return "one that requires analysis"
	default:
		return "complex, requiring critical thinking"
	}
}

func buildQuestionPrompt(req domain.QuestionRequest) string {
	var b strings.Builder
	b.WriteString("Write ONE trivia question about the following topic:\n\n")
	fmt.Fprintf(&b, "TOPIC: %s\n", req.Topic.Name)
	fmt.Fprintf(&b, "DESCRIPTION: %s\n", req.Topic.Description)
	if req.Topic.Context != "" {
		fmt.Fprintf(&b, "CONTEXT: %s\n", req.Topic.Context)
	}
	if len(req.Topic.FocusAreas) > 0 {
		fmt.Fprintf(&b, "FOCUS AREAS: %s\n", strings.Join(req.Topic.FocusAreas, ", "))
	}

	fmt.Fprintf(&b, "\nDIFFICULTY: %s\n", req.Difficulty)
	fmt.Fprintf(&b, "QUESTION NUMBER: %d of %d\n\n", req.Ordinal, req.Total)

	b.WriteString("QUESTIONS ALREADY ASKED (do not repeat similar subjects):\n")
	for i, q := range req.Asked {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("- The question must call for an open, detailed answer\n")
	fmt.Fprintf(&b, "- It must be %s\n", difficultyStyle(req.Difficulty))
	b.WriteString("- Do not write multiple-choice questions\n")
	b.WriteString("- The expected answer must be clear and gradable\n\n")
	b.WriteString("Reply ONLY with a valid JSON object in exactly this shape:\n\n")
	b.WriteString("{\n")
	b.WriteString(`  "question": "Your question here",` + "\n")
	b.WriteString(`  "expectedAnswer": "The detailed expected answer",` + "\n")
	b.WriteString(`  "hint": "An optional useful hint, or null"` + "\n")
	b.WriteString("}\n\n")
	b.WriteString("Do NOT add any other text, explanation or markdown. ONLY the JSON object.\n")
	return b.String()
}

func buildEvaluationPrompt(question, expectedAnswer, userAnswer string) string {
	var b strings.Builder
	b.WriteString("Grade the following answer to a trivia question:\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n", question)
	fmt.Fprintf(&b, "EXPECTED ANSWER: %s\n", expectedAnswer)
	fmt.Fprintf(&b, "USER ANSWER: %s\n\n", userAnswer)
	b.WriteString(`Grade the answer on, in order of importance:
1. Does it grasp the main idea of the concept? (weight: 50%)
2. Can it explain it reasonably in its own words? (weight: 30%)
3. Does it mention related details or concepts? (weight: 20%)

NOTE: exact technical terminology is NOT required when understanding is evident.

Return your grade in this JSON format:
{
  "isCorrect": true/false,
  "score": number from 0 to 10,
  "accuracy": percentage from 0 to 100,
  "feedback": "Constructive, encouraging feedback"
}

SCORING (be generous):
- 9-10: excellent understanding with extra detail
- 7-8: good understanding of the main concept
- 5-6: basic or partial understanding
- 3-4: very limited understanding with something correct
- 0-2: completely wrong or unrelated

IMPORTANT: if the user shows they understand the main concept, even simply, give AT LEAST 6/10. Be motivating and acknowledge the effort.
`)
	return b.String()
}

func buildFeedbackPrompt(req domain.FeedbackRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have just finished a trivia session on %q with a student.\n\n", req.Topic.Name)

	percentage := 0
	if req.MaxScore > 0 {
		percentage = req.TotalScore * 100 / req.MaxScore
	}
	b.WriteString("OVERALL RESULTS:\n")
	fmt.Fprintf(&b, "- Total questions: %d\n", req.TotalQuestions)
	fmt.Fprintf(&b, "- Correct answers: %d\n", req.CorrectAnswers)
	fmt.Fprintf(&b, "- Incorrect answers: %d\n", req.IncorrectAnswers)
	fmt.Fprintf(&b, "- Average accuracy: %d%%\n", req.AverageAccuracy)
	fmt.Fprintf(&b, "- Total score: %d/%d points (%d%%)\n\n", req.TotalScore, req.MaxScore, percentage)

	b.WriteString("DETAIL OF EVERY ANSWER:\n")
	for i, a := range req.Answers {
		if i > 0 {
			b.WriteString("---\n")
		}
		verdict := "incorrect"
		if a.IsCorrect {
			verdict = "correct"
		}
		fmt.Fprintf(&b, "Question %d: %s\n", i+1, a.Question)
		fmt.Fprintf(&b, "User answer: %s\n", truncate(a.UserAnswer, 200))
		fmt.Fprintf(&b, "Grade: %s, score %d/10 (%d%% accuracy)\n", verdict, a.Score, a.Accuracy)
		fmt.Fprintf(&b, "Feedback given: %s\n", a.Feedback)
	}

	b.WriteString(`
INSTRUCTIONS:
1) Infer the main domain from the topic name and the concepts visible in the answers. Do not invent facts.
2) Write 130-170 words of natural prose (no bullet points): a short friendly greeting; the strengths,
naming the questions answered well and what understanding they show; how to improve, naming the
questions that were hard and proposing two concrete actions suited to the detected domain; a short,
realistic, motivating closing.

STYLE: second person, friendly and human, focused on the academic side, no lists or numbering.
Even with a low score the feedback must be constructive and never discouraging.
`)
	return b.String()
}
