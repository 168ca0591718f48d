package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"trivia-service/internal/domain"
)

const (
	questionPlaceholder = "Error: could not generate the question"
	answerPlaceholder   = "Error: could not generate the expected answer"
	noFeedback          = "No feedback available"
	evaluationFailed    = "The answer could not be evaluated correctly. Please try again."
)

// Reply keys, English first; the Spanish ones are what older prompts asked for.
var (
	questionKeys = []string{"question", "pregunta"}
	answerKeys   = []string{"expectedAnswer", "expected_answer", "respuestaEsperada", "respuesta_esperada"}
	hintKeys     = []string{"hint", "pista"}
)

// labelPattern finds section labels of the plain-text reply format.
var labelPattern = regexp.MustCompile(`(?i)\b(question|pregunta|expected[_ ]answer|expectedanswer|respuesta[_ ]esperada|respuestaesperada|hint|pista)\s*:`)

// parseQuestion reads a question reply. ok is false when placeholders had to be used.
func parseQuestion(content string) (q domain.Question, ok bool) {
	if q, ok := parseQuestionJSON(content); ok {
		return q, true
	}

	sections := labelledSections(content)
	q.Question = sections["question"]
	q.ExpectedAnswer = sections["answer"]
	q.Hint = cleanHint(sections["hint"])
	ok = q.Question != "" && q.ExpectedAnswer != ""

	if q.Question == "" {
		q.Question = firstLine(content)
		if q.Question == "" {
			q.Question = questionPlaceholder
		}
	}
	if q.ExpectedAnswer == "" {
		q.ExpectedAnswer = answerPlaceholder
	}
	return q, ok
}

func parseQuestionJSON(content string) (domain.Question, bool) {
	raw := extractJSON(content)
	if raw == "" {
		return domain.Question{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return domain.Question{}, false
	}

	q := domain.Question{
		Question:       lookupString(fields, questionKeys),
		ExpectedAnswer: lookupString(fields, answerKeys),
		Hint:           cleanHint(lookupString(fields, hintKeys)),
	}
	if q.Question == "" || q.ExpectedAnswer == "" {
		return domain.Question{}, false
	}
	return q, true
}

func lookupString(fields map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// labelledSections splits "QUESTION: ... EXPECTED_ANSWER: ... HINT: ..." into fields.
// Each section runs until the next label; the first occurrence of a field wins.
func labelledSections(content string) map[string]string {
	out := map[string]string{}
	locs := labelPattern.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		field := labelField(content[loc[2]:loc[3]])
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = strings.TrimSpace(content[loc[1]:end])
	}
	return out
}

func labelField(label string) string {
	switch l := strings.ToLower(label); {
	case l == "question" || l == "pregunta":
		return "question"
	case l == "hint" || l == "pista":
		return "hint"
	default:
		return "answer"
	}
}

func cleanHint(h string) string {
	h = strings.TrimSpace(h)
	if strings.EqualFold(h, "null") {
		return ""
	}
	return h
}

func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// evaluationSchema is what a grading reply must look like before its numbers are trusted.
// Numbers may arrive quoted. accuracy and feedback may be missing or null.
const evaluationSchema = `{
  "type": "object",
  "properties": {
    "isCorrect": {"type": "boolean"},
    "score": {"type": ["number", "string"], "pattern": "^\\s*-?[0-9]+(\\.[0-9]+)?\\s*$"},
    "accuracy": {"type": ["number", "string", "null"], "pattern": "^\\s*-?[0-9]+(\\.[0-9]+)?\\s*$"},
    "feedback": {"type": ["string", "null"]}
  },
  "required": ["isCorrect", "score"]
}`

var compiledEvaluationSchema = mustCompileSchema("schema://evaluation.json", evaluationSchema)

func mustCompileSchema(url, def string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse schema %s: %v", url, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", url, err))
	}
	return c.MustCompile(url)
}

type evaluationReply struct {
	IsCorrect bool        `json:"isCorrect"`
	Score     gradeNumber `json:"score"`
	Accuracy  gradeNumber `json:"accuracy"`
	Feedback  string      `json:"feedback"`
}

// gradeNumber decodes a JSON number, a numeric string or null (as 0).
type gradeNumber float64

func (n *gradeNumber) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", raw)
	}
	*n = gradeNumber(v)
	return nil
}

var errNoJSON = errors.New("no JSON object in reply")

// parseEvaluation validates and normalizes a grading reply.
func parseEvaluation(content string) (domain.Evaluation, error) {
	raw := extractJSON(content)
	if raw == "" {
		return domain.Evaluation{}, errNoJSON
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledEvaluationSchema.Validate(doc); err != nil {
		return domain.Evaluation{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var reply evaluationReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return domain.Evaluation{}, fmt.Errorf("decode evaluation: %w", err)
	}

	feedback := strings.TrimSpace(reply.Feedback)
	if feedback == "" {
		feedback = noFeedback
	}
	return domain.Evaluation{
		IsCorrect: reply.IsCorrect,
		Score:     clamp(float64(reply.Score), 0, 10),
		Accuracy:  clamp(float64(reply.Accuracy), 0, 100),
		Feedback:  feedback,
	}, nil
}

func fallbackEvaluation() domain.Evaluation {
	return domain.Evaluation{Feedback: evaluationFailed}
}

// clamp rounds v to the nearest integer inside [lo, hi].
func clamp(v float64, lo, hi int) int {
	v = math.Round(v)
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int(v)
}
