package domain

import "time"

// Difficulty is the requested hardness of a generated question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TopicConfig is the user-declared trivia subject. It never changes once a session starts.
type TopicConfig struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Context     string     `json:"context,omitempty"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	FocusAreas  []string   `json:"focusAreas,omitempty"`
}

// Question is one generated prompt/answer unit.
type Question struct {
	Question       string     `json:"question"`
	ExpectedAnswer string     `json:"expectedAnswer"`
	Hint           string     `json:"hint,omitempty"`
	Difficulty     Difficulty `json:"difficulty"`
}

// QuestionView is what a player sees before answering; the expected answer is withheld.
type QuestionView struct {
	QuestionNumber int        `json:"questionNumber"`
	Question       string     `json:"question"`
	Hint           string     `json:"hint,omitempty"`
	Difficulty     Difficulty `json:"difficulty"`
}

// View hides the expected answer of q.
func (q Question) View(number int) QuestionView {
	return QuestionView{
		QuestionNumber: number,
		Question:       q.Question,
		Hint:           q.Hint,
		Difficulty:     q.Difficulty,
	}
}

// Evaluation is the oracle's judgement of a single answer.
type Evaluation struct {
	IsCorrect      bool   `json:"isCorrect"`
	Score          int    `json:"score"`
	Accuracy       int    `json:"accuracy"`
	Feedback       string `json:"feedback"`
	ExpectedAnswer string `json:"expectedAnswer"`
}

// AnswerRecord is an immutable ledger entry, one per answered question.
type AnswerRecord struct {
	QuestionNumber int       `json:"questionNumber"`
	Question       string    `json:"question"`
	UserAnswer     string    `json:"userAnswer"`
	ExpectedAnswer string    `json:"expectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	Score          int       `json:"score"`
	Accuracy       int       `json:"accuracy"`
	Feedback       string    `json:"feedback"`
	Timestamp      time.Time `json:"timestamp"`
}

// Progress is derived on demand from the session counters and the ledger.
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Score      int `json:"score"`
	MaxScore   int `json:"maxScore"`
	Percentage int `json:"percentage"`
}

// Summary aggregates a finished run.
type Summary struct {
	CorrectAnswers       int      `json:"correctAnswers"`
	IncorrectAnswers     int      `json:"incorrectAnswers"`
	AverageAccuracy      int      `json:"averageAccuracy"`
	StrongAreas          []string `json:"strongAreas"`
	WeakAreas            []string `json:"weakAreas"`
	PersonalizedFeedback string   `json:"personalizedFeedback,omitempty"`
}

// Results is the end-of-run report handed out once per completed session.
type Results struct {
	SessionID      string         `json:"sessionId"`
	Topic          TopicConfig    `json:"topic"`
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	Duration       int            `json:"duration"`
	TotalQuestions int            `json:"totalQuestions"`
	TotalScore     int            `json:"totalScore"`
	MaxScore       int            `json:"maxScore"`
	Percentage     int            `json:"percentage"`
	Answers        []AnswerRecord `json:"answers"`
	Summary        Summary        `json:"summary"`
}

// Attempt is an archived, completed run of a known user.
type Attempt struct {
	ID          string     `json:"attemptId"`
	SessionID   string     `json:"sessionId"`
	UserID      string     `json:"userId"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	Score       int        `json:"score"`
	MaxScore    int        `json:"maxScore"`
	Percentage  int        `json:"percentage"`
	TotalTime   int        `json:"totalTime"`
	Precision   int        `json:"precision"`
	AttemptedAt time.Time  `json:"attemptedAt"`
	Results     Results    `json:"-"`
}

// StatsAverages are per-user means over all archived attempts.
type StatsAverages struct {
	Score     int `json:"score"`
	Precision int `json:"precision"`
	Time      int `json:"time"`
}

// DifficultyCounts counts attempts per difficulty.
type DifficultyCounts struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Stats is a user's trivia performance across archived attempts.
type Stats struct {
	UserID               string           `json:"userId"`
	TotalAttempts        int              `json:"totalAttempts"`
	Averages             StatsAverages    `json:"averages"`
	AttemptsByDifficulty DifficultyCounts `json:"attemptsByDifficulty"`
}

// QuestionRequest is everything the oracle needs to author the next question.
type QuestionRequest struct {
	Topic      TopicConfig
	Difficulty Difficulty
	Ordinal    int
	Total      int
	Asked      []string
}

// FeedbackRequest summarizes a finished run for the end-of-run narrative.
type FeedbackRequest struct {
	Topic            TopicConfig
	TotalQuestions   int
	CorrectAnswers   int
	IncorrectAnswers int
	AverageAccuracy  int
	TotalScore       int
	MaxScore         int
	Answers          []AnswerRecord
}
