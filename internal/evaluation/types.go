package evaluation

import (
	"time"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// Difficulty is a free label for how borderline a golden case is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid checks if the difficulty is one of the defined constants.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// GoldenCase is a labeled drug candidate with the verdict it should receive.
type GoldenCase struct {
	ID         string                       `json:"id"`
	Record     entities.DrugCandidateRecord `json:"record"`
	Expected   entities.Verdict             `json:"expected"`
	Difficulty Difficulty                   `json:"difficulty"`
}

// EvalResult holds the outcome for a single case.
type EvalResult struct {
	CaseID     string
	Difficulty Difficulty
	Expected   entities.Verdict
	Got        entities.Verdict
	HasVerdict bool
	Unseen     int
	Latency    time.Duration
	Err        error
}

// Correct reports whether the service produced the expected verdict.
func (r EvalResult) Correct() bool {
	return r.Err == nil && r.HasVerdict && r.Got == r.Expected
}

// EvalSummary holds aggregate metrics across all golden cases.
type EvalSummary struct {
	TotalCases   int                               `json:"total_cases"`
	Evaluated    int                               `json:"evaluated"`
	Errors       int                               `json:"errors"`
	NoVerdict    int                               `json:"no_verdict"`
	Accuracy     float64                           `json:"accuracy"`
	Precision    float64                           `json:"precision"`
	Recall       float64                           `json:"recall"`
	F1           float64                           `json:"f1"`
	Confusion    ConfusionMatrix                   `json:"confusion_matrix"`
	UnseenCount  int                               `json:"unseen_category_count"`
	AvgLatency   time.Duration                     `json:"avg_latency_ns"`
	ByDifficulty map[Difficulty]*DifficultySummary `json:"by_difficulty"`
	Mispredicted []string                          `json:"mispredicted,omitempty"`
}

// DifficultySummary holds accuracy grouped by difficulty.
type DifficultySummary struct {
	Count    int     `json:"count"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}
