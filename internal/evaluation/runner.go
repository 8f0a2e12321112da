package evaluation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// Evaluator is satisfied by the compliance service.
type Evaluator interface {
	Evaluate(ctx context.Context, record *entities.DrugCandidateRecord) (*entities.Evaluation, error)
}

// Runner runs evaluation across a set of golden cases.
type Runner struct {
	evaluator Evaluator
}

func NewRunner(evaluator Evaluator) *Runner {
	return &Runner{evaluator: evaluator}
}

// Run evaluates every case. A case that errors or gets no verdict counts
// against accuracy but not against the confusion matrix.
func (r *Runner) Run(ctx context.Context, cases []GoldenCase) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalCases:   len(cases),
		ByDifficulty: make(map[Difficulty]*DifficultySummary),
	}

	for _, gc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record := gc.Record
		start := time.Now()
		evaluation, err := r.evaluator.Evaluate(ctx, &record)

		result := EvalResult{
			CaseID:     gc.ID,
			Difficulty: gc.Difficulty,
			Expected:   gc.Expected,
			Latency:    time.Since(start),
			Err:        err,
		}
		if err == nil {
			result.HasVerdict = evaluation.HasVerdict()
			result.Got = evaluation.Verdict
			if result.HasVerdict {
				// warnings on a verdict are unseen-category notices
				result.Unseen = len(evaluation.Warnings)
			}
		} else {
			log.Debug().Err(err).Str("case", gc.ID).Msg("golden case failed")
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.AvgLatency += res.Latency
	s.UnseenCount += res.Unseen

	switch {
	case res.Err != nil:
		s.Errors++
	case !res.HasVerdict:
		s.NoVerdict++
	default:
		s.Evaluated++
		s.Confusion.Add(res.Expected, res.Got)
	}
	if !res.Correct() {
		s.Mispredicted = append(s.Mispredicted, res.CaseID)
	}

	ds, ok := s.ByDifficulty[res.Difficulty]
	if !ok {
		ds = &DifficultySummary{}
		s.ByDifficulty[res.Difficulty] = ds
	}
	ds.Count++
	if res.Correct() {
		ds.Correct++
	}
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalCases > 0 {
		s.AvgLatency /= time.Duration(s.TotalCases)
		correct := s.Confusion.TruePositive + s.Confusion.TrueNegative
		s.Accuracy = ratio(correct, s.TotalCases)
	}
	s.Precision = s.Confusion.Precision()
	s.Recall = s.Confusion.Recall()
	s.F1 = s.Confusion.F1()

	for _, ds := range s.ByDifficulty {
		ds.Accuracy = ratio(ds.Correct, ds.Count)
	}
}
