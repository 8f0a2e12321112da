package evaluation

import "github.com/AmmarJamshed/FDA-checker/internal/domain/entities"

// ConfusionMatrix counts verdicts with compliant as the positive class.
type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

// Add records one expected/predicted pair.
func (m *ConfusionMatrix) Add(expected, got entities.Verdict) {
	positive := got == entities.VerdictCompliant
	actual := expected == entities.VerdictCompliant
	switch {
	case positive && actual:
		m.TruePositive++
	case positive && !actual:
		m.FalsePositive++
	case !positive && actual:
		m.FalseNegative++
	default:
		m.TrueNegative++
	}
}

// Total returns the number of recorded pairs.
func (m ConfusionMatrix) Total() int {
	return m.TruePositive + m.FalsePositive + m.TrueNegative + m.FalseNegative
}

// Accuracy is the fraction of correct verdicts. Returns 0.0 when empty.
func (m ConfusionMatrix) Accuracy() float64 {
	return ratio(m.TruePositive+m.TrueNegative, m.Total())
}

// Precision is TP / (TP + FP). Returns 0.0 when nothing was predicted compliant.
func (m ConfusionMatrix) Precision() float64 {
	return ratio(m.TruePositive, m.TruePositive+m.FalsePositive)
}

// Recall is TP / (TP + FN). Returns 0.0 when no case was expected compliant.
func (m ConfusionMatrix) Recall() float64 {
	return ratio(m.TruePositive, m.TruePositive+m.FalseNegative)
}

// F1 is the harmonic mean of precision and recall.
func (m ConfusionMatrix) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0.0
	}
	return 2 * p * r / (p + r)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0.0
	}
	return float64(num) / float64(den)
}
