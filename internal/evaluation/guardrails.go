package evaluation

import "fmt"

// GuardrailConfig sets the minimum quality a model must reach on the golden
// set. Zero values disable a check.
type GuardrailConfig struct {
	MinAccuracy  float64
	MinF1        float64
	MaxErrors    int
	FailOnErrors bool
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	return &Guardrails{config: config}
}

// Violations lists every threshold the summary misses.
func (g *Guardrails) Violations(s *EvalSummary) []string {
	var out []string
	if g.config.MinAccuracy > 0 && s.Accuracy < g.config.MinAccuracy {
		out = append(out, fmt.Sprintf("accuracy %.3f below %.3f", s.Accuracy, g.config.MinAccuracy))
	}
	if g.config.MinF1 > 0 && s.F1 < g.config.MinF1 {
		out = append(out, fmt.Sprintf("f1 %.3f below %.3f", s.F1, g.config.MinF1))
	}
	if g.config.FailOnErrors && s.Errors > g.config.MaxErrors {
		out = append(out, fmt.Sprintf("%d cases errored (max %d)", s.Errors, g.config.MaxErrors))
	}
	return out
}

// Pass reports whether the summary meets every threshold.
func (g *Guardrails) Pass(s *EvalSummary) bool {
	return len(g.Violations(s)) == 0
}
