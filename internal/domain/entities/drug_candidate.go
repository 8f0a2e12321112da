package entities

import "time"

// Bounds for the safety and efficacy scores
const (
	MinScore = 1
	MaxScore = 10
)

// FeatureNames is the column order the classifier was trained on.
var FeatureNames = []string{FieldPhase, "safety_data", "efficacy_data", FieldTrialResults}

// DrugCandidateRecord is one submitted form. It is never persisted.
type DrugCandidateRecord struct {
	DrugName     string `json:"drug_name"`
	Phase        string `json:"phase"`
	SafetyData   int    `json:"safety_data"`
	EfficacyData int    `json:"efficacy_data"`
	TrialResults string `json:"trial_results"`
}

// FeatureVector is the numeric projection of a record handed to the
// classifier. It has no drug name.
type FeatureVector struct {
	Phase        int `json:"phase"`
	SafetyData   int `json:"safety_data"`
	EfficacyData int `json:"efficacy_data"`
	TrialResults int `json:"trial_results"`
}

// Values returns the vector in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		float64(f.Phase),
		float64(f.SafetyData),
		float64(f.EfficacyData),
		float64(f.TrialResults),
	}
}

// Verdict is the compliance label derived from the classifier output.
type Verdict string

const (
	VerdictCompliant    Verdict = "compliant"
	VerdictNonCompliant Verdict = "non_compliant"
)

// VerdictFromPrediction maps 1 to compliant and anything else to non-compliant.
func VerdictFromPrediction(prediction int) Verdict {
	if prediction == 1 {
		return VerdictCompliant
	}
	return VerdictNonCompliant
}

// Message returns the text shown to the user for the verdict.
func (v Verdict) Message() string {
	if v == VerdictCompliant {
		return "The drug pipeline is compliant with FDA regulations."
	}
	return "The drug pipeline is non-compliant with FDA regulations."
}

// EvaluationStatus tells whether a verdict was computed.
type EvaluationStatus string

const (
	EvaluationStatusVerdict EvaluationStatus = "verdict"
	EvaluationStatusWarning EvaluationStatus = "warning"
)

// MissingDrugNameMessage is shown when no verdict was computed because the
// drug name was left empty.
const MissingDrugNameMessage = "Please enter a drug name to check compliance."

// Evaluation is the outcome of one compliance check.
type Evaluation struct {
	ID           string           `json:"id"`
	DrugName     string           `json:"drug_name"`
	Status       EvaluationStatus `json:"status"`
	Verdict      Verdict          `json:"verdict,omitempty"`
	Compliant    bool             `json:"compliant"`
	Message      string           `json:"message"`
	Warnings     []string         `json:"warnings,omitempty"`
	Features     *FeatureVector   `json:"features,omitempty"`
	ModelVersion string           `json:"model_version,omitempty"`
	EvaluatedAt  time.Time        `json:"evaluated_at"`
}

// HasVerdict reports whether the classifier was consulted.
func (e *Evaluation) HasVerdict() bool {
	return e.Status == EvaluationStatusVerdict
}
