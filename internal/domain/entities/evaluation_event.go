package entities

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationEventType names what happened to an evaluation
type EvaluationEventType string

const (
	EvaluationEventVerdict EvaluationEventType = "verdict"
	EvaluationEventWarning EvaluationEventType = "warning"
)

// EvaluationEvent is broadcast after every evaluation.
type EvaluationEvent struct {
	ID               string              `json:"id"`
	EvaluationID     string              `json:"evaluation_id"`
	EventType        EvaluationEventType `json:"event_type"`
	DrugName         string              `json:"drug_name"`
	Verdict          Verdict             `json:"verdict,omitempty"`
	Features         *FeatureVector      `json:"features,omitempty"`
	UnseenCategories int                 `json:"unseen_categories"`
	ModelVersion     string              `json:"model_version,omitempty"`
	Timestamp        time.Time           `json:"timestamp"`
}

// NewEvaluationEvent builds the event announcing e
func NewEvaluationEvent(e *Evaluation) *EvaluationEvent {
	eventType := EvaluationEventVerdict
	unseen := 0
	if e.HasVerdict() {
		unseen = len(e.Warnings)
	} else {
		eventType = EvaluationEventWarning
	}

	return &EvaluationEvent{
		ID:               uuid.New().String(),
		EvaluationID:     e.ID,
		EventType:        eventType,
		DrugName:         e.DrugName,
		Verdict:          e.Verdict,
		Features:         e.Features,
		UnseenCategories: unseen,
		ModelVersion:     e.ModelVersion,
		Timestamp:        e.EvaluatedAt,
	}
}
