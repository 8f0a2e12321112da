package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/providers"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

// UnseenCategoryPolicy decides what happens to a categorical value outside
// its vocabulary.
type UnseenCategoryPolicy string

const (
	// UnseenDegrade encodes the value as UnseenCode, evaluates anyway and
	// attaches a warning to the result.
	UnseenDegrade UnseenCategoryPolicy = "degrade"
	// UnseenReject fails the request with a validation error.
	UnseenReject UnseenCategoryPolicy = "reject"
)

// DrugNamePolicy decides what happens when the drug name is blank.
type DrugNamePolicy string

const (
	DrugNameAllow  DrugNamePolicy = "allow"
	DrugNameWarn   DrugNamePolicy = "warn"
	DrugNameReject DrugNamePolicy = "reject"
)

// ComplianceOptions configures the request-time policies.
type ComplianceOptions struct {
	UnseenCategory UnseenCategoryPolicy
	DrugName       DrugNamePolicy
}

// DefaultComplianceOptions degrades on unseen categories and warns on a
// blank drug name.
func DefaultComplianceOptions() ComplianceOptions {
	return ComplianceOptions{
		UnseenCategory: UnseenDegrade,
		DrugName:       DrugNameWarn,
	}
}

// ComplianceService turns a submitted record into a compliance verdict.
type ComplianceService struct {
	model   *ModelContext
	opts    ComplianceOptions
	metrics *observability.Metrics
	events  providers.EventPublisher
	now     func() time.Time
	newID   func() string
}

// NewComplianceService creates a compliance service. metrics may be nil.
func NewComplianceService(model *ModelContext, opts ComplianceOptions, metrics *observability.Metrics) *ComplianceService {
	if opts.UnseenCategory == "" {
		opts.UnseenCategory = UnseenDegrade
	}
	if opts.DrugName == "" {
		opts.DrugName = DrugNameWarn
	}
	return &ComplianceService{
		model:   model,
		opts:    opts,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

// WithEventPublisher makes the service announce every evaluation on the
// evaluations channel and on its verdict channel.
func (s *ComplianceService) WithEventPublisher(publisher providers.EventPublisher) *ComplianceService {
	s.events = publisher
	return s
}

// Model returns the model context the service evaluates with.
func (s *ComplianceService) Model() *ModelContext {
	return s.model
}

// Evaluate validates the record, encodes it and asks the classifier for a
// verdict. Malformed input is a VALIDATION error and never reaches the
// classifier.
func (s *ComplianceService) Evaluate(ctx context.Context, record *entities.DrugCandidateRecord) (*entities.Evaluation, error) {
	ctx, span := observability.StartSpan(ctx, "ComplianceService.Evaluate")
	defer span.End()

	logger := observability.LoggerFromContext(ctx)

	if record == nil {
		return nil, apperrors.NewValidationError("record is required")
	}
	if err := validateScores(record); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if strings.TrimSpace(record.DrugName) == "" {
		switch s.opts.DrugName {
		case DrugNameReject:
			err := apperrors.NewValidationError("drug_name is required")
			observability.RecordError(span, err)
			return nil, err
		case DrugNameWarn:
			observability.RecordWarning(ctx, s.metrics, "missing_drug_name")
			logger.Debug().Msg("drug name missing, no verdict computed")
			evaluation := &entities.Evaluation{
				ID:          s.newID(),
				Status:      entities.EvaluationStatusWarning,
				Message:     entities.MissingDrugNameMessage,
				Warnings:    []string{"drug_name is empty"},
				EvaluatedAt: s.now(),
			}
			s.publish(ctx, evaluation)
			return evaluation, nil
		}
	}

	features, warnings, err := s.Encode(ctx, record)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	label, err := s.model.Classifier().Predict(ctx, features)
	observability.RecordClassifierDuration(ctx, s.metrics, time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError("classifier prediction failed", err)
	}

	verdict := entities.VerdictFromPrediction(label)
	observability.RecordVerdict(ctx, s.metrics, string(verdict))
	observability.SetSpanAttributes(span,
		attribute.String("compliance.verdict", string(verdict)),
		attribute.Int("compliance.unseen_categories", len(warnings)),
	)

	evaluation := &entities.Evaluation{
		ID:           s.newID(),
		DrugName:     record.DrugName,
		Status:       entities.EvaluationStatusVerdict,
		Verdict:      verdict,
		Compliant:    verdict == entities.VerdictCompliant,
		Message:      verdict.Message(),
		Warnings:     warnings,
		Features:     &features,
		ModelVersion: s.model.Info().Version,
		EvaluatedAt:  s.now(),
	}

	logger.Debug().
		Str("evaluation_id", evaluation.ID).
		Str("verdict", string(verdict)).
		Int("prediction", label).
		Int("unseen_categories", len(warnings)).
		Msg("compliance evaluated")

	s.publish(ctx, evaluation)
	return evaluation, nil
}

// publish failures are logged and never fail the evaluation.
func (s *ComplianceService) publish(ctx context.Context, evaluation *entities.Evaluation) {
	if s.events == nil {
		return
	}

	event := entities.NewEvaluationEvent(evaluation)
	channels := []string{providers.EventChannelEvaluations}
	if evaluation.HasVerdict() {
		channels = append(channels, providers.GetVerdictChannel(evaluation.Verdict))
	}

	for _, channel := range channels {
		if err := s.events.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("channel", channel).
				Str("evaluation_id", evaluation.ID).
				Msg("failed to publish evaluation event")
		}
	}
}

// Encode builds the feature vector for record. The drug name is not part of
// the vector. The returned warnings list every categorical value that fell
// outside its vocabulary under the degrade policy.
func (s *ComplianceService) Encode(ctx context.Context, record *entities.DrugCandidateRecord) (entities.FeatureVector, []string, error) {
	var warnings []string

	encode := func(vocab *entities.Vocabulary, value string) (int, error) {
		code, ok := vocab.Encode(value)
		if ok {
			return code, nil
		}
		observability.RecordUnseenCategory(ctx, s.metrics, vocab.Field())
		if s.opts.UnseenCategory == UnseenReject {
			return 0, apperrors.NewValidationErrorf("%s %q is not one of %s", vocab.Field(), value, strings.Join(vocab.Classes(), ", "))
		}
		warnings = append(warnings, fmt.Sprintf("%s %q is not a known value; encoded as %d", vocab.Field(), value, entities.UnseenCode))
		return code, nil
	}

	phase, err := encode(s.model.Phase(), record.Phase)
	if err != nil {
		return entities.FeatureVector{}, nil, err
	}
	trialResults, err := encode(s.model.TrialResults(), record.TrialResults)
	if err != nil {
		return entities.FeatureVector{}, nil, err
	}

	return entities.FeatureVector{
		Phase:        phase,
		SafetyData:   record.SafetyData,
		EfficacyData: record.EfficacyData,
		TrialResults: trialResults,
	}, warnings, nil
}

func validateScores(record *entities.DrugCandidateRecord) error {
	if record.SafetyData < entities.MinScore || record.SafetyData > entities.MaxScore {
		return apperrors.NewValidationErrorf("safety_data must be between %d and %d, got %d", entities.MinScore, entities.MaxScore, record.SafetyData)
	}
	if record.EfficacyData < entities.MinScore || record.EfficacyData > entities.MaxScore {
		return apperrors.NewValidationErrorf("efficacy_data must be between %d and %d, got %d", entities.MinScore, entities.MaxScore, record.EfficacyData)
	}
	return nil
}
