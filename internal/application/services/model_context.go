package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/adapters/artifacts"
	"github.com/AmmarJamshed/FDA-checker/internal/adapters/classifier"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/providers"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

// ModelContext bundles the classifier and the two encoders. It is built once
// at startup, never mutated, and shared by every request.
type ModelContext struct {
	classifier   providers.ComplianceClassifier
	phase        *entities.Vocabulary
	trialResults *entities.Vocabulary
	info         entities.ModelInfo
}

// NewModelContext checks that every part is present and that each
// vocabulary encodes the field it is used for.
func NewModelContext(c providers.ComplianceClassifier, phase, trialResults *entities.Vocabulary, info entities.ModelInfo) (*ModelContext, error) {
	if c == nil {
		return nil, fmt.Errorf("model context: classifier is required")
	}
	if phase == nil || phase.Field() != entities.FieldPhase {
		return nil, fmt.Errorf("model context: a %s vocabulary is required", entities.FieldPhase)
	}
	if trialResults == nil || trialResults.Field() != entities.FieldTrialResults {
		return nil, fmt.Errorf("model context: a %s vocabulary is required", entities.FieldTrialResults)
	}
	return &ModelContext{
		classifier:   c,
		phase:        phase,
		trialResults: trialResults,
		info:         info,
	}, nil
}

// WithClassifier returns a copy that predicts through c, e.g. a caching wrapper.
func (m *ModelContext) WithClassifier(c providers.ComplianceClassifier) *ModelContext {
	cp := *m
	cp.classifier = c
	return &cp
}

func (m *ModelContext) Classifier() providers.ComplianceClassifier { return m.classifier }
func (m *ModelContext) Phase() *entities.Vocabulary                 { return m.phase }
func (m *ModelContext) TrialResults() *entities.Vocabulary          { return m.trialResults }
func (m *ModelContext) Info() entities.ModelInfo                    { return m.info }

// ArtifactRefs names the artifacts to load. An empty encoder ref selects the
// built-in vocabulary for that field.
type ArtifactRefs struct {
	Model               string
	PhaseEncoder        string
	TrialResultsEncoder string
}

// LoadModelContext reads and validates every artifact. Any failure is a
// STARTUP error and the caller must not serve requests.
func LoadModelContext(ctx context.Context, store providers.ArtifactStore, refs ArtifactRefs) (*ModelContext, error) {
	if refs.Model == "" {
		return nil, apperrors.NewStartupError("no classifier artifact configured", nil)
	}

	modelArtifact, err := store.Load(ctx, refs.Model)
	if err != nil {
		return nil, apperrors.NewStartupError(fmt.Sprintf("failed to load classifier %q", refs.Model), err)
	}
	forest, err := classifier.LoadRandomForest(modelArtifact)
	if err != nil {
		return nil, apperrors.NewStartupError(fmt.Sprintf("classifier %q is invalid", refs.Model), err)
	}

	phase, err := loadVocabulary(ctx, store, refs.PhaseEncoder, entities.FieldPhase, entities.DefaultPhaseVocabulary)
	if err != nil {
		return nil, err
	}
	trialResults, err := loadVocabulary(ctx, store, refs.TrialResultsEncoder, entities.FieldTrialResults, entities.DefaultTrialResultsVocabulary)
	if err != nil {
		return nil, err
	}

	info := forest.Info()
	log.Info().
		Str("model", info.Name).
		Str("version", info.Version).
		Int("trees", info.Trees).
		Strs("phase_classes", phase.Classes()).
		Strs("trial_results_classes", trialResults.Classes()).
		Msg("model artifacts loaded")

	mc, err := NewModelContext(forest, phase, trialResults, info)
	if err != nil {
		return nil, apperrors.NewStartupError("model context is incomplete", err)
	}
	return mc, nil
}

func loadVocabulary(ctx context.Context, store providers.ArtifactStore, ref, field string, builtin func() *entities.Vocabulary) (*entities.Vocabulary, error) {
	if ref == "" {
		log.Info().Str("field", field).Msg("no encoder artifact configured, using built-in vocabulary")
		return builtin(), nil
	}

	a, err := store.Load(ctx, ref)
	if err != nil {
		return nil, apperrors.NewStartupError(fmt.Sprintf("failed to load %s encoder %q", field, ref), err)
	}
	vocab, err := artifacts.DecodeVocabulary(a, field)
	if err != nil {
		return nil, apperrors.NewStartupError(fmt.Sprintf("%s encoder %q is invalid", field, ref), err)
	}
	return vocab, nil
}
