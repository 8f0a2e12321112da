package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/adapters/artifacts"
	"github.com/AmmarJamshed/FDA-checker/internal/adapters/classifier"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/providers"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

// ArtifactImportService copies artifacts from one store into another after
// checking that they would load at startup.
type ArtifactImportService struct {
	source providers.ArtifactStore
	dest   providers.ArtifactWriter
}

// NewArtifactImportService creates an import service.
func NewArtifactImportService(source providers.ArtifactStore, dest providers.ArtifactWriter) *ArtifactImportService {
	return &ArtifactImportService{source: source, dest: dest}
}

// ImportClassifier validates the classifier at ref and saves it as name.
func (s *ArtifactImportService) ImportClassifier(ctx context.Context, ref, name string) (*entities.Artifact, error) {
	a, err := s.source.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := classifier.LoadRandomForest(a); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("classifier %s is invalid: %v", ref, err))
	}
	return s.save(ctx, a, name, entities.ArtifactKindClassifier)
}

// ImportEncoder validates the encoder at ref for field and saves it as name.
func (s *ArtifactImportService) ImportEncoder(ctx context.Context, ref, name, field string) (*entities.Artifact, error) {
	a, err := s.source.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := artifacts.DecodeVocabulary(a, field); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s encoder %s is invalid: %v", field, ref, err))
	}
	return s.save(ctx, a, name, entities.ArtifactKindEncoder)
}

func (s *ArtifactImportService) save(ctx context.Context, a *entities.Artifact, name string, kind entities.ArtifactKind) (*entities.Artifact, error) {
	out := &entities.Artifact{
		Name:   name,
		Kind:   kind,
		Format: a.Format,
		Data:   a.Data,
	}
	if err := s.dest.Save(ctx, out); err != nil {
		return nil, err
	}

	log.Info().
		Str("name", out.Name).
		Str("kind", string(out.Kind)).
		Str("digest", out.Digest).
		Int("bytes", len(out.Data)).
		Msg("artifact imported")
	return out, nil
}

// ExportBuiltinEncoders writes the built-in vocabularies to dir as encoder
// artifacts in format and returns the written paths.
func ExportBuiltinEncoders(dir, format string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	ext := ".yaml"
	if format == entities.ArtifactFormatJSON {
		ext = ".json"
	}

	var paths []string
	for _, vocab := range []*entities.Vocabulary{
		entities.DefaultPhaseVocabulary(),
		entities.DefaultTrialResultsVocabulary(),
	} {
		data, err := artifacts.Encode(format, artifacts.EncoderSpecFor(vocab))
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, "label_encoder_"+vocab.Field()+ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
