package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmmarJamshed/FDA-checker/internal/application/services"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/pkg/config"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

const stumpModel = `{"kind":"random_forest","classes":[0,1],"trees":[{"nodes":[
{"feature":1,"threshold":5.5,"left":1,"right":2},{"value":[1,0]},{"value":[0,1]}]}]}`

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "drug_model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(stumpModel), 0o644))

	return &config.Config{
		Artifacts: config.ArtifactsConfig{Source: config.ArtifactSourceFile, ModelName: "drug_model", ModelPath: modelPath},
		Policy:    config.PolicyConfig{UnseenCategory: config.UnseenPolicyDegrade, DrugName: config.DrugNamePolicyWarn},
	}
}

func TestRefs(t *testing.T) {
	cfg := config.ArtifactsConfig{
		ModelName:               "drug_model",
		ModelPath:               "artifacts/drug_model.json",
		PhaseEncoderPath:        "artifacts/label_encoder_phase.yaml",
		TrialResultsEncoderPath: "",
	}

	cfg.Source = config.ArtifactSourceFile
	assert.Equal(t, services.ArtifactRefs{Model: "artifacts/drug_model.json", PhaseEncoder: "artifacts/label_encoder_phase.yaml"}, Refs(cfg))

	cfg.Source = config.ArtifactSourcePostgres
	assert.Equal(t, services.ArtifactRefs{Model: "drug_model", PhaseEncoder: "label_encoder_phase"}, Refs(cfg))
}

func TestOptions(t *testing.T) {
	opts := Options(config.PolicyConfig{UnseenCategory: "reject", DrugName: "allow"})
	assert.Equal(t, services.UnseenReject, opts.UnseenCategory)
	assert.Equal(t, services.DrugNameAllow, opts.DrugName)
}

func TestBuild_FromFiles(t *testing.T) {
	svc, closer, err := Build(context.Background(), fileConfig(t), nil)
	require.NoError(t, err)
	defer closer()

	evaluation, err := svc.Evaluate(context.Background(), &entities.DrugCandidateRecord{
		DrugName: "Remedix-Alpha", Phase: "Phase 2", SafetyData: 8, EfficacyData: 7, TrialResults: "Success",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.VerdictCompliant, evaluation.Verdict)
}

func TestBuild_MissingModelIsStartupError(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Artifacts.ModelPath = filepath.Join(t.TempDir(), "absent.json")

	_, _, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStartup))
}

func TestBuildServer_NoRedisMeansNoEventBus(t *testing.T) {
	svc, bus, closer, err := BuildServer(context.Background(), fileConfig(t), nil)
	require.NoError(t, err)
	defer closer()

	assert.NotNil(t, svc)
	assert.Nil(t, bus)
}

func TestBuildServer_UnreachableRedisDegrades(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	svc, bus, closer, err := BuildServer(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer closer()

	assert.Nil(t, bus)
	evaluation, err := svc.Evaluate(context.Background(), &entities.DrugCandidateRecord{
		DrugName: "A", Phase: "Phase 1", SafetyData: 2, EfficacyData: 2, TrialResults: "Failure",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.VerdictNonCompliant, evaluation.Verdict)
}
