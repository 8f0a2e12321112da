package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ARTIFACT_SOURCE", "")
	t.Setenv("UNSEEN_CATEGORY_POLICY", "")
	t.Setenv("DRUG_NAME_POLICY", "")
	t.Setenv("MODEL_PATH", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ArtifactSourceFile, cfg.Artifacts.Source)
	assert.Equal(t, "artifacts/drug_model.json", cfg.Artifacts.ModelPath)
	assert.Equal(t, UnseenPolicyDegrade, cfg.Policy.UnseenCategory)
	assert.Equal(t, DrugNamePolicyWarn, cfg.Policy.DrugName)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 3600, cfg.Redis.VerdictCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ARTIFACT_SOURCE", "Postgres")
	t.Setenv("UNSEEN_CATEGORY_POLICY", "reject")
	t.Setenv("DRUG_NAME_POLICY", "allow")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ArtifactSourcePostgres, cfg.Artifacts.Source)
	assert.Equal(t, UnseenPolicyReject, cfg.Policy.UnseenCategory)
	assert.Equal(t, DrugNamePolicyAllow, cfg.Policy.DrugName)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6380", cfg.Redis.RedisAddr())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EmptyEncoderPathSelectsBuiltin(t *testing.T) {
	t.Setenv("PHASE_ENCODER_PATH", "")
	t.Setenv("TRIAL_RESULTS_ENCODER_PATH", "/srv/enc/trial.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Artifacts.PhaseEncoderPath)
	assert.Equal(t, "/srv/enc/trial.yaml", cfg.Artifacts.TrialResultsEncoderPath)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("UNSEEN_CATEGORY_POLICY", "ignore")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNSEEN_CATEGORY_POLICY")
}

func TestLoad_InvalidArtifactSource(t *testing.T) {
	t.Setenv("ARTIFACT_SOURCE", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARTIFACT_SOURCE")
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "fda", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=fda sslmode=disable", db.DatabaseDSN())
}
