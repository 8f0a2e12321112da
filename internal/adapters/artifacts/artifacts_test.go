package artifacts

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/clients/postgres"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileStore_LoadYAMLEncoder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "label_encoder_phase.yaml", "field: phase\nclasses:\n  - Phase 1\n  - Phase 2\n  - Phase 3\n  - Preclinical\n")

	store := NewFileStore(dir)
	artifact, err := store.Load(context.Background(), "label_encoder_phase.yaml")
	require.NoError(t, err)

	assert.Equal(t, "label_encoder_phase", artifact.Name)
	assert.Equal(t, entities.ArtifactFormatYAML, artifact.Format)
	assert.Equal(t, Digest(artifact.Data), artifact.Digest)

	vocab, err := DecodeVocabulary(artifact, entities.FieldPhase)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultPhaseVocabulary().Classes(), vocab.Classes())
}

func TestFileStore_LoadJSONEncoder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trial.json", `{"field":"trial_results","classes":["Adverse Effects","Failure","Success"]}`)

	artifact, err := NewFileStore("").Load(context.Background(), path)
	require.NoError(t, err)

	vocab, err := DecodeVocabulary(artifact, entities.FieldTrialResults)
	require.NoError(t, err)
	code, ok := vocab.Encode("Failure")
	assert.True(t, ok)
	assert.Equal(t, 1, code)
}

func TestFileStore_Missing(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).Load(context.Background(), "drug_model.json")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestFileStore_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "drug_model.pkl", "binary")

	_, err := NewFileStore(dir).Load(context.Background(), "drug_model.pkl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported artifact extension")
}

func TestDecodeVocabulary_FieldMismatch(t *testing.T) {
	artifact := &entities.Artifact{
		Name:   "label_encoder_phase",
		Format: entities.ArtifactFormatYAML,
		Data:   []byte("field: trial_results\nclasses: [Success]\n"),
	}

	_, err := DecodeVocabulary(artifact, entities.FieldPhase)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected \"phase\"")
}

func TestDecodeVocabulary_DeclaredValueCoverage(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		data    string
		wantErr string
	}{
		{"phase without preclinical", entities.FieldPhase, "field: phase\nclasses: [Phase 1, Phase 2, Phase 3]\n", `"Preclinical"`},
		{"trial results without failure", entities.FieldTrialResults, "field: trial_results\nclasses: [Adverse Effects, Success]\n", `"Failure"`},
		{"case mismatch is not coverage", entities.FieldTrialResults, "field: trial_results\nclasses: [adverse effects, Failure, Success]\n", `"Adverse Effects"`},
		{"extra class allowed", entities.FieldPhase, "field: phase\nclasses: [Phase 1, Phase 2, Phase 3, Phase 4, Preclinical]\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := &entities.Artifact{Name: "enc", Format: entities.ArtifactFormatYAML, Data: []byte(tt.data)}

			vocab, err := DecodeVocabulary(artifact, tt.field)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, vocab)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, vocab.Missing(entities.DeclaredValues(tt.field)))
		})
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	artifact := &entities.Artifact{
		Name:   "enc",
		Format: entities.ArtifactFormatJSON,
		Data:   []byte(`{"field":"phase","classes":["Phase 1"],"classes_":["x"]}`),
	}

	var spec EncoderSpec
	assert.Error(t, Decode(artifact, &spec))
}

func TestEncode_RoundTripsEncoderSpec(t *testing.T) {
	spec := EncoderSpecFor(entities.DefaultTrialResultsVocabulary())

	data, err := Encode(entities.ArtifactFormatYAML, spec)
	require.NoError(t, err)

	vocab, err := DecodeVocabulary(&entities.Artifact{Name: "t", Format: entities.ArtifactFormatYAML, Data: data}, entities.FieldTrialResults)
	require.NoError(t, err)
	assert.Equal(t, spec.Classes, vocab.Classes())
}

func TestNameFromPath(t *testing.T) {
	assert.Equal(t, "drug_model", NameFromPath("artifacts/drug_model.json"))
	assert.Equal(t, "label_encoder_phase", NameFromPath("/srv/label_encoder_phase.yaml"))
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(postgres.NewClientFromDB(db)), mock
}

func TestPostgresStore_Load(t *testing.T) {
	store, mock := newMockStore(t)

	data := []byte(`{"field":"phase","classes":["Phase 1"]}`)
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"name", "kind", "format", "data", "digest", "updated_at"}).
		AddRow("label_encoder_phase", "encoder", "json", data, Digest(data), updated)

	mock.ExpectQuery(`SELECT .* FROM "model_artifacts"`).
		WithArgs("label_encoder_phase").
		WillReturnRows(rows)

	artifact, err := store.Load(context.Background(), "label_encoder_phase")
	require.NoError(t, err)
	assert.Equal(t, entities.ArtifactKindEncoder, artifact.Kind)
	assert.Equal(t, data, artifact.Data)
	assert.Equal(t, updated, artifact.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM "model_artifacts"`).
		WithArgs("drug_model").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Load(context.Background(), "drug_model")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestPostgresStore_LoadDigestMismatch(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"name", "kind", "format", "data", "digest", "updated_at"}).
		AddRow("drug_model", "classifier", "json", []byte(`{}`), "deadbeef", time.Now())
	mock.ExpectQuery(`SELECT .* FROM "model_artifacts"`).WillReturnRows(rows)

	_, err := store.Load(context.Background(), "drug_model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "model_artifacts"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	artifact := &entities.Artifact{
		Name:   "drug_model",
		Kind:   entities.ArtifactKindClassifier,
		Format: entities.ArtifactFormatJSON,
		Data:   []byte(`{"kind":"random_forest"}`),
	}
	require.NoError(t, store.Save(context.Background(), artifact))

	assert.Equal(t, Digest(artifact.Data), artifact.Digest)
	assert.False(t, artifact.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRequiresName(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Save(context.Background(), &entities.Artifact{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS model_artifacts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
