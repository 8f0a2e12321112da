package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/clients/postgres"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

const artifactsTable = "model_artifacts"

const createArtifactsTable = `CREATE TABLE IF NOT EXISTS model_artifacts (
	name       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	format     TEXT NOT NULL,
	data       BYTEA NOT NULL,
	digest     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps artifacts in the model_artifacts table.
type PostgresStore struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPostgresStore creates a Postgres-backed artifact store.
func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// EnsureSchema creates the artifacts table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.DB().ExecContext(ctx, createArtifactsTable); err != nil {
		return apperrors.NewInternalError("failed to create model_artifacts table", err)
	}
	return nil
}

// Load fetches an artifact by name.
func (s *PostgresStore) Load(ctx context.Context, name string) (*entities.Artifact, error) {
	query, args, err := s.db.From(artifactsTable).
		Select("name", "kind", "format", "data", "digest", "updated_at").
		Where(goqu.Ex{"name": name}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build artifact query", err)
	}

	var (
		a    entities.Artifact
		kind string
	)
	err = s.client.DB().QueryRowContext(ctx, query, args...).
		Scan(&a.Name, &kind, &a.Format, &a.Data, &a.Digest, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("artifact %q not found", name))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load artifact", err)
	}
	a.Kind = entities.ArtifactKind(kind)

	if got := Digest(a.Data); got != a.Digest {
		return nil, apperrors.NewInternalError(
			fmt.Sprintf("artifact %q is corrupt", name),
			fmt.Errorf("digest mismatch: stored %s, computed %s", a.Digest, got),
		)
	}

	return &a, nil
}

// Save upserts an artifact, recomputing its digest.
func (s *PostgresStore) Save(ctx context.Context, artifact *entities.Artifact) error {
	if artifact == nil || artifact.Name == "" {
		return apperrors.NewValidationError("artifact name is required")
	}

	artifact.Digest = Digest(artifact.Data)
	if artifact.UpdatedAt.IsZero() {
		artifact.UpdatedAt = time.Now().UTC()
	}

	record := goqu.Record{
		"name":       artifact.Name,
		"kind":       string(artifact.Kind),
		"format":     artifact.Format,
		"data":       artifact.Data,
		"digest":     artifact.Digest,
		"updated_at": artifact.UpdatedAt,
	}

	query, args, err := s.db.Insert(artifactsTable).
		Rows(record).
		OnConflict(goqu.DoUpdate("name", goqu.Record{
			"kind":       goqu.L("EXCLUDED.kind"),
			"format":     goqu.L("EXCLUDED.format"),
			"data":       goqu.L("EXCLUDED.data"),
			"digest":     goqu.L("EXCLUDED.digest"),
			"updated_at": goqu.L("EXCLUDED.updated_at"),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build artifact upsert query", err)
	}

	if _, err := s.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to save artifact %q", artifact.Name), err)
	}
	return nil
}
