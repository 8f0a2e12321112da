package providers

import (
	"context"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// ArtifactStore reads serialized model artifacts by name. A missing artifact
// is reported as a NOT_FOUND AppError.
type ArtifactStore interface {
	Load(ctx context.Context, name string) (*entities.Artifact, error)
}

// ArtifactWriter persists artifacts, replacing any existing one with the same name.
type ArtifactWriter interface {
	Save(ctx context.Context, artifact *entities.Artifact) error
}
