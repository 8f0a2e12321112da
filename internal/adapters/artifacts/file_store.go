package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/providers"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

// FileStore reads artifacts from the local filesystem. The artifact name is
// a path, resolved against root when relative.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed artifact store.
func NewFileStore(root string) providers.ArtifactStore {
	return &FileStore{root: root}
}

func (s *FileStore) resolve(name string) string {
	if filepath.IsAbs(name) || s.root == "" {
		return name
	}
	return filepath.Join(s.root, name)
}

// Load reads and fingerprints the artifact file.
func (s *FileStore) Load(ctx context.Context, name string) (*entities.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.resolve(name)
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("artifact file %s not found", path))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to stat artifact file", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to read artifact file %s", path), err)
	}

	return &entities.Artifact{
		Name:      NameFromPath(path),
		Format:    format,
		Data:      data,
		Digest:    Digest(data),
		UpdatedAt: info.ModTime().UTC(),
	}, nil
}
