package entities

import "time"

// ArtifactKind identifies what a stored artifact holds.
type ArtifactKind string

const (
	ArtifactKindClassifier ArtifactKind = "classifier"
	ArtifactKindEncoder    ArtifactKind = "encoder"
)

// Artifact formats understood by the decoders
const (
	ArtifactFormatJSON = "json"
	ArtifactFormatYAML = "yaml"
)

// Artifact is a serialized classifier or encoder as read from a store.
type Artifact struct {
	Name      string       `json:"name" db:"name"`
	Kind      ArtifactKind `json:"kind" db:"kind"`
	Format    string       `json:"format" db:"format"`
	Data      []byte       `json:"-" db:"data"`
	Digest    string       `json:"digest" db:"digest"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// ModelInfo describes the loaded classifier.
type ModelInfo struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Version      string   `json:"version"`
	FeatureNames []string `json:"feature_names"`
	Classes      []int    `json:"classes"`
	Trees        int      `json:"trees"`
}
