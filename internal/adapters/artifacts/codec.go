package artifacts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// EncoderSpec is the serialized form of a fitted vocabulary.
type EncoderSpec struct {
	Field   string   `json:"field" yaml:"field"`
	Classes []string `json:"classes" yaml:"classes"`
}

// FormatFromPath infers the artifact format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return entities.ArtifactFormatJSON, nil
	case ".yaml", ".yml":
		return entities.ArtifactFormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported artifact extension %q", filepath.Ext(path))
	}
}

// NameFromPath derives the store key for an artifact file: its base name
// without extension, e.g. "artifacts/drug_model.json" -> "drug_model".
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Digest returns the hex sha256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Decode unmarshals the artifact payload into v according to its format.
// Unknown fields are rejected so a mistyped key fails at startup.
func Decode(a *entities.Artifact, v any) error {
	switch a.Format {
	case entities.ArtifactFormatJSON:
		dec := json.NewDecoder(bytes.NewReader(a.Data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("artifact %q: invalid json: %w", a.Name, err)
		}
	case entities.ArtifactFormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(a.Data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("artifact %q: invalid yaml: %w", a.Name, err)
		}
	default:
		return fmt.Errorf("artifact %q: unsupported format %q", a.Name, a.Format)
	}
	return nil
}

// Encode serializes v in the given format.
func Encode(format string, v any) ([]byte, error) {
	switch format {
	case entities.ArtifactFormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case entities.ArtifactFormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// DecodeVocabulary builds a vocabulary from an encoder artifact. The field
// recorded in the artifact must match the field it is loaded for, and every
// declared value of that field must have a code. Extra classes are kept.
func DecodeVocabulary(a *entities.Artifact, field string) (*entities.Vocabulary, error) {
	var spec EncoderSpec
	if err := Decode(a, &spec); err != nil {
		return nil, err
	}
	if spec.Field != "" && spec.Field != field {
		return nil, fmt.Errorf("artifact %q encodes field %q, expected %q", a.Name, spec.Field, field)
	}
	vocab, err := entities.NewVocabulary(field, spec.Classes)
	if err != nil {
		return nil, err
	}
	if missing := vocab.Missing(entities.DeclaredValues(field)); len(missing) > 0 {
		return nil, fmt.Errorf("artifact %q does not cover %s values %q", a.Name, field, missing)
	}
	return vocab, nil
}

// EncoderSpecFor returns the serializable form of a vocabulary.
func EncoderSpecFor(v *entities.Vocabulary) EncoderSpec {
	return EncoderSpec{Field: v.Field(), Classes: v.Classes()}
}
