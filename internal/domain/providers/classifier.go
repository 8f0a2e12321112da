package providers

import (
	"context"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// ComplianceClassifier is a pre-trained binary decision function. The
// returned label is 1 for compliant; any other value means non-compliant.
// Implementations must not mutate shared state on Predict.
type ComplianceClassifier interface {
	Predict(ctx context.Context, features entities.FeatureVector) (int, error)
}
