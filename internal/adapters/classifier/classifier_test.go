package classifier

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AmmarJamshed/FDA-checker/internal/adapters/artifacts"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// safetyStump is compliant when safety_data > 5.
func safetyStump() TreeSpec {
	return TreeSpec{Nodes: []NodeSpec{
		{Feature: 1, Threshold: 5.5, Left: 1, Right: 2},
		{Value: []float64{9, 1}},
		{Value: []float64{2, 8}},
	}}
}

// successStump is compliant when trial_results encodes to Success (2).
func successStump() TreeSpec {
	return TreeSpec{Nodes: []NodeSpec{
		{Feature: 3, Threshold: 1.5, Left: 1, Right: 2},
		{Value: []float64{0.7, 0.3}},
		{Value: []float64{0.1, 0.9}},
	}}
}

func testSpec(trees ...TreeSpec) ForestSpec {
	return ForestSpec{
		Kind:         KindRandomForest,
		FeatureNames: entities.FeatureNames,
		Classes:      []int{0, 1},
		Trees:        trees,
	}
}

func TestRandomForest_Predict(t *testing.T) {
	forest, err := NewRandomForest("drug_model", "v1", testSpec(safetyStump(), successStump()))
	require.NoError(t, err)

	ctx := context.Background()
	tests := []struct {
		name     string
		features entities.FeatureVector
		want     int
	}{
		{"safe and successful", entities.FeatureVector{Phase: 1, SafetyData: 8, EfficacyData: 7, TrialResults: 2}, 1},
		{"unsafe and failed", entities.FeatureVector{Phase: 1, SafetyData: 3, EfficacyData: 7, TrialResults: 1}, 0},
		{"split vote goes to first class", entities.FeatureVector{Phase: 0, SafetyData: 2, EfficacyData: 9, TrialResults: 2}, 0},
		{"unseen phase still evaluated", entities.FeatureVector{Phase: -1, SafetyData: 5, EfficacyData: 5, TrialResults: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := forest.Predict(ctx, tt.features)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRandomForest_PredictProbaAveragesTrees(t *testing.T) {
	forest, err := NewRandomForest("m", "v", testSpec(safetyStump(), successStump()))
	require.NoError(t, err)

	proba := forest.PredictProba([]float64{1, 8, 7, 2})
	assert.InDelta(t, (0.2+0.1)/2, proba[0], 1e-9)
	assert.InDelta(t, (0.8+0.9)/2, proba[1], 1e-9)
}

func TestRandomForest_TieGoesToFirstClass(t *testing.T) {
	even := TreeSpec{Nodes: []NodeSpec{{Value: []float64{1, 1}}}}
	forest, err := NewRandomForest("m", "v", testSpec(even))
	require.NoError(t, err)

	got, err := forest.Predict(context.Background(), entities.FeatureVector{SafetyData: 5, EfficacyData: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestNewRandomForest_Validation(t *testing.T) {
	tests := []struct {
		name string
		spec ForestSpec
		msg  string
	}{
		{"wrong kind", ForestSpec{Kind: "svm", Classes: []int{0, 1}, Trees: []TreeSpec{safetyStump()}}, "unsupported kind"},
		{"feature mismatch", ForestSpec{Kind: KindRandomForest, FeatureNames: []string{"drug_name", "phase", "safety_data", "efficacy_data", "trial_results"}, Classes: []int{0, 1}, Trees: []TreeSpec{safetyStump()}}, "feature names"},
		{"one class", ForestSpec{Kind: KindRandomForest, Classes: []int{1}, Trees: []TreeSpec{safetyStump()}}, "at least two classes"},
		{"no trees", ForestSpec{Kind: KindRandomForest, Classes: []int{0, 1}}, "no trees"},
		{"empty tree", testSpec(TreeSpec{}), "no nodes"},
		{"bad feature", testSpec(TreeSpec{Nodes: []NodeSpec{{Feature: 7, Left: 1, Right: 2}, {Value: []float64{1, 0}}, {Value: []float64{0, 1}}}}), "feature index"},
		{"backward child", testSpec(TreeSpec{Nodes: []NodeSpec{{Feature: 1, Left: 0, Right: 1}, {Value: []float64{1, 0}}}}), "child index"},
		{"child out of range", testSpec(TreeSpec{Nodes: []NodeSpec{{Feature: 1, Left: 1, Right: 5}, {Value: []float64{1, 0}}}}), "child index"},
		{"leaf width", testSpec(TreeSpec{Nodes: []NodeSpec{{Value: []float64{1, 0, 0}}}}), "weights for 2 classes"},
		{"negative weight", testSpec(TreeSpec{Nodes: []NodeSpec{{Value: []float64{-1, 2}}}}), "negative"},
		{"zero leaf", testSpec(TreeSpec{Nodes: []NodeSpec{{Value: []float64{0, 0}}}}), "sum to zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRandomForest("drug_model", "v", tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadRandomForest_FromJSONArtifact(t *testing.T) {
	data, err := artifacts.Encode(entities.ArtifactFormatJSON, testSpec(safetyStump()))
	require.NoError(t, err)

	artifact := &entities.Artifact{
		Name:   "drug_model",
		Format: entities.ArtifactFormatJSON,
		Data:   data,
		Digest: artifacts.Digest(data),
	}

	forest, err := LoadRandomForest(artifact)
	require.NoError(t, err)

	info := forest.Info()
	assert.Equal(t, "drug_model", info.Name)
	assert.Equal(t, artifact.Digest, info.Version)
	assert.Equal(t, 1, info.Trees)
	assert.Equal(t, []int{0, 1}, info.Classes)
}

func TestLoadRandomForest_FromYAMLArtifact(t *testing.T) {
	yamlModel := `
kind: random_forest
classes: [0, 1]
trees:
  - nodes:
      - {feature: 2, threshold: 6.5, left: 1, right: 2}
      - {value: [5, 1]}
      - {value: [1, 5]}
`
	forest, err := LoadRandomForest(&entities.Artifact{Name: "m", Format: entities.ArtifactFormatYAML, Data: []byte(yamlModel)})
	require.NoError(t, err)

	got, err := forest.Predict(context.Background(), entities.FeatureVector{EfficacyData: 9})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

type memoryCache struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Predict(ctx context.Context, features entities.FeatureVector) (int, error) {
	args := m.Called(ctx, features)
	return args.Int(0), args.Error(1)
}

func TestCachedClassifier_MemoizesPerVector(t *testing.T) {
	features := entities.FeatureVector{Phase: 1, SafetyData: 8, EfficacyData: 7, TrialResults: 2}
	inner := &mockClassifier{}
	inner.On("Predict", mock.Anything, features).Return(1, nil).Once()

	cache := newMemoryCache()
	cached := NewCachedClassifier(inner, cache, "abc", time.Hour, nil)

	for i := 0; i < 3; i++ {
		got, err := cached.Predict(context.Background(), features)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	}

	inner.AssertNumberOfCalls(t, "Predict", 1)
	assert.Equal(t, []byte("1"), cache.data["verdict:abc:1:8:7:2"])
	assert.Equal(t, time.Hour, cache.ttls["verdict:abc:1:8:7:2"])
}

func TestCachedClassifier_VersionIsPartOfKey(t *testing.T) {
	features := entities.FeatureVector{Phase: 3, SafetyData: 2, EfficacyData: 2, TrialResults: 0}
	cache := newMemoryCache()
	cache.data["verdict:old:3:2:2:0"] = []byte("1")

	inner := &mockClassifier{}
	inner.On("Predict", mock.Anything, features).Return(0, nil)

	got, err := NewCachedClassifier(inner, cache, "new", time.Minute, nil).Predict(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	inner.AssertExpectations(t)
}

func TestCachedClassifier_CacheDownFallsThrough(t *testing.T) {
	features := entities.FeatureVector{Phase: 0, SafetyData: 9, EfficacyData: 9, TrialResults: 2}
	cache := newMemoryCache()
	cache.err = errors.New("connection refused")

	inner := &mockClassifier{}
	inner.On("Predict", mock.Anything, features).Return(1, nil)

	got, err := NewCachedClassifier(inner, cache, "v", time.Minute, nil).Predict(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestCachedClassifier_PropagatesClassifierError(t *testing.T) {
	features := entities.FeatureVector{SafetyData: 1, EfficacyData: 1}
	inner := &mockClassifier{}
	inner.On("Predict", mock.Anything, features).Return(0, errors.New("boom"))

	cache := newMemoryCache()
	_, err := NewCachedClassifier(inner, cache, "v", time.Minute, nil).Predict(context.Background(), features)
	require.Error(t, err)
	assert.Empty(t, cache.data)
}

func TestShippedModel(t *testing.T) {
	store := artifacts.NewFileStore(filepath.Join("..", "..", "..", "artifacts"))
	a, err := store.Load(context.Background(), "drug_model.json")
	require.NoError(t, err)

	forest, err := LoadRandomForest(a)
	require.NoError(t, err)
	assert.Equal(t, 3, forest.Info().Trees)

	// Remedix-Alpha, Phase 2, 8, 7, Success
	got, err := forest.Predict(context.Background(), entities.FeatureVector{Phase: 1, SafetyData: 8, EfficacyData: 7, TrialResults: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	// unseen phase, 5, 5, Failure
	got, err = forest.Predict(context.Background(), entities.FeatureVector{Phase: -1, SafetyData: 5, EfficacyData: 5, TrialResults: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
