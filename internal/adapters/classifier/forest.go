package classifier

import (
	"context"
	"fmt"
	"slices"

	"github.com/AmmarJamshed/FDA-checker/internal/adapters/artifacts"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
)

// KindRandomForest is the only classifier kind this runtime evaluates.
const KindRandomForest = "random_forest"

// ForestSpec is the serialized form of a fitted random forest. Trees follow
// the flattened layout used by scikit-learn: node 0 is the root, an internal
// node sends x[feature] <= threshold to left and everything else to right,
// and a leaf carries per-class weights in value.
type ForestSpec struct {
	Kind         string     `json:"kind" yaml:"kind"`
	FeatureNames []string   `json:"feature_names,omitempty" yaml:"feature_names,omitempty"`
	Classes      []int      `json:"classes" yaml:"classes"`
	Trees        []TreeSpec `json:"trees" yaml:"trees"`
}

// TreeSpec is one decision tree.
type TreeSpec struct {
	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`
}

// NodeSpec is an internal split or, when Value is set, a leaf.
type NodeSpec struct {
	Feature   int       `json:"feature,omitempty" yaml:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Left      int       `json:"left,omitempty" yaml:"left,omitempty"`
	Right     int       `json:"right,omitempty" yaml:"right,omitempty"`
	Value     []float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

func (n NodeSpec) isLeaf() bool {
	return len(n.Value) > 0
}

// RandomForest predicts by averaging the normalized leaf distributions of
// every tree and taking the most probable class; the lowest class index wins
// a tie. It is read-only after construction.
type RandomForest struct {
	name    string
	version string
	classes []int
	trees   [][]NodeSpec
}

// NewRandomForest validates spec and builds the forest.
func NewRandomForest(name, version string, spec ForestSpec) (*RandomForest, error) {
	if spec.Kind != KindRandomForest {
		return nil, fmt.Errorf("classifier %q: unsupported kind %q", name, spec.Kind)
	}
	if len(spec.FeatureNames) > 0 && !slices.Equal(spec.FeatureNames, entities.FeatureNames) {
		return nil, fmt.Errorf("classifier %q: feature names %v do not match %v", name, spec.FeatureNames, entities.FeatureNames)
	}
	if len(spec.Classes) < 2 {
		return nil, fmt.Errorf("classifier %q: need at least two classes, got %d", name, len(spec.Classes))
	}
	if len(spec.Trees) == 0 {
		return nil, fmt.Errorf("classifier %q: no trees", name)
	}

	nFeatures := len(entities.FeatureNames)
	trees := make([][]NodeSpec, len(spec.Trees))
	for t, tree := range spec.Trees {
		if err := validateTree(tree, nFeatures, len(spec.Classes)); err != nil {
			return nil, fmt.Errorf("classifier %q: tree %d: %w", name, t, err)
		}
		trees[t] = append([]NodeSpec(nil), tree.Nodes...)
	}

	return &RandomForest{
		name:    name,
		version: version,
		classes: append([]int(nil), spec.Classes...),
		trees:   trees,
	}, nil
}

// validateTree checks node references point strictly forward, which also
// rules out cycles.
func validateTree(tree TreeSpec, nFeatures, nClasses int) error {
	if len(tree.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, node := range tree.Nodes {
		if node.isLeaf() {
			if len(node.Value) != nClasses {
				return fmt.Errorf("node %d: leaf has %d weights for %d classes", i, len(node.Value), nClasses)
			}
			total := 0.0
			for _, w := range node.Value {
				if w < 0 {
					return fmt.Errorf("node %d: negative leaf weight", i)
				}
				total += w
			}
			if total == 0 {
				return fmt.Errorf("node %d: leaf weights sum to zero", i)
			}
			continue
		}
		if node.Feature < 0 || node.Feature >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.Feature)
		}
		for _, child := range []int{node.Left, node.Right} {
			if child <= i || child >= len(tree.Nodes) {
				return fmt.Errorf("node %d: child index %d invalid", i, child)
			}
		}
	}
	return nil
}

// LoadRandomForest decodes a classifier artifact. The artifact digest becomes
// the model version.
func LoadRandomForest(a *entities.Artifact) (*RandomForest, error) {
	var spec ForestSpec
	if err := artifacts.Decode(a, &spec); err != nil {
		return nil, err
	}
	return NewRandomForest(a.Name, a.Digest, spec)
}

// Predict returns the class label for the feature vector.
func (f *RandomForest) Predict(ctx context.Context, features entities.FeatureVector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	proba := f.PredictProba(features.Values())

	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return f.classes[best], nil
}

// PredictProba returns the mean class distribution over all trees, indexed
// like Classes.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	proba := make([]float64, len(f.classes))
	for _, tree := range f.trees {
		leaf := tree[0]
		for i := 0; !leaf.isLeaf(); {
			if x[leaf.Feature] <= leaf.Threshold {
				i = leaf.Left
			} else {
				i = leaf.Right
			}
			leaf = tree[i]
		}

		total := 0.0
		for _, w := range leaf.Value {
			total += w
		}
		for c, w := range leaf.Value {
			proba[c] += w / total
		}
	}

	n := float64(len(f.trees))
	for c := range proba {
		proba[c] /= n
	}
	return proba
}

// Info describes the forest.
func (f *RandomForest) Info() entities.ModelInfo {
	return entities.ModelInfo{
		Name:         f.name,
		Kind:         KindRandomForest,
		Version:      f.version,
		FeatureNames: append([]string(nil), entities.FeatureNames...),
		Classes:      append([]int(nil), f.classes...),
		Trees:        len(f.trees),
	}
}
