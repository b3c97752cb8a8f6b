package ml

import (
	"fmt"
)

const (
	ModelTypeLogistic     = "logistic_regression"
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeRandomForest = "random_forest"
)

// ModelSpec is the serialized form of a classifier inside an artifact bundle.
type ModelSpec struct {
	Type         string     `json:"type"`
	NumFeatures  int        `json:"n_features,omitempty"`
	Coefficients []float64  `json:"coefficients,omitempty"`
	Intercept    float64    `json:"intercept,omitempty"`
	Nodes        []TreeNode `json:"nodes,omitempty"`
	Trees        []TreeSpec `json:"trees,omitempty"`
}

type TreeSpec struct {
	Nodes []TreeNode `json:"nodes"`
}

func LoadClassifier(spec ModelSpec) (Classifier, error) {
	switch spec.Type {
	case ModelTypeLogistic:
		return NewLogisticRegression(spec.Coefficients, spec.Intercept)
	case ModelTypeDecisionTree:
		return NewDecisionTree(spec.Nodes, spec.NumFeatures)
	case ModelTypeRandomForest:
		trees := make([]*DecisionTree, 0, len(spec.Trees))
		for i, ts := range spec.Trees {
			tree, err := NewDecisionTree(ts.Nodes, spec.NumFeatures)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			trees = append(trees, tree)
		}
		return NewRandomForest(trees)
	case "":
		return nil, fmt.Errorf("%w: model type is empty", ErrUnsupportedModel)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, spec.Type)
	}
}
