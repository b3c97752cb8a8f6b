package ml

import (
	"errors"
	"testing"
)

// amountTree splits on feature 29 (Amount in form order).
func amountTree(t *testing.T) *DecisionTree {
	t.Helper()
	nodes := []TreeNode{
		{FeatureIdx: 29, Threshold: 500, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, Value: 0.05},
		{IsLeaf: true, Value: 0.9},
	}
	tree, err := NewDecisionTree(nodes, NumFormFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tree
}

func TestDecisionTreePredict(t *testing.T) {
	tree := amountTree(t)

	x := make([]float64, NumFormFields)
	x[29] = 100
	p, err := tree.PredictProba(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 0.05 {
		t.Fatalf("expected 0.05, got %v", p)
	}

	x[29] = 500.01
	if p, _ = tree.PredictProba(x); p != 0.9 {
		t.Fatalf("expected 0.9, got %v", p)
	}

	if _, err := tree.PredictProba(x[:3]); err == nil {
		t.Fatal("expected width error")
	}
}

func TestNewDecisionTreeRejectsBadNodes(t *testing.T) {
	cases := map[string][]TreeNode{
		"empty":         nil,
		"feature range": {{FeatureIdx: 30, LeftChild: 1, RightChild: 2}, {IsLeaf: true}, {IsLeaf: true}},
		"cycle":         {{FeatureIdx: 0, LeftChild: 0, RightChild: 1}, {IsLeaf: true}},
		"leaf value":    {{IsLeaf: true, Value: 1.5}},
	}
	for name, nodes := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewDecisionTree(nodes, NumFormFields); !errors.Is(err, ErrInvalidArtifact) {
				t.Fatalf("expected ErrInvalidArtifact, got %v", err)
			}
		})
	}
	if _, err := NewDecisionTree([]TreeNode{{IsLeaf: true}}, 0); !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected n_features error, got %v", err)
	}
}

func TestRandomForestAverages(t *testing.T) {
	constant, err := NewDecisionTree([]TreeNode{{IsLeaf: true, Value: 0.3}}, NumFormFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forest, err := NewRandomForest([]*DecisionTree{amountTree(t), constant})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	x := make([]float64, NumFormFields)
	x[29] = 1000
	p, err := forest.PredictProba(x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if RoundProbability(p) != 0.6 {
		t.Fatalf("expected 0.6, got %v", p)
	}

	if _, err := NewRandomForest(nil); !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected error for empty forest, got %v", err)
	}
}
