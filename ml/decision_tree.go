package ml

import (
	"errors"
	"fmt"
	"math"
)

// DecisionTree is a flattened binary tree; node 0 is the root.
type DecisionTree struct {
	nodes       []TreeNode
	numFeatures int
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	IsLeaf     bool    `json:"is_leaf"`
	// Value 叶子节点的欺诈概率
	Value float64 `json:"value"`
}

func NewDecisionTree(nodes []TreeNode, numFeatures int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: decision tree has no nodes", ErrInvalidArtifact)
	}
	if numFeatures <= 0 {
		return nil, fmt.Errorf("%w: decision tree requires n_features", ErrInvalidArtifact)
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if math.IsNaN(node.Value) || node.Value < 0 || node.Value > 1 {
				return nil, fmt.Errorf("%w: node %d leaf value %v outside [0,1]", ErrInvalidArtifact, i, node.Value)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= numFeatures {
			return nil, fmt.Errorf("%w: node %d feature index %d out of range", ErrInvalidArtifact, i, node.FeatureIdx)
		}
		if !validChild(node.LeftChild, i, len(nodes)) || !validChild(node.RightChild, i, len(nodes)) {
			return nil, fmt.Errorf("%w: node %d has invalid children (%d, %d)",
				ErrInvalidArtifact, i, node.LeftChild, node.RightChild)
		}
	}
	return &DecisionTree{
		nodes:       append([]TreeNode(nil), nodes...),
		numFeatures: numFeatures,
	}, nil
}

// validChild 子节点必须位于父节点之后，保证遍历一定终止
func validChild(child, parent, size int) bool {
	return child > parent && child < size
}

func (dt *DecisionTree) InputWidth() int {
	return dt.numFeatures
}

func (dt *DecisionTree) PredictProba(features []float64) (float64, error) {
	if len(features) != dt.numFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", dt.numFeatures, len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		x := features[node.FeatureIdx]
		if math.IsNaN(x) {
			return 0, errors.New("feature value is NaN")
		}
		if x <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}
