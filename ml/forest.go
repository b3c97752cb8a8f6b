package ml

import (
	"fmt"
)

// RandomForest averages the positive-class probability of its trees.
type RandomForest struct {
	trees []*DecisionTree
}

func NewRandomForest(trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: random forest has no trees", ErrInvalidArtifact)
	}
	width := trees[0].InputWidth()
	for i, tree := range trees[1:] {
		if tree.InputWidth() != width {
			return nil, fmt.Errorf("%w: tree %d expects %d features, tree 0 expects %d",
				ErrInvalidArtifact, i+1, tree.InputWidth(), width)
		}
	}
	return &RandomForest{trees: trees}, nil
}

func (rf *RandomForest) InputWidth() int {
	return rf.trees[0].InputWidth()
}

func (rf *RandomForest) PredictProba(features []float64) (float64, error) {
	sum := 0.0
	for i, tree := range rf.trees {
		p, err := tree.PredictProba(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += p
	}
	return sum / float64(len(rf.trees)), nil
}
