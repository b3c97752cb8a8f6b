package ml

import (
	"errors"
	"fmt"
	"math"
)

type LogisticRegression struct {
	coefficients []float64
	intercept    float64
}

func NewLogisticRegression(coefficients []float64, intercept float64) (*LogisticRegression, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("%w: logistic regression has no coefficients", ErrInvalidArtifact)
	}
	for i, c := range coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrInvalidArtifact, i)
		}
	}
	if math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, fmt.Errorf("%w: intercept is not finite", ErrInvalidArtifact)
	}
	return &LogisticRegression{
		coefficients: append([]float64(nil), coefficients...),
		intercept:    intercept,
	}, nil
}

func (lr *LogisticRegression) InputWidth() int {
	return len(lr.coefficients)
}

func (lr *LogisticRegression) PredictProba(features []float64) (float64, error) {
	if len(features) != len(lr.coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(lr.coefficients), len(features))
	}
	z := lr.intercept
	for i, x := range features {
		z += lr.coefficients[i] * x
	}
	if math.IsNaN(z) {
		return 0, errors.New("decision function is NaN")
	}
	return sigmoid(z), nil
}

// sigmoid 数值稳定版本，避免 exp 溢出
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
