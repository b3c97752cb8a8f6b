package ml

import (
	"math"
	"testing"
)

func TestLogisticRegression(t *testing.T) {
	model, err := NewLogisticRegression([]float64{1, -1}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := model.PredictProba([]float64{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 0.5 {
		t.Fatalf("expected 0.5, got %v", p)
	}

	p, _ = model.PredictProba([]float64{2, 0})
	if math.Abs(p-1/(1+math.Exp(-2))) > 1e-12 {
		t.Fatalf("unexpected probability %v", p)
	}

	if p, _ = model.PredictProba([]float64{-1e6, 0}); p != 0 || math.IsNaN(p) {
		t.Fatalf("expected saturation to 0, got %v", p)
	}
	if _, err := model.PredictProba([]float64{1}); err == nil {
		t.Fatal("expected width error")
	}
}

func TestNewLogisticRegressionValidates(t *testing.T) {
	if _, err := NewLogisticRegression(nil, 0); err == nil {
		t.Fatal("expected error for empty coefficients")
	}
	if _, err := NewLogisticRegression([]float64{math.NaN()}, 0); err == nil {
		t.Fatal("expected error for NaN coefficient")
	}
	if _, err := NewLogisticRegression([]float64{1}, math.Inf(1)); err == nil {
		t.Fatal("expected error for infinite intercept")
	}
}
