package ml

import (
	"math"
	"strconv"
)

type Verdict int

const (
	VerdictLegitimate Verdict = iota
	VerdictFraud
)

const (
	FraudLabel          = "Fraud Transaction 🚨"
	LegitimateLabel     = "Legitimate Transaction ✅"
	ModelNotLoadedLabel = "Model not loaded"
	PredictionErrLabel  = "Prediction error"
	NotApplicable       = "N/A"
)

func (v Verdict) String() string {
	if v == VerdictFraud {
		return "fraud"
	}
	return "legitimate"
}

func (v Verdict) Label() string {
	if v == VerdictFraud {
		return FraudLabel
	}
	return LegitimateLabel
}

// Classify applies the decision threshold; a probability equal to the threshold is fraud.
func Classify(probability, threshold float64) Verdict {
	if probability >= threshold {
		return VerdictFraud
	}
	return VerdictLegitimate
}

// RoundProbability rounds to 4 decimal places.
func RoundProbability(p float64) float64 {
	return math.Round(p*1e4) / 1e4
}

// FormatProbability renders the 4-decimal rounded value without trailing zeros (0.87, 0.1235).
func FormatProbability(p float64) string {
	return strconv.FormatFloat(RoundProbability(p), 'f', -1, 64)
}
