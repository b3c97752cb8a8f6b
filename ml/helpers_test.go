package ml

import (
	"strconv"
)

type fakeClassifier struct {
	prob   float64
	err    error
	width  int
	panics bool
	seen   [][]float64
}

func (f *fakeClassifier) PredictProba(features []float64) (float64, error) {
	if f.panics {
		panic("boom")
	}
	f.seen = append(f.seen, append([]float64(nil), features...))
	return f.prob, f.err
}

func (f *fakeClassifier) InputWidth() int {
	if f.width == 0 {
		return NumFormFields
	}
	return f.width
}

// scenarioFeatures is Time, Amount, V1..V28.
func scenarioFeatures() []string {
	features := []string{"Time", "Amount"}
	for i := 1; i <= 28; i++ {
		features = append(features, "V"+strconv.Itoa(i))
	}
	return features
}

func zeroTransaction(amount float64) Transaction {
	tx := Transaction{}
	for _, name := range FormFields() {
		tx[name] = 0
	}
	tx["Amount"] = amount
	return tx
}
