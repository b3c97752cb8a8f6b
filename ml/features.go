package ml

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NumFormFields Time + V1..V28 + Amount
const NumFormFields = 30

var formFields = buildFormFields()

func buildFormFields() []string {
	fields := make([]string, 0, NumFormFields)
	fields = append(fields, "Time")
	for i := 1; i <= 28; i++ {
		fields = append(fields, "V"+strconv.Itoa(i))
	}
	return append(fields, "Amount")
}

// FormFields returns the submitted field names in form order.
func FormFields() []string {
	return append([]string(nil), formFields...)
}

// Transaction maps a feature name to its submitted value.
type Transaction map[string]float64

type MissingFeatureError struct {
	Name string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing feature %q", e.Name)
}

func (e *MissingFeatureError) Unwrap() error {
	return ErrMissingFeature
}

// OrderFeatures builds the classifier input in the given feature order.
func OrderFeatures(tx Transaction, order []string) ([]float64, error) {
	if len(order) == 0 {
		return nil, errors.New("feature order is empty")
	}
	vector := make([]float64, len(order))
	for i, name := range order {
		v, ok := tx[name]
		if !ok {
			return nil, &MissingFeatureError{Name: name}
		}
		vector[i] = v
	}
	return vector, nil
}

// ValidateFeatureOrder checks that an artifact's feature list is a permutation of the form fields.
func ValidateFeatureOrder(features []string) error {
	if len(features) == 0 {
		return fmt.Errorf("%w: feature list is empty", ErrInvalidArtifact)
	}

	seen := make(map[string]bool, len(features))
	var duplicates, unknown []string
	known := make(map[string]bool, len(formFields))
	for _, f := range formFields {
		known[f] = true
	}
	for _, f := range features {
		if seen[f] {
			duplicates = append(duplicates, f)
			continue
		}
		seen[f] = true
		if !known[f] {
			unknown = append(unknown, f)
		}
	}
	var missing []string
	for _, f := range formFields {
		if !seen[f] {
			missing = append(missing, f)
		}
	}

	if len(duplicates)+len(unknown)+len(missing) == 0 {
		return nil
	}
	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing "+joinSorted(missing))
	}
	if len(unknown) > 0 {
		problems = append(problems, "unknown "+joinSorted(unknown))
	}
	if len(duplicates) > 0 {
		problems = append(problems, "duplicated "+joinSorted(duplicates))
	}
	return fmt.Errorf("%w: feature list does not match form fields: %s",
		ErrInvalidArtifact, strings.Join(problems, "; "))
}

func joinSorted(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return "[" + strings.Join(sorted, ", ") + "]"
}
