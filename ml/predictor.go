package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
)

type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeModelUnavailable OutcomeKind = "model_unavailable"
	OutcomeNormalizeFailed  OutcomeKind = "normalize_failed"
	OutcomeInferenceFailed  OutcomeKind = "inference_failed"
)

// Outcome is the result of one pass through the inference pipeline.
// Probability and Verdict are meaningful only when Kind is OutcomeSuccess.
type Outcome struct {
	Kind        OutcomeKind
	Probability float64
	Verdict     Verdict
	Threshold   float64
	Err         error
}

func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

func (o Outcome) Label() string {
	switch o.Kind {
	case OutcomeSuccess:
		return o.Verdict.Label()
	case OutcomeModelUnavailable:
		return ModelNotLoadedLabel
	default:
		return PredictionErrLabel
	}
}

func (o Outcome) DisplayProbability() string {
	if !o.Succeeded() {
		return NotApplicable
	}
	return FormatProbability(o.Probability)
}

// Predictor runs the inference pipeline against a fixed artifact.
type Predictor struct {
	artifact *Artifact
}

func NewPredictor(artifact *Artifact) *Predictor {
	if artifact == nil {
		artifact = Unavailable(nil)
	}
	return &Predictor{artifact: artifact}
}

func (p *Predictor) Artifact() *Artifact {
	return p.artifact
}

func (p *Predictor) Predict(ctx context.Context, tx Transaction) Outcome {
	threshold := p.artifact.Threshold()
	if !p.artifact.Available() {
		return Outcome{Kind: OutcomeModelUnavailable, Threshold: threshold, Err: ErrModelUnavailable}
	}

	vector, err := OrderFeatures(tx, p.artifact.features)
	if err != nil {
		return Outcome{Kind: OutcomeNormalizeFailed, Threshold: threshold, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return Outcome{Kind: OutcomeInferenceFailed, Threshold: threshold, Err: err}
	}
	prob, err := infer(p.artifact.classifier, vector)
	if err != nil {
		return Outcome{Kind: OutcomeInferenceFailed, Threshold: threshold, Err: err}
	}

	return Outcome{
		Kind:        OutcomeSuccess,
		Probability: prob,
		Verdict:     Classify(prob, threshold),
		Threshold:   threshold,
	}
}

// infer calls the classifier and converts panics and out-of-range outputs into errors.
func infer(c Classifier, vector []float64) (prob float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()

	prob, err = c.PredictProba(vector)
	if err != nil {
		return 0, fmt.Errorf("classifier: %w", err)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, errors.New("classifier returned probability outside [0,1]")
	}
	return prob, nil
}
