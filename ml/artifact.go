package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"
)

// DefaultThreshold is used when no artifact could be loaded.
const DefaultThreshold = 0.5

type Metadata struct {
	Name      string `json:"name,omitempty"`
	Version   string `json:"version,omitempty"`
	TrainedAt string `json:"trained_at,omitempty"`
}

type artifactFile struct {
	Model     ModelSpec `json:"model"`
	Threshold *float64  `json:"threshold"`
	Features  []string  `json:"features"`
	Metadata  Metadata  `json:"metadata"`
}

// Artifact is the loaded model bundle. It is never mutated after construction
// and may be shared by any number of goroutines.
type Artifact struct {
	classifier Classifier
	threshold  float64
	features   []string
	modelType  string
	metadata   Metadata
	loadErr    error
}

// ArtifactInfo is a JSON-friendly summary of an Artifact.
type ArtifactInfo struct {
	Available bool     `json:"available"`
	ModelType string   `json:"model_type,omitempty"`
	Threshold float64  `json:"threshold"`
	Features  []string `json:"features"`
	Metadata  Metadata `json:"metadata"`
	LoadError string   `json:"load_error,omitempty"`
}

// NewArtifact validates and bundles a classifier with its threshold and feature order.
func NewArtifact(classifier Classifier, threshold float64, features []string, metadata Metadata) (*Artifact, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is nil", ErrInvalidArtifact)
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidArtifact, threshold)
	}
	if err := ValidateFeatureOrder(features); err != nil {
		return nil, err
	}
	if w := classifier.InputWidth(); w != len(features) {
		return nil, fmt.Errorf("%w: classifier expects %d features, artifact lists %d",
			ErrInvalidArtifact, w, len(features))
	}
	return &Artifact{
		classifier: classifier,
		threshold:  threshold,
		features:   append([]string(nil), features...),
		metadata:   metadata,
	}, nil
}

// Unavailable returns the degraded artifact: no classifier, default threshold, no features.
func Unavailable(reason error) *Artifact {
	if reason == nil {
		reason = ErrModelUnavailable
	}
	return &Artifact{
		threshold: DefaultThreshold,
		features:  []string{},
		loadErr:   reason,
	}
}

func ParseArtifact(data []byte) (*Artifact, error) {
	var file artifactFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if file.Threshold == nil {
		return nil, fmt.Errorf("%w: threshold is required", ErrInvalidArtifact)
	}
	classifier, err := LoadClassifier(file.Model)
	if err != nil {
		return nil, err
	}
	artifact, err := NewArtifact(classifier, *file.Threshold, file.Features, file.Metadata)
	if err != nil {
		return nil, err
	}
	artifact.modelType = file.Model.Type
	return artifact, nil
}

func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", path, err)
	}
	return artifact, nil
}

// LoadOrDegrade never fails: a broken or missing artifact yields the unavailable artifact.
func LoadOrDegrade(path string, logger *zap.Logger) *Artifact {
	artifact, err := LoadArtifact(path)
	if err != nil {
		logger.Error("model artifact unavailable, serving in degraded mode",
			zap.String("path", path), zap.Error(err))
		return Unavailable(err)
	}
	logger.Info("model artifact loaded",
		zap.String("path", path),
		zap.String("type", artifact.modelType),
		zap.Float64("threshold", artifact.threshold),
		zap.Int("features", len(artifact.features)),
		zap.String("version", artifact.metadata.Version))
	return artifact
}

func (a *Artifact) Available() bool {
	return a != nil && a.classifier != nil
}

func (a *Artifact) Threshold() float64 {
	return a.threshold
}

// Features returns a copy of the feature order.
func (a *Artifact) Features() []string {
	return append([]string(nil), a.features...)
}

func (a *Artifact) Metadata() Metadata {
	return a.metadata
}

func (a *Artifact) Info() ArtifactInfo {
	info := ArtifactInfo{
		Available: a.Available(),
		ModelType: a.modelType,
		Threshold: a.threshold,
		Features:  a.Features(),
		Metadata:  a.metadata,
	}
	if a.loadErr != nil {
		info.LoadError = a.loadErr.Error()
	}
	return info
}
