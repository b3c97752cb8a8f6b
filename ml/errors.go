package ml

import "errors"

var (
	ErrModelUnavailable = errors.New("model not loaded")
	ErrMissingFeature   = errors.New("missing feature")
	ErrInvalidArtifact  = errors.New("invalid model artifact")
	ErrUnsupportedModel = errors.New("unsupported model type")
)
