package classifier

import "errors"

var (
	// ErrModelLoad indicates the model weights or label list could not be read or parsed.
	ErrModelLoad = errors.New("model load failed")
	// ErrModelNotReady indicates a prediction was requested before the model finished loading.
	ErrModelNotReady = errors.New("model not ready")
	// ErrTimeout indicates a model load or inference exceeded its time bound.
	ErrTimeout = errors.New("model operation timed out")
	// ErrInvalidInput indicates the tensor does not match the model input shape.
	ErrInvalidInput = errors.New("tensor does not match model input")
	// ErrInvalidOutput indicates the model produced a vector of the wrong
	// length or values that are not probabilities.
	ErrInvalidOutput = errors.New("model output is not a probability per label")
)
