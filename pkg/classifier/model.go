package classifier

import (
	"context"

	"github.com/JaimeStill/specimen/pkg/tensor"
)

// Model runs a forward pass over a preprocessed image tensor.
type Model interface {
	// Predict returns one probability per output class for the single sample in t.
	Predict(ctx context.Context, t *tensor.Tensor) ([]float64, error)
	// InputShape returns the per-sample shape the model expects.
	InputShape() tensor.Shape
	// Outputs returns the number of output classes, or 0 when the backend
	// cannot report it before the first prediction.
	Outputs() int
}

// Bundle pairs a loaded model with its ordered label list.
type Bundle struct {
	Model  Model
	Labels []string
}

// Loader reads model weights and labels from their source.
type Loader interface {
	Load(ctx context.Context) (*Bundle, error)
	// Backend names the model implementation, e.g. "dense" or "remote".
	Backend() string
}
