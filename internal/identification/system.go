package identification

import (
	"context"

	"github.com/JaimeStill/specimen/pkg/classifier"
)

// System defines the public contract for identification operations.
type System interface {
	Handler() *Handler

	// Identify classifies the image at imageURI and enriches the top label
	// from the catalog. It never saves the result.
	Identify(ctx context.Context, imageURI string) (*Identification, error)

	// Model reports the classifier status.
	Model() classifier.Info

	// LoadModel loads the model if it is not ready, retrying after a
	// failed load, and reports the resulting status.
	LoadModel(ctx context.Context) (classifier.Info, error)
}
