package identification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/specimen/internal/catalog"
	"github.com/JaimeStill/specimen/pkg/classifier"
	"github.com/JaimeStill/specimen/pkg/preprocess"
)

type service struct {
	classifier   *classifier.Classifier
	preprocessor *preprocess.Preprocessor
	catalog      *catalog.Catalog
	logger       *slog.Logger
}

// New creates an identification service implementing the System interface.
func New(
	c *classifier.Classifier,
	p *preprocess.Preprocessor,
	cat *catalog.Catalog,
	logger *slog.Logger,
) System {
	return &service{
		classifier:   c,
		preprocessor: p,
		catalog:      cat,
		logger:       logger.With("system", "identification"),
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) Model() classifier.Info {
	return s.classifier.Info()
}

func (s *service) LoadModel(ctx context.Context) (classifier.Info, error) {
	if err := s.classifier.Initialize(ctx); err != nil {
		return s.classifier.Info(), err
	}
	return s.classifier.Info(), nil
}

func (s *service) Identify(ctx context.Context, imageURI string) (*Identification, error) {
	if !s.classifier.Ready() {
		return nil, fmt.Errorf("%w: state %s", classifier.ErrModelNotReady, s.classifier.State())
	}

	start := time.Now()

	img, err := s.preprocessor.Process(ctx, imageURI, s.classifier.InputShape())
	if err != nil {
		return nil, err
	}
	defer img.Release()

	pred, err := s.classifier.Classify(ctx, img.Tensor)
	if err != nil {
		return nil, err
	}

	result := newIdentification(pred.Label, pred.Confidence, s.catalog.Resolve(pred.Label))
	result.Fingerprint = img.Fingerprint

	s.logger.Info("specimen identified",
		"label", result.Name,
		"category", result.Category,
		"confidence", result.Confidence,
		"duration", time.Since(start),
	)
	return result, nil
}
