// Package classifier owns the image-classification model lifecycle: a single
// shared load of weights and labels, and forward passes over preprocessed
// tensors once the model is ready.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/floats"

	"github.com/JaimeStill/specimen/pkg/tensor"
)

// State is a position in the model lifecycle.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Info summarizes the classifier for status reporting.
type Info struct {
	State      string       `json:"state"`
	Loaded     bool         `json:"loaded"`
	Backend    string       `json:"backend"`
	LabelCount int          `json:"label_count"`
	InputShape tensor.Shape `json:"input_shape"`
	Error      string       `json:"error,omitempty"`
}

// Classifier holds a loaded model and its labels. The zero value is not usable;
// construct with New.
type Classifier struct {
	loader           Loader
	loadTimeout      time.Duration
	inferenceTimeout time.Duration
	logger           *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	state  State
	model  Model
	labels []string
	err    error
}

// New creates an uninitialized Classifier. Zero timeouts disable the bound.
func New(loader Loader, loadTimeout, inferenceTimeout time.Duration, logger *slog.Logger) *Classifier {
	return &Classifier{
		loader:           loader,
		loadTimeout:      loadTimeout,
		inferenceTimeout: inferenceTimeout,
		logger:           logger.With("system", "classifier", "backend", loader.Backend()),
	}
}

// Initialize loads the model and labels. It returns immediately when the
// model is already ready, and joins the in-flight load when one is running.
// After a failure, a later call retries the load.
func (c *Classifier) Initialize(ctx context.Context) error {
	if c.State() == Ready {
		return nil
	}

	ch := c.group.DoChan("load", func() (any, error) {
		return nil, c.load(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Classifier) load(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Ready {
		c.mu.Unlock()
		return nil
	}
	c.state = Loading
	c.err = nil
	c.mu.Unlock()

	start := time.Now()
	c.logger.Info("loading model")

	bundle, err := c.runLoad(ctx)
	if err == nil {
		err = validateBundle(bundle)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.state = Failed
		c.err = err
		c.logger.Error("model load failed", "error", err)
		return err
	}

	c.state = Ready
	c.model = bundle.Model
	c.labels = bundle.Labels
	c.logger.Info("model loaded",
		"labels", len(bundle.Labels),
		"input_shape", bundle.Model.InputShape().String(),
		"duration", time.Since(start),
	)
	return nil
}

// runLoad bounds the loader by loadTimeout even when the loader ignores its
// context; an abandoned load finishes in the background and is discarded.
func (c *Classifier) runLoad(ctx context.Context) (*Bundle, error) {
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}

	type result struct {
		bundle *Bundle
		err    error
	}
	done := make(chan result, 1)

	go func() {
		b, err := c.loader.Load(ctx)
		done <- result{b, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: load exceeded %v", ErrTimeout, c.loadTimeout)
			}
			if errors.Is(r.err, ErrModelLoad) {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: %w", ErrModelLoad, r.err)
		}
		return r.bundle, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: load exceeded %v", ErrTimeout, c.loadTimeout)
	}
}

func validateBundle(b *Bundle) error {
	if b == nil || b.Model == nil {
		return fmt.Errorf("%w: loader returned no model", ErrModelLoad)
	}
	if len(b.Labels) == 0 {
		return fmt.Errorf("%w: label list is empty", ErrModelLoad)
	}
	if !b.Model.InputShape().Valid() {
		return fmt.Errorf("%w: invalid input shape %s", ErrModelLoad, b.Model.InputShape())
	}
	if n := b.Model.Outputs(); n > 0 && n != len(b.Labels) {
		return fmt.Errorf("%w: model has %d outputs for %d labels", ErrModelLoad, n, len(b.Labels))
	}
	return nil
}

// Prediction is the top-1 result of a forward pass. Label and Confidence
// always come from the same index of the same probability vector.
type Prediction struct {
	Index         int
	Label         string
	Confidence    float64
	Probabilities []float64
}

// Classify runs one forward pass and selects the top label.
func (c *Classifier) Classify(ctx context.Context, t *tensor.Tensor) (*Prediction, error) {
	probs, labels, err := c.predict(ctx, t)
	if err != nil {
		return nil, err
	}

	idx, conf := Top(probs)
	return &Prediction{
		Index:         idx,
		Label:         labels[idx],
		Confidence:    conf,
		Probabilities: probs,
	}, nil
}

// Predict runs one forward pass. The returned slice has one entry per label.
func (c *Classifier) Predict(ctx context.Context, t *tensor.Tensor) ([]float64, error) {
	probs, _, err := c.predict(ctx, t)
	return probs, err
}

func (c *Classifier) predict(ctx context.Context, t *tensor.Tensor) ([]float64, []string, error) {
	c.mu.RLock()
	state, model, labels := c.state, c.model, c.labels
	c.mu.RUnlock()

	if state != Ready {
		return nil, nil, fmt.Errorf("%w: state %s", ErrModelNotReady, state)
	}
	if t == nil || t.Batch != 1 || t.Shape != model.InputShape() || len(t.Data) != t.Shape.Size() {
		return nil, nil, ErrInvalidInput
	}

	if c.inferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.inferenceTimeout)
		defer cancel()
	}

	type result struct {
		probs []float64
		err   error
	}
	done := make(chan result, 1)

	go func() {
		p, err := model.Predict(ctx, t)
		done <- result{p, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		// The abandoned forward pass still reads t.Data.
		t.Detach()
		return nil, nil, c.ctxError(ctx)
	}

	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) {
			return nil, nil, c.ctxError(ctx)
		}
		return nil, nil, fmt.Errorf("predict: %w", r.err)
	}
	if len(r.probs) != len(labels) {
		return nil, nil, fmt.Errorf("%w: got %d values for %d labels", ErrInvalidOutput, len(r.probs), len(labels))
	}
	for i, p := range r.probs {
		if math.IsNaN(p) || p < 0 || p > 1+probabilityTolerance {
			return nil, nil, fmt.Errorf("%w: %s scored %v", ErrInvalidOutput, labels[i], p)
		}
	}
	return r.probs, labels, nil
}

// probabilityTolerance absorbs float32 rounding in served softmax outputs.
const probabilityTolerance = 1e-6

func (c *Classifier) ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: inference exceeded %v", ErrTimeout, c.inferenceTimeout)
	}
	return ctx.Err()
}

// Top returns the index and probability of the highest-scoring class.
// Ties resolve to the lowest index, i.e. the first label in label order.
// A NaN maximum reads as 0; rounding just above 1 reads as 1.
func Top(probs []float64) (int, float64) {
	if len(probs) == 0 {
		return -1, 0
	}

	idx := floats.MaxIdx(probs)
	conf := probs[idx]
	if math.IsNaN(conf) {
		return idx, 0
	}
	return idx, min(conf, 1)
}

// Label returns the label at index i of the loaded label list.
func (c *Classifier) Label(i int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i < 0 || i >= len(c.labels) {
		return "", false
	}
	return c.labels[i], true
}

// Labels returns a copy of the loaded label list.
func (c *Classifier) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.labels...)
}

// State returns the current lifecycle state.
func (c *Classifier) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ready reports whether the model is loaded.
func (c *Classifier) Ready() bool {
	return c.State() == Ready
}

// InputShape returns the loaded model's input shape, or the zero Shape before load.
func (c *Classifier) InputShape() tensor.Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.model == nil {
		return tensor.Shape{}
	}
	return c.model.InputShape()
}

// Info returns a status snapshot.
func (c *Classifier) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := Info{
		State:      c.state.String(),
		Loaded:     c.state == Ready,
		Backend:    c.loader.Backend(),
		LabelCount: len(c.labels),
	}
	if c.model != nil {
		info.InputShape = c.model.InputShape()
	}
	if c.err != nil {
		info.Error = c.err.Error()
	}
	return info
}
