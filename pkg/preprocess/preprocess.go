// Package preprocess turns an image URI into the normalized tensor a
// classifier consumes: read, decode, orient, resize, and scale to [0, 1].
package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/JaimeStill/specimen/pkg/tensor"
)

// Result is a preprocessed image. The caller owns Tensor and must Release it.
type Result struct {
	Tensor      *tensor.Tensor
	Fingerprint string
	Format      string
	Width       int
	Height      int
}

// Release returns the tensor buffer to its pool.
func (r *Result) Release() {
	if r != nil && r.Tensor != nil {
		r.Tensor.Release()
	}
}

// Preprocessor converts images into tensors. Buffers are pooled per shape.
type Preprocessor struct {
	source *Source
	logger *slog.Logger

	mu    sync.Mutex
	pools map[tensor.Shape]*tensor.Pool
}

// New creates a Preprocessor reading images through source. A nil source
// uses the Source defaults.
func New(source *Source, logger *slog.Logger) *Preprocessor {
	if source == nil {
		source = &Source{}
	}

	return &Preprocessor{
		source: source,
		logger: logger.With("system", "preprocess"),
		pools:  make(map[tensor.Shape]*tensor.Pool),
	}
}

// Outstanding returns the number of tensors handed out and not yet released.
func (p *Preprocessor) Outstanding() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var n int64
	for _, pool := range p.pools {
		n += pool.Outstanding()
	}
	return n
}

// Process reads and decodes the image at uri and returns a batch-of-one
// tensor of the given shape.
func (p *Preprocessor) Process(ctx context.Context, uri string, shape tensor.Shape) (*Result, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}

	data, err := p.source.Read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return p.ProcessBytes(data, shape)
}

// ProcessBytes decodes raw image bytes and returns a batch-of-one tensor of
// the given shape.
func (p *Preprocessor) ProcessBytes(data []byte, shape tensor.Shape) (*Result, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	if limit := p.source.maxPixels(); int64(cfg.Width)*int64(cfg.Height) > limit {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageDecode, cfg.Width, cfg.Height, limit)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}

	img = orient(img, exifOrientation(data))
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrImageDecode)
	}

	fingerprint, err := Fingerprint(img)
	if err != nil {
		p.logger.Debug("fingerprint skipped", "error", err)
	}

	t := p.pool(shape).Get()
	fill(t, img)

	return &Result{
		Tensor:      t,
		Fingerprint: fingerprint,
		Format:      format,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

func (p *Preprocessor) pool(shape tensor.Shape) *tensor.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, ok := p.pools[shape]
	if !ok {
		pool = tensor.NewPool(shape)
		p.pools[shape] = pool
	}
	return pool
}

// checkShape accepts grayscale and RGB shapes with positive dimensions.
func checkShape(shape tensor.Shape) error {
	if !shape.Valid() {
		return fmt.Errorf("%w: shape %s", ErrInvalidShape, shape)
	}
	if shape.Channels != 1 && shape.Channels != 3 {
		return fmt.Errorf("%w: %d channels", ErrInvalidShape, shape.Channels)
	}
	return nil
}

// fill resizes img bilinearly to the tensor shape and writes pixels scaled
// from [0, 255] to [0, 1]. Grayscale uses ITU-R BT.601 luma weights.
func fill(t *tensor.Tensor, img image.Image) {
	s := t.Shape
	resized := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	const scale = 1.0 / 255.0
	for y := range s.Height {
		for x := range s.Width {
			px := resized.Pix[resized.PixOffset(x, y):]
			r, g, b := float32(px[0]), float32(px[1]), float32(px[2])

			i := t.Index(0, y, x, 0)
			if s.Channels == 1 {
				t.Data[i] = (0.299*r + 0.587*g + 0.114*b) * scale
				continue
			}
			t.Data[i] = r * scale
			t.Data[i+1] = g * scale
			t.Data[i+2] = b * scale
		}
	}
}
