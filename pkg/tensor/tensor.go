// Package tensor defines the float32 image tensor passed from preprocessing
// to the classifier, and a pool that recycles tensor buffers between requests.
package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Shape is the per-sample input shape in height, width, channels order.
type Shape struct {
	Height   int `json:"height"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// Size returns the number of values in one sample.
func (s Shape) Size() int {
	return s.Height * s.Width * s.Channels
}

// Valid reports whether every dimension is positive.
func (s Shape) Valid() bool {
	return s.Height > 0 && s.Width > 0 && s.Channels > 0
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// Tensor is a batch of samples stored contiguously in NHWC order.
type Tensor struct {
	Shape Shape
	Batch int
	Data  []float32

	pool     *Pool
	once     sync.Once
	detached bool
}

// Index returns the offset of the value at sample b, row y, column x, channel c.
func (t *Tensor) Index(b, y, x, c int) int {
	s := t.Shape
	return ((b*s.Height+y)*s.Width+x)*s.Channels + c
}

// At returns the value at sample b, row y, column x, channel c.
func (t *Tensor) At(b, y, x, c int) float32 {
	return t.Data[t.Index(b, y, x, c)]
}

// Release returns the buffer to its pool. Calling Release more than once,
// or on a tensor without a pool, is safe. Data must not be used afterwards.
func (t *Tensor) Release() {
	t.once.Do(func() {
		switch {
		case t.pool == nil:
			t.Data = nil
		case t.detached:
			t.pool.outstanding.Add(-1)
		default:
			t.pool.put(t.Data)
			t.Data = nil
		}
	})
}

// Detach keeps the buffer out of the pool on Release, for tensors still
// referenced by work that outlived its caller. Detach must be called from
// the goroutine that will call Release.
func (t *Tensor) Detach() {
	t.detached = true
}

// Pool recycles single-sample tensor buffers of a fixed shape.
type Pool struct {
	shape       Shape
	buffers     sync.Pool
	outstanding atomic.Int64
}

// NewPool creates a Pool for single-sample tensors of the given shape.
func NewPool(shape Shape) *Pool {
	p := &Pool{shape: shape}
	p.buffers.New = func() any {
		buf := make([]float32, shape.Size())
		return &buf
	}
	return p
}

// Shape returns the sample shape served by the pool.
func (p *Pool) Shape() Shape {
	return p.shape
}

// Get acquires a zeroed batch-of-one tensor. The caller must Release it.
func (p *Pool) Get() *Tensor {
	buf := *p.buffers.Get().(*[]float32)
	clear(buf)
	p.outstanding.Add(1)

	return &Tensor{
		Shape: p.shape,
		Batch: 1,
		Data:  buf,
		pool:  p,
	}
}

// Outstanding returns the number of acquired tensors not yet released.
func (p *Pool) Outstanding() int64 {
	return p.outstanding.Load()
}

func (p *Pool) put(buf []float32) {
	p.outstanding.Add(-1)
	p.buffers.Put(&buf)
}
