package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/JaimeStill/specimen/pkg/tensor"
)

// Activation functions supported by dense layers.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSoftmax = "softmax"
)

// DenseFile is the on-disk JSON form of a dense classification network.
// The input is average-pooled by Pool along height and width, flattened in
// HWC order, then fed through Layers in sequence. The last layer must be
// softmax so the outputs are class probabilities.
type DenseFile struct {
	Name   string       `json:"name"`
	Input  tensor.Shape `json:"input"`
	Pool   int          `json:"pool"`
	Layers []DenseLayer `json:"layers"`
}

// DenseLayer holds a fully connected layer. Weights is row-major with
// Outputs rows of Inputs columns.
type DenseLayer struct {
	Inputs     int       `json:"inputs"`
	Outputs    int       `json:"outputs"`
	Weights    []float64 `json:"weights"`
	Bias       []float64 `json:"bias"`
	Activation string    `json:"activation"`
}

type denseLayer struct {
	weights    *mat.Dense
	bias       *mat.VecDense
	activation string
}

// DenseModel evaluates a DenseFile network in process.
type DenseModel struct {
	input  tensor.Shape
	pool   int
	layers []denseLayer
}

// NewDenseModel validates f and builds the network.
func NewDenseModel(f *DenseFile) (*DenseModel, error) {
	if !f.Input.Valid() {
		return nil, fmt.Errorf("invalid input shape %s", f.Input)
	}
	pool := max(f.Pool, 1)
	if f.Input.Height%pool != 0 || f.Input.Width%pool != 0 {
		return nil, fmt.Errorf("pool %d does not divide input %s", pool, f.Input)
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("model has no layers")
	}

	inputs := (f.Input.Height / pool) * (f.Input.Width / pool) * f.Input.Channels
	layers := make([]denseLayer, 0, len(f.Layers))

	for i, l := range f.Layers {
		if l.Inputs != inputs {
			return nil, fmt.Errorf("layer %d: expects %d inputs, previous stage yields %d", i, l.Inputs, inputs)
		}
		if l.Outputs <= 0 {
			return nil, fmt.Errorf("layer %d: invalid outputs %d", i, l.Outputs)
		}
		if len(l.Weights) != l.Inputs*l.Outputs {
			return nil, fmt.Errorf("layer %d: %d weights for %dx%d", i, len(l.Weights), l.Outputs, l.Inputs)
		}
		if len(l.Bias) != l.Outputs {
			return nil, fmt.Errorf("layer %d: %d biases for %d outputs", i, len(l.Bias), l.Outputs)
		}

		act := l.Activation
		switch act {
		case "":
			act = ActivationLinear
		case ActivationLinear, ActivationReLU, ActivationSoftmax:
		default:
			return nil, fmt.Errorf("layer %d: unknown activation %q", i, l.Activation)
		}

		layers = append(layers, denseLayer{
			weights:    mat.NewDense(l.Outputs, l.Inputs, l.Weights),
			bias:       mat.NewVecDense(l.Outputs, l.Bias),
			activation: act,
		})
		inputs = l.Outputs
	}

	if last := layers[len(layers)-1].activation; last != ActivationSoftmax {
		return nil, fmt.Errorf("output layer activation is %s, want %s", last, ActivationSoftmax)
	}

	return &DenseModel{
		input:  f.Input,
		pool:   pool,
		layers: layers,
	}, nil
}

// ReadDenseModel loads a DenseFile from path.
func ReadDenseModel(path string) (*DenseModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var f DenseFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	return NewDenseModel(&f)
}

func (m *DenseModel) InputShape() tensor.Shape {
	return m.input
}

func (m *DenseModel) Outputs() int {
	r, _ := m.layers[len(m.layers)-1].weights.Dims()
	return r
}

func (m *DenseModel) Predict(ctx context.Context, t *tensor.Tensor) ([]float64, error) {
	x := m.features(t)

	for _, l := range m.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, _ := l.weights.Dims()
		y := mat.NewVecDense(rows, nil)
		y.MulVec(l.weights, x)
		y.AddVec(y, l.bias)
		activate(y.RawVector().Data, l.activation)
		x = y
	}

	out := make([]float64, x.Len())
	copy(out, x.RawVector().Data)
	return out, nil
}

// features average-pools the first sample of t into a flat HWC vector.
func (m *DenseModel) features(t *tensor.Tensor) *mat.VecDense {
	s := m.input
	ph, pw := s.Height/m.pool, s.Width/m.pool
	out := make([]float64, ph*pw*s.Channels)
	scale := 1 / float64(m.pool*m.pool)

	for y := range s.Height {
		for x := range s.Width {
			cell := ((y/m.pool)*pw + x/m.pool) * s.Channels
			for c := range s.Channels {
				out[cell+c] += float64(t.At(0, y, x, c))
			}
		}
	}
	floats.Scale(scale, out)

	return mat.NewVecDense(len(out), out)
}

func activate(v []float64, activation string) {
	switch activation {
	case ActivationReLU:
		for i, x := range v {
			v[i] = math.Max(0, x)
		}
	case ActivationSoftmax:
		softmax(v)
	}
}

func softmax(v []float64) {
	maxV := floats.Max(v)
	for i, x := range v {
		v[i] = math.Exp(x - maxV)
	}
	floats.Scale(1/floats.Sum(v), v)
}

// DenseLoader loads a DenseModel and its labels from local files.
type DenseLoader struct {
	ModelPath  string
	LabelsPath string
}

func (l *DenseLoader) Backend() string {
	return BackendDense
}

func (l *DenseLoader) Load(ctx context.Context) (*Bundle, error) {
	labels, err := ReadLabels(l.LabelsPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model, err := ReadDenseModel(l.ModelPath)
	if err != nil {
		return nil, err
	}

	return &Bundle{Model: model, Labels: labels}, nil
}
