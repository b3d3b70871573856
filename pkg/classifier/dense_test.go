package classifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/specimen/pkg/classifier"
	"github.com/JaimeStill/specimen/pkg/tensor"
)

// colorModel pools a 2x2 RGB image to one pixel and maps the red and blue
// channels to two classes through softmax.
func colorModel() *classifier.DenseFile {
	return &classifier.DenseFile{
		Name:  "color",
		Input: shape,
		Pool:  2,
		Layers: []classifier.DenseLayer{
			{
				Inputs:     3,
				Outputs:    2,
				Weights:    []float64{10, 0, 0, 0, 0, 10},
				Bias:       []float64{0, 0},
				Activation: classifier.ActivationSoftmax,
			},
		},
	}
}

func fill(tn *tensor.Tensor, rgb [3]float32) {
	for y := range tn.Shape.Height {
		for x := range tn.Shape.Width {
			for c := range tn.Shape.Channels {
				tn.Data[tn.Index(0, y, x, c)] = rgb[c]
			}
		}
	}
}

func TestDenseModelPredict(t *testing.T) {
	m, err := classifier.NewDenseModel(colorModel())
	if err != nil {
		t.Fatalf("NewDenseModel failed: %v", err)
	}
	if m.Outputs() != 2 {
		t.Errorf("Outputs = %d, want 2", m.Outputs())
	}

	pool := tensor.NewPool(shape)
	tn := pool.Get()
	defer tn.Release()

	fill(tn, [3]float32{1, 0, 0})
	probs, err := m.Predict(context.Background(), tn)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if probs[0] <= probs[1] {
		t.Errorf("red input scored %v", probs)
	}
	if sum := probs[0] + probs[1]; math.Abs(sum-1) > 1e-9 {
		t.Errorf("softmax sum = %v, want 1", sum)
	}

	fill(tn, [3]float32{0, 0, 1})
	probs, _ = m.Predict(context.Background(), tn)
	if probs[1] <= probs[0] {
		t.Errorf("blue input scored %v", probs)
	}
}

func TestDenseModelReLU(t *testing.T) {
	f := &classifier.DenseFile{
		Input: tensor.Shape{Height: 1, Width: 1, Channels: 2},
		Layers: []classifier.DenseLayer{
			{Inputs: 2, Outputs: 2, Weights: []float64{1, 0, 0, -1}, Bias: []float64{0, 0}, Activation: classifier.ActivationReLU},
			{Inputs: 2, Outputs: 2, Weights: []float64{1, 0, 0, 1}, Bias: []float64{0, 0}, Activation: classifier.ActivationSoftmax},
		},
	}

	m, err := classifier.NewDenseModel(f)
	if err != nil {
		t.Fatalf("NewDenseModel failed: %v", err)
	}

	tn := tensor.NewPool(f.Input).Get()
	defer tn.Release()
	tn.Data[0], tn.Data[1] = 0.25, 0.75

	out, err := m.Predict(context.Background(), tn)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	// softmax(relu(0.25), relu(-0.75)) = softmax(0.25, 0)
	want := 1 / (1 + math.Exp(-0.25))
	if math.Abs(out[0]-want) > 1e-9 {
		t.Errorf("out[0] = %v, want %v", out[0], want)
	}
}

func TestNewDenseModelValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *classifier.DenseFile)
	}{
		{"invalid input", func(f *classifier.DenseFile) { f.Input = tensor.Shape{} }},
		{"pool does not divide", func(f *classifier.DenseFile) { f.Pool = 3 }},
		{"no layers", func(f *classifier.DenseFile) { f.Layers = nil }},
		{"input mismatch", func(f *classifier.DenseFile) { f.Layers[0].Inputs = 4 }},
		{"weight count", func(f *classifier.DenseFile) { f.Layers[0].Weights = f.Layers[0].Weights[:5] }},
		{"bias count", func(f *classifier.DenseFile) { f.Layers[0].Bias = []float64{0} }},
		{"activation", func(f *classifier.DenseFile) { f.Layers[0].Activation = "tanh" }},
		{"output not softmax", func(f *classifier.DenseFile) { f.Layers[0].Activation = classifier.ActivationLinear }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := colorModel()
			tt.mutate(f)
			if _, err := classifier.NewDenseModel(f); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDenseLoader(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	labelsPath := filepath.Join(dir, "labels.txt")

	data, _ := json.Marshal(colorModel())
	if err := os.WriteFile(modelPath, data, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if err := os.WriteFile(labelsPath, []byte("granite\nslate\n"), 0o644); err != nil {
		t.Fatalf("write labels: %v", err)
	}

	c := classifier.New(&classifier.DenseLoader{ModelPath: modelPath, LabelsPath: labelsPath}, 0, 0, discardLogger())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	tn := tensor.NewPool(c.InputShape()).Get()
	defer tn.Release()
	fill(tn, [3]float32{0, 0, 1})

	pred, err := c.Classify(context.Background(), tn)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if pred.Label != "slate" {
		t.Errorf("Label = %s, want slate", pred.Label)
	}
}

func TestDenseLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "labels.txt")
	os.WriteFile(labelsPath, []byte("granite\nslate\n"), 0o644)

	badModel := filepath.Join(dir, "bad.json")
	os.WriteFile(badModel, []byte("{"), 0o644)

	threeLabels := filepath.Join(dir, "three.txt")
	os.WriteFile(threeLabels, []byte("a\nb\nc\n"), 0o644)

	modelPath := filepath.Join(dir, "model.json")
	data, _ := json.Marshal(colorModel())
	os.WriteFile(modelPath, data, 0o644)

	tests := []struct {
		name   string
		loader *classifier.DenseLoader
	}{
		{"missing labels", &classifier.DenseLoader{ModelPath: modelPath, LabelsPath: filepath.Join(dir, "none.txt")}},
		{"missing model", &classifier.DenseLoader{ModelPath: filepath.Join(dir, "none.json"), LabelsPath: labelsPath}},
		{"malformed model", &classifier.DenseLoader{ModelPath: badModel, LabelsPath: labelsPath}},
		{"label count mismatch", &classifier.DenseLoader{ModelPath: modelPath, LabelsPath: threeLabels}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classifier.New(tt.loader, 0, 0, discardLogger())
			if err := c.Initialize(context.Background()); !errors.Is(err, classifier.ErrModelLoad) {
				t.Errorf("err = %v, want ErrModelLoad", err)
			}
		})
	}
}
