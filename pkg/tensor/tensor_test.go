package tensor_test

import (
	"testing"

	"github.com/JaimeStill/specimen/pkg/tensor"
)

func TestShape(t *testing.T) {
	tests := []struct {
		shape tensor.Shape
		size  int
		valid bool
		str   string
	}{
		{tensor.Shape{Height: 224, Width: 224, Channels: 3}, 150528, true, "224x224x3"},
		{tensor.Shape{Height: 2, Width: 3, Channels: 1}, 6, true, "2x3x1"},
		{tensor.Shape{Height: 0, Width: 3, Channels: 1}, 0, false, "0x3x1"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.shape.Size(); got != tt.size {
				t.Errorf("Size = %d, want %d", got, tt.size)
			}
			if got := tt.shape.Valid(); got != tt.valid {
				t.Errorf("Valid = %v, want %v", got, tt.valid)
			}
			if got := tt.shape.String(); got != tt.str {
				t.Errorf("String = %s, want %s", got, tt.str)
			}
		})
	}
}

func TestIndexNHWC(t *testing.T) {
	pool := tensor.NewPool(tensor.Shape{Height: 2, Width: 3, Channels: 2})
	tn := pool.Get()
	defer tn.Release()

	for i := range tn.Data {
		tn.Data[i] = float32(i)
	}

	if got := tn.At(0, 1, 2, 1); got != 11 {
		t.Errorf("At(0,1,2,1) = %v, want 11", got)
	}
	if got := tn.Index(0, 0, 1, 0); got != 2 {
		t.Errorf("Index(0,0,1,0) = %d, want 2", got)
	}
}

func TestPoolGetZeroed(t *testing.T) {
	pool := tensor.NewPool(tensor.Shape{Height: 2, Width: 2, Channels: 1})

	a := pool.Get()
	for i := range a.Data {
		a.Data[i] = 9
	}
	a.Release()

	b := pool.Get()
	defer b.Release()

	if b.Batch != 1 {
		t.Errorf("Batch = %d, want 1", b.Batch)
	}
	for i, v := range b.Data {
		if v != 0 {
			t.Fatalf("Data[%d] = %v, want 0", i, v)
		}
	}
}

func TestReleaseIdempotent(t *testing.T) {
	pool := tensor.NewPool(tensor.Shape{Height: 1, Width: 1, Channels: 3})

	a := pool.Get()
	b := pool.Get()
	if pool.Outstanding() != 2 {
		t.Fatalf("Outstanding = %d, want 2", pool.Outstanding())
	}

	a.Release()
	a.Release()
	if pool.Outstanding() != 1 {
		t.Errorf("Outstanding = %d after double release, want 1", pool.Outstanding())
	}
	if a.Data != nil {
		t.Error("released tensor still holds data")
	}

	b.Detach()
	b.Release()
	if pool.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", pool.Outstanding())
	}
	if b.Data == nil {
		t.Error("detached tensor data must stay valid for its remaining reader")
	}
}
