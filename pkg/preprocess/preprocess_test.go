package preprocess_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/JaimeStill/specimen/pkg/preprocess"
	"github.com/JaimeStill/specimen/pkg/tensor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func dataURI(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

var rgb = tensor.Shape{Height: 8, Width: 8, Channels: 3}

func TestProcessScalesToUnitRange(t *testing.T) {
	p := preprocess.New(nil, discardLogger())

	res, err := p.Process(context.Background(), dataURI(solidPNG(t, 32, 16, color.RGBA{R: 255, G: 0, B: 51, A: 255})), rgb)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	defer res.Release()

	if res.Tensor.Batch != 1 {
		t.Errorf("Batch = %d, want 1", res.Tensor.Batch)
	}
	if res.Tensor.Shape != rgb {
		t.Errorf("Shape = %s, want %s", res.Tensor.Shape, rgb)
	}
	if len(res.Tensor.Data) != rgb.Size() {
		t.Fatalf("len(Data) = %d, want %d", len(res.Tensor.Data), rgb.Size())
	}
	if res.Width != 32 || res.Height != 16 {
		t.Errorf("source size = %dx%d, want 32x16", res.Width, res.Height)
	}
	if res.Format != "png" {
		t.Errorf("Format = %q, want png", res.Format)
	}

	want := []float32{1, 0, 0.2}
	for y := range rgb.Height {
		for x := range rgb.Width {
			for c, w := range want {
				if got := res.Tensor.At(0, y, x, c); math.Abs(float64(got-w)) > 1e-3 {
					t.Fatalf("pixel (%d,%d,%d) = %v, want %v", y, x, c, got, w)
				}
			}
		}
	}
}

func TestProcessGrayscale(t *testing.T) {
	p := preprocess.New(nil, discardLogger())
	gray := tensor.Shape{Height: 4, Width: 4, Channels: 1}

	res, err := p.ProcessBytes(solidPNG(t, 10, 10, color.White), gray)
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}
	defer res.Release()

	for i, v := range res.Tensor.Data {
		if math.Abs(float64(v-1)) > 1e-3 {
			t.Fatalf("Data[%d] = %v, want 1", i, v)
		}
	}
}

func TestProcessFingerprint(t *testing.T) {
	p := preprocess.New(nil, discardLogger())

	a, err := p.ProcessBytes(solidPNG(t, 20, 20, color.Black), rgb)
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}
	defer a.Release()

	b, err := p.ProcessBytes(solidPNG(t, 40, 40, color.Black), rgb)
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}
	defer b.Release()

	if a.Fingerprint == "" {
		t.Fatal("expected fingerprint")
	}

	d, err := preprocess.Distance(a.Fingerprint, b.Fingerprint)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if d != 0 {
		t.Errorf("Distance = %d, want 0 for identical content", d)
	}
}

func TestProcessReleasesBuffers(t *testing.T) {
	p := preprocess.New(nil, discardLogger())
	data := solidPNG(t, 8, 8, color.White)

	for range 3 {
		res, err := p.ProcessBytes(data, rgb)
		if err != nil {
			t.Fatalf("ProcessBytes failed: %v", err)
		}
		if p.Outstanding() != 1 {
			t.Errorf("Outstanding = %d, want 1", p.Outstanding())
		}
		res.Release()
		res.Release()
	}

	if p.Outstanding() != 0 {
		t.Errorf("Outstanding = %d after release, want 0", p.Outstanding())
	}
}

func TestProcessErrors(t *testing.T) {
	p := preprocess.New(nil, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name  string
		uri   string
		shape tensor.Shape
		want  error
	}{
		{"empty uri", "  ", rgb, preprocess.ErrImageRead},
		{"missing file", filepath.Join(t.TempDir(), "missing.jpg"), rgb, preprocess.ErrImageRead},
		{"malformed data uri", "data:image/png;base64", rgb, preprocess.ErrImageRead},
		{"non base64 data uri", "data:text/plain,hello", rgb, preprocess.ErrImageRead},
		{"not an image", dataURI([]byte("definitely not pixels")), rgb, preprocess.ErrImageDecode},
		{"zero shape", dataURI(solidPNG(t, 2, 2, color.White)), tensor.Shape{}, preprocess.ErrInvalidShape},
		{"four channels", dataURI(solidPNG(t, 2, 2, color.White)), tensor.Shape{Height: 2, Width: 2, Channels: 4}, preprocess.ErrInvalidShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Process(ctx, tt.uri, tt.shape)
			if err == nil {
				res.Release()
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if p.Outstanding() != 0 {
		t.Errorf("Outstanding = %d after failures, want 0", p.Outstanding())
	}
}

func TestSourceFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "rock.png")
	data := solidPNG(t, 4, 4, color.White)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src := &preprocess.Source{Root: root}
	for _, uri := range []string{path, "file://" + path, "rock.png", "./rock.png"} {
		got, err := src.Read(context.Background(), uri)
		if err != nil {
			t.Fatalf("Read(%q) failed: %v", uri, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("Read(%q) returned different bytes", uri)
		}
	}
}

func TestSourceFileConfinedToRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "images")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outside := filepath.Join(parent, "secret.png")
	if err := os.WriteFile(outside, solidPNG(t, 2, 2, color.White), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "link.png")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	src := &preprocess.Source{Root: root}
	for _, uri := range []string{
		"/etc/passwd",
		"file:///etc/hostname",
		outside,
		"file://" + outside,
		"../secret.png",
		"link.png",
	} {
		if _, err := src.Read(context.Background(), uri); !errors.Is(err, preprocess.ErrImageRead) {
			t.Errorf("Read(%q) err = %v, want ErrImageRead", uri, err)
		}
	}

	disabled := &preprocess.Source{}
	if _, err := disabled.Read(context.Background(), outside); !errors.Is(err, preprocess.ErrImageRead) {
		t.Errorf("Read without root err = %v, want ErrImageRead", err)
	}
}

func TestSourceMaxBytes(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "big.png"), make([]byte, 64), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src := &preprocess.Source{Root: root, MaxBytes: 32}
	if _, err := src.Read(context.Background(), "big.png"); !errors.Is(err, preprocess.ErrImageRead) {
		t.Errorf("err = %v, want ErrImageRead", err)
	}
}

func TestSourceHTTP(t *testing.T) {
	data := solidPNG(t, 4, 4, color.White)

	mux := http.NewServeMux()
	mux.HandleFunc("/rock.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := &preprocess.Source{Client: srv.Client(), AllowRemote: true}
	ctx := context.Background()

	got, err := src.Read(ctx, srv.URL+"/rock.png")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("downloaded bytes differ")
	}

	for _, path := range []string{"/page.html", "/missing.png"} {
		if _, err := src.Read(ctx, srv.URL+path); !errors.Is(err, preprocess.ErrImageRead) {
			t.Errorf("Read(%s) err = %v, want ErrImageRead", path, err)
		}
	}
}

func TestSourceRemoteDisabled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(solidPNG(t, 2, 2, color.White))
	}))
	defer srv.Close()

	src := &preprocess.Source{Client: srv.Client()}
	if _, err := src.Read(context.Background(), srv.URL+"/rock.png"); !errors.Is(err, preprocess.ErrImageRead) {
		t.Errorf("err = %v, want ErrImageRead", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

// pngHeader builds a grayscale PNG that declares w x h pixels but carries
// no image data. DecodeConfig reads it without allocating the raster.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 0, 17)
	ihdr = append(ihdr, "IHDR"...)
	ihdr = binary.BigEndian.AppendUint32(ihdr, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 0, 0, 0, 0)

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestProcessPixelLimit(t *testing.T) {
	p := preprocess.New(nil, discardLogger())

	res, err := p.ProcessBytes(pngHeader(50_000, 50_000), rgb)
	if err == nil {
		res.Release()
		t.Fatal("expected error for oversized image")
	}
	if !errors.Is(err, preprocess.ErrImageDecode) {
		t.Errorf("err = %v, want ErrImageDecode", err)
	}

	small := preprocess.New(&preprocess.Source{MaxPixels: 100}, discardLogger())
	if _, err := small.ProcessBytes(solidPNG(t, 20, 20, color.White), rgb); !errors.Is(err, preprocess.ErrImageDecode) {
		t.Errorf("err = %v, want ErrImageDecode", err)
	}

	res, err = small.ProcessBytes(solidPNG(t, 10, 10, color.White), rgb)
	if err != nil {
		t.Fatalf("ProcessBytes at limit failed: %v", err)
	}
	res.Release()

	if p.Outstanding() != 0 || small.Outstanding() != 0 {
		t.Error("rejected images left tensors outstanding")
	}
}

func TestOrient(t *testing.T) {
	// 2x1 image: red at (0,0), blue at (1,0).
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src.Set(0, 0, red)
	src.Set(1, 0, blue)

	tests := []struct {
		orientation int
		w, h        int
		redAt       image.Point
	}{
		{1, 2, 1, image.Pt(0, 0)},
		{2, 2, 1, image.Pt(1, 0)},
		{3, 2, 1, image.Pt(1, 0)},
		{4, 2, 1, image.Pt(0, 0)},
		{5, 1, 2, image.Pt(0, 0)},
		{6, 1, 2, image.Pt(0, 0)},
		{7, 1, 2, image.Pt(0, 1)},
		{8, 1, 2, image.Pt(0, 1)},
	}

	for _, tt := range tests {
		out := preprocess.Orient(src, tt.orientation)
		b := out.Bounds()
		if b.Dx() != tt.w || b.Dy() != tt.h {
			t.Errorf("orientation %d: size = %dx%d, want %dx%d", tt.orientation, b.Dx(), b.Dy(), tt.w, tt.h)
			continue
		}
		r, _, _, _ := out.At(tt.redAt.X, tt.redAt.Y).RGBA()
		if r>>8 != 255 {
			t.Errorf("orientation %d: expected red at %v", tt.orientation, tt.redAt)
		}
	}
}
