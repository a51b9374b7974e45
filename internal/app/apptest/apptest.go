// Package apptest provides deterministic stand-ins for the model runtime and
// the advice backend, plus on-disk artifact fixtures, for tests that build a
// full app.App.
package apptest

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"trashd/internal/classifier"
	"trashd/internal/config"
)

// Classes is the six-category label set used by every fixture.
var Classes = []string{"Cardboard", "Glass", "Metal", "Paper", "Plastic", "Trash"}

// Runtime is a classifier.Runtime whose sessions score an input by its mean
// brightness: darker images map to lower class indices.
type Runtime struct {
	mu       sync.Mutex
	Sessions int
	Closed   bool
}

func (r *Runtime) NewSession(cfg classifier.SessionConfig) (classifier.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions++
	width := int64(1)
	for _, d := range cfg.OutputShape {
		width *= d
	}
	return session{classes: int(width)}, nil
}

func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}

type session struct{ classes int }

func (s session) Run(in []float32) ([]float32, error) {
	var sum float64
	for _, v := range in {
		sum += float64(v)
	}
	mean := 0.0
	if len(in) > 0 {
		mean = sum / float64(len(in))
	}
	best := int(mean * float64(s.classes))
	if best >= s.classes {
		best = s.classes - 1
	}
	out := make([]float32, s.classes)
	rest := float32(0.1) / float32(s.classes-1)
	for i := range out {
		out[i] = rest
	}
	out[best] = 0.9
	return out, nil
}

func (session) Close() error { return nil }

// Generator records prompts and answers with Text or Err.
type Generator struct {
	mu      sync.Mutex
	Text    string
	Err     error
	Block   bool
	prompts []string
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.Text, g.Err
}

// Prompts returns every prompt received so far.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Config writes a model placeholder and a class_indices.json into a temp
// directory and returns a Config pointing at them.
func Config(t testing.TB) config.Config {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "trash.onnx")
	if err := os.WriteFile(model, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	idx := make(map[string]int, len(Classes))
	for i, c := range Classes {
		idx[c] = i
	}
	b, err := json.Marshal(idx)
	if err != nil {
		t.Fatal(err)
	}
	lp := filepath.Join(dir, "class_indices.json")
	if err := os.WriteFile(lp, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return config.Config{
		ModelPath:  model,
		LabelsPath: lp,
		UploadDir:  filepath.Join(dir, "uploads"),
	}
}

// PNG encodes a w×h image filled with grey level v.
func PNG(t testing.TB, w, h int, v uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
