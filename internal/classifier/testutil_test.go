package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trashd/internal/labels"
)

// fakeRuntime produces sessions backed by a pure function of the input.
type fakeRuntime struct {
	mu        sync.Mutex
	fn        func(in []float32) ([]float32, error)
	newErr    error
	sessions  []*fakeSession
	closed    atomic.Int32
	lastCfg   SessionConfig
	runDelay  time.Duration
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (r *fakeRuntime) NewSession(cfg SessionConfig) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.newErr != nil {
		return nil, r.newErr
	}
	r.lastCfg = cfg
	s := &fakeSession{rt: r}
	r.sessions = append(r.sessions, s)
	return s, nil
}

func (r *fakeRuntime) Close() error { r.closed.Add(1); return nil }

type fakeSession struct {
	rt     *fakeRuntime
	busy   atomic.Bool
	closed atomic.Bool
}

func (s *fakeSession) Run(in []float32) ([]float32, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, errors.New("session used concurrently")
	}
	defer s.busy.Store(false)
	n := s.rt.inFlight.Add(1)
	defer s.rt.inFlight.Add(-1)
	for {
		m := s.rt.maxFlight.Load()
		if n <= m || s.rt.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if s.rt.runDelay > 0 {
		time.Sleep(s.rt.runDelay)
	}
	return s.rt.fn(in)
}

func (s *fakeSession) Close() error { s.closed.Store(true); return nil }

// meanScores returns a 6-class vector derived from the mean of the input so
// different images yield different, deterministic labels.
func meanScores(in []float32) ([]float32, error) {
	var sum float64
	for _, v := range in {
		sum += float64(v)
	}
	mean := float32(sum / float64(len(in)))
	out := make([]float32, 6)
	best := int(mean * 5.999)
	for i := range out {
		out[i] = 0.02
	}
	out[best] = 0.9
	return out, nil
}

func trashLabels(t *testing.T) *labels.Map {
	t.Helper()
	m, err := labels.FromNames([]string{"Cardboard", "Glass", "Metal", "Paper", "Plastic", "Trash"})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func modelFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "trash.onnx")
	if err := os.WriteFile(p, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func filled(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}
