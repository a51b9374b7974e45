//go:build cgo

package classifier

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxRuntime initializes the process-wide ONNX Runtime environment once.
type onnxRuntime struct {
	mu     sync.Mutex
	closed bool
}

// NewONNXRuntime initializes ONNX Runtime. libPath overrides the shared
// library location (libonnxruntime.so / .dylib / .dll); empty uses the
// platform default search.
func NewONNXRuntime(libPath string) (Runtime, error) {
	if p := strings.TrimSpace(libPath); p != "" {
		ort.SetSharedLibraryPath(p)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize ONNX environment: %w", err)
	}
	return &onnxRuntime{}, nil
}

func (r *onnxRuntime) NewSession(cfg SessionConfig) (Session, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	in, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.OutputShape...))
	if err != nil {
		in.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	sess, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out},
		nil)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}
	return &onnxSession{session: sess, input: in, output: out}, nil
}

func (r *onnxRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return ort.DestroyEnvironment()
}

// onnxSession owns one AdvancedSession and its bound tensors.
type onnxSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *onnxSession) Run(input []float32) ([]float32, error) {
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input has %d values, session expects %d", len(input), len(dst))
	}
	copy(dst, input)
	if err := s.session.Run(); err != nil {
		return nil, err
	}
	src := s.output.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (s *onnxSession) Close() error {
	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
	}
	if s.input != nil {
		errs = append(errs, s.input.Destroy())
	}
	if s.output != nil {
		errs = append(errs, s.output.Destroy())
	}
	return errors.Join(errs...)
}
