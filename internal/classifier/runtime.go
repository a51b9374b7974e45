package classifier

// Runtime abstracts the model runtime used by the Classifier.
// Concrete implementations (ONNX Runtime) satisfy this interface; tests use
// an in-memory fake.
type Runtime interface {
	// NewSession loads the model described by cfg and allocates the buffers
	// for one forward pass at a time.
	NewSession(cfg SessionConfig) (Session, error)
	// Close releases process-wide runtime resources.
	Close() error
}

// Session runs forward passes over a single loaded copy of the model. A
// Session is never used by two goroutines at once; the pool guarantees it.
type Session interface {
	// Run performs one forward pass. input has the length implied by
	// SessionConfig.InputShape; the returned slice is owned by the caller.
	Run(input []float32) ([]float32, error)
	Close() error
}

// SessionConfig describes the model file and its tensor layout.
type SessionConfig struct {
	ModelPath   string
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
}

func shapeLen(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
