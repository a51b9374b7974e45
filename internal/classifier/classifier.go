package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"trashd/internal/apperr"
	"trashd/internal/common/fsutil"
	"trashd/internal/labels"
	"trashd/internal/preprocess"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultInputName  = "input"
	defaultOutputName = "output"
	defaultPoolSize   = 1
	defaultMaxWait    = 30 * time.Second
)

// Config encapsulates the tunables for Open.
type Config struct {
	ModelPath  string
	InputName  string
	OutputName string
	// PoolSize is the number of independent sessions; each runs one forward
	// pass at a time.
	PoolSize int
	// MaxWait bounds how long a request waits for an idle session.
	MaxWait time.Duration
	// Softmax converts raw logits to probabilities. Leave false for models
	// whose last layer already applies softmax.
	Softmax   bool
	Runtime   Runtime
	Publisher EventPublisher
}

// Prediction is the outcome of one forward pass.
type Prediction struct {
	Label string
	Index int
	// Confidence is the maximum output probability, in [0,1] for softmax
	// outputs. It is not calibrated.
	Confidence float32
	// Scores holds the full output vector in label-index order.
	Scores []float32
}

// Classifier is the loaded artifact. It is immutable after Open.
type Classifier struct {
	labels    *labels.Map
	runtime   Runtime
	pool      *pool
	softmax   bool
	modelPath string
	pub       EventPublisher

	closeOnce sync.Once
	closeErr  error
}

// Open loads the model into cfg.PoolSize sessions and runs a warmup pass on
// each. The label map must cover every output index: the output tensor is
// sized from lm, so a model whose output width differs fails the warmup.
// Every failure is a startup configuration error.
func Open(cfg Config, lm *labels.Map) (*Classifier, error) {
	if lm == nil || lm.Len() == 0 {
		return nil, apperr.StartupConfig("classifier", errors.New("label map is empty"))
	}
	if cfg.Runtime == nil {
		return nil, apperr.StartupConfig("classifier", errors.New("no model runtime configured"))
	}
	path, err := fsutil.ResolveFile(cfg.ModelPath)
	if err != nil {
		return nil, apperr.StartupConfig("model artifact", err)
	}
	if cfg.InputName == "" {
		cfg.InputName = defaultInputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = defaultOutputName
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}

	scfg := SessionConfig{
		ModelPath:   path,
		InputName:   cfg.InputName,
		OutputName:  cfg.OutputName,
		InputShape:  append([]int64(nil), preprocess.Shape...),
		OutputShape: []int64{1, int64(lm.Len())},
	}
	sessions := make([]Session, 0, cfg.PoolSize)
	closeAll := func() {
		for _, s := range sessions {
			_ = s.Close()
		}
	}
	for i := 0; i < cfg.PoolSize; i++ {
		s, err := cfg.Runtime.NewSession(scfg)
		if err != nil {
			closeAll()
			return nil, apperr.StartupConfig("load model "+path, err)
		}
		sessions = append(sessions, s)
	}
	for i, s := range sessions {
		start := time.Now()
		if err := warmup(s, scfg); err != nil {
			closeAll()
			return nil, apperr.StartupConfig("warmup model "+path, err)
		}
		pub.Publish(Event{Name: EventWarmup, Fields: map[string]any{"session": i, "dur_ms": time.Since(start).Milliseconds()}})
	}

	c := &Classifier{
		labels:    lm,
		runtime:   cfg.Runtime,
		pool:      newPool(sessions, cfg.MaxWait),
		softmax:   cfg.Softmax,
		modelPath: path,
		pub:       pub,
	}
	pub.Publish(Event{Name: EventLoaded, Fields: map[string]any{"model": path, "classes": lm.Len(), "sessions": cfg.PoolSize}})
	return c, nil
}

// warmup runs a forward pass on a zero tensor and checks the output width.
func warmup(s Session, cfg SessionConfig) error {
	out, err := s.Run(make([]float32, shapeLen(cfg.InputShape)))
	if err != nil {
		return err
	}
	if want := shapeLen(cfg.OutputShape); len(out) != want {
		return fmt.Errorf("model produced %d outputs, label map has %d classes", len(out), want)
	}
	return nil
}

// Classify runs one forward pass over a preprocessed tensor.
func (c *Classifier) Classify(ctx context.Context, tensor []float32) (Prediction, error) {
	if len(tensor) != preprocess.Len {
		return Prediction{}, c.fail(fmt.Errorf("input has %d values, want %d", len(tensor), preprocess.Len))
	}
	sess, release, err := c.pool.acquire(ctx)
	if err != nil {
		return Prediction{}, err
	}
	start := time.Now()
	out, err := sess.Run(tensor)
	release()
	dur := time.Since(start)
	inferenceDuration.Observe(dur.Seconds())
	if err != nil {
		return Prediction{}, c.fail(err)
	}
	p, err := c.decode(out)
	if err != nil {
		return Prediction{}, c.fail(err)
	}
	predictionsTotal.WithLabelValues(p.Label).Inc()
	c.pub.Publish(Event{Name: EventClassify, Fields: map[string]any{
		"label": p.Label, "confidence": p.Confidence, "dur_ms": dur.Milliseconds(),
	}})
	return p, nil
}

func (c *Classifier) fail(err error) error {
	inferenceErrorsTotal.Inc()
	c.pub.Publish(Event{Name: EventClassifyError, Fields: map[string]any{"error": err.Error()}})
	return apperr.Inference(err)
}

// decode turns a raw output vector into a Prediction.
func (c *Classifier) decode(out []float32) (Prediction, error) {
	if len(out) != c.labels.Len() {
		return Prediction{}, fmt.Errorf("model produced %d outputs, label map has %d classes", len(out), c.labels.Len())
	}
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Prediction{}, fmt.Errorf("non-finite output at index %d", i)
		}
	}
	scores := out
	if c.softmax {
		scores = softmax(out)
	}
	best := argmax(scores)
	name, ok := c.labels.Name(best)
	if !ok {
		return Prediction{}, fmt.Errorf("no label for index %d", best)
	}
	return Prediction{Label: name, Index: best, Confidence: scores[best], Scores: scores}, nil
}

// argmax returns the index of the largest value; ties resolve to the lowest index.
func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func softmax(v []float32) []float32 {
	maxV := v[argmax(v)]
	out := make([]float32, len(v))
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// ModelPath returns the resolved artifact path.
func (c *Classifier) ModelPath() string { return c.modelPath }

// Ready reports whether the classifier accepts work.
func (c *Classifier) Ready() bool { return c != nil && !c.pool.closed.Load() }

// Close waits for in-flight passes (bounded by ctx), then releases all
// sessions and the runtime.
func (c *Classifier) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		sessions, drainErr := c.pool.drain(ctx)
		errs := []error{drainErr}
		for _, s := range sessions {
			errs = append(errs, s.Close())
		}
		errs = append(errs, c.runtime.Close())
		c.closeErr = errors.Join(errs...)
		c.pub.Publish(Event{Name: EventClosed})
	})
	return c.closeErr
}
