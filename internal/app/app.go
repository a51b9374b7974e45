// Package app wires the loaded artifacts, the upload store and the advice
// client into one immutable value shared by every request handler.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog"

	"trashd/internal/advice"
	"trashd/internal/apperr"
	"trashd/internal/classifier"
	"trashd/internal/common/fsutil"
	"trashd/internal/config"
	"trashd/internal/labels"
	"trashd/internal/preprocess"
	"trashd/internal/upload"
	"trashd/pkg/types"
)

// Options injects collaborators that are normally built from Config.
type Options struct {
	// Runtime overrides the ONNX runtime (tests use a fake).
	Runtime classifier.Runtime
	// Generator overrides the Gemini backend. When set, advice is enabled
	// regardless of the configured API key.
	Generator advice.Generator
	Logger    *zerolog.Logger
}

// App is built once at startup and never mutated afterwards.
type App struct {
	cfg        config.Config
	labels     *labels.Map
	classifier *classifier.Classifier
	advice     *advice.Client
	uploads    *upload.Store
	filter     preprocess.Filter
	log        zerolog.Logger
	closers    []func() error
}

// Result is the outcome of classifying one upload.
type Result struct {
	Prediction classifier.Prediction
	Upload     upload.Saved
}

// New validates cfg, loads the label map and model, creates the upload
// directory and connects the advice backend. Any failure is a
// StartupConfig error and the caller must not serve.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	filter, err := preprocess.ParseFilter(cfg.Resample)
	if err != nil {
		return nil, apperr.StartupConfig("config", err)
	}
	lm, err := labels.Load(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	// Report a missing artifact before touching the native runtime.
	if _, err := fsutil.ResolveFile(cfg.ModelPath); err != nil {
		return nil, apperr.StartupConfig("model artifact", err)
	}
	store, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	rt := opts.Runtime
	if rt == nil {
		rt, err = classifier.NewONNXRuntime(cfg.ONNXLibPath)
		if err != nil {
			return nil, apperr.StartupConfig("onnx runtime", err)
		}
	}
	clf, err := classifier.Open(classifier.Config{
		ModelPath:  cfg.ModelPath,
		InputName:  cfg.InputName,
		OutputName: cfg.OutputName,
		PoolSize:   cfg.PoolSize,
		MaxWait:    cfg.MaxWait.Std(),
		Runtime:    rt,
		Publisher:  classifier.LogPublisher{Logger: log},
	}, lm)
	if err != nil {
		if opts.Runtime == nil {
			_ = rt.Close()
		}
		return nil, err
	}

	a := &App{cfg: cfg, labels: lm, classifier: clf, uploads: store, filter: filter, log: log}

	gen := opts.Generator
	if gen == nil && cfg.AdviceEnabled() {
		g, err := advice.NewGemini(ctx, cfg.Advice.APIKey, cfg.Advice.Model)
		if err != nil {
			_ = clf.Close(ctx)
			return nil, apperr.StartupConfig("advice backend", err)
		}
		a.closers = append(a.closers, g.Close)
		gen = g
	}
	a.advice = advice.New(gen, advice.Options{
		Timeout:    cfg.Advice.Timeout.Std(),
		MaxRetries: cfg.Advice.MaxRetries,
		Logger:     &log,
	})

	log.Info().Str("model", clf.ModelPath()).Int("classes", lm.Len()).Int("sessions", cfg.PoolSize).Str("resample", string(filter)).Msg("model loaded")
	if a.advice.Enabled() {
		log.Info().Str("model", cfg.Advice.Model).Msg("advice enabled")
	} else {
		log.Warn().Msg("GOOGLE_API_KEY not set; advice disabled")
	}
	return a, nil
}

// Config returns the effective configuration.
func (a *App) Config() config.Config { return a.cfg }

// Ready reports whether the classifier accepts work.
func (a *App) Ready() bool { return a.classifier.Ready() }

// AdviceEnabled reports whether the advice backend is configured.
func (a *App) AdviceEnabled() bool { return a.advice.Enabled() }

// Classes returns the label names in index order.
func (a *App) Classes() []string { return a.labels.Names() }

// LabelList returns the label map as wire types.
func (a *App) LabelList() []types.Label {
	names := a.labels.Names()
	out := make([]types.Label, len(names))
	for i, n := range names {
		out[i] = types.Label{Index: i, Name: n}
	}
	return out
}

// ClassifyImage stores data under a fresh key, decodes it and runs the
// classifier. Uploads that fail to decode are removed again.
func (a *App) ClassifyImage(ctx context.Context, filename string, data []byte) (Result, error) {
	saved, err := a.uploads.Save(filename, data)
	if err != nil {
		return Result{}, fmt.Errorf("store upload: %w", err)
	}
	pred, err := a.Predict(ctx, data)
	if err != nil {
		if apperr.Is(err, apperr.KindDecode) {
			if rmErr := a.uploads.Remove(saved.Key); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				a.log.Warn().Err(rmErr).Str("key", saved.Key).Msg("remove rejected upload")
			}
		}
		return Result{}, err
	}
	return Result{Prediction: pred, Upload: saved}, nil
}

// Predict decodes and classifies image bytes without storing them.
func (a *App) Predict(ctx context.Context, data []byte) (classifier.Prediction, error) {
	tensor, err := preprocess.Prepare(data, preprocess.DefaultMaxPixels, a.filter)
	if err != nil {
		return classifier.Prediction{}, err
	}
	return a.classifier.Classify(ctx, tensor)
}

// Classify implements the HTTP service: it classifies the upload and
// shapes the wire response.
func (a *App) Classify(ctx context.Context, filename string, data []byte) (types.PredictionResponse, error) {
	res, err := a.ClassifyImage(ctx, filename, data)
	if err != nil {
		return types.PredictionResponse{}, err
	}
	return a.Response(res), nil
}

// Response converts a Result to its wire form.
func (a *App) Response(res Result) types.PredictionResponse {
	scores := make(map[string]float64, len(res.Prediction.Scores))
	for i, s := range res.Prediction.Scores {
		if name, ok := a.labels.Name(i); ok {
			scores[name] = float64(s)
		}
	}
	return types.PredictionResponse{
		Prediction: res.Prediction.Label,
		Confidence: Percent(res.Prediction.Confidence),
		Scores:     scores,
		UploadID:   res.Upload.Key,
		ImageURL:   "/uploads/" + res.Upload.Key,
		Filename:   res.Upload.Filename,
	}
}

// Suggest asks the advice backend about a trash category.
func (a *App) Suggest(ctx context.Context, category string) (string, error) {
	return a.advice.Suggest(ctx, category)
}

// OpenUpload opens a stored upload by key.
func (a *App) OpenUpload(key string) (*os.File, error) { return a.uploads.Open(key) }

// Close releases the classifier sessions and the advice backend. It is safe
// to call more than once.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.classifier.Close(ctx)}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Percent converts a probability to a percentage rounded to two decimals.
func Percent(p float32) float64 {
	return math.Round(float64(p)*10000) / 100
}
