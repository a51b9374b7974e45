package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trashd/internal/app"
	"trashd/internal/apperr"
	"trashd/internal/config"
	"trashd/internal/httpapi"
)

// flags holds command-line overrides. Only flags the user set are applied.
type flags struct {
	configPath  string
	addr        string
	modelPath   string
	labelsPath  string
	uploadDir   string
	onnxLib     string
	poolSize    int
	corsOrigins string
	logLevel    string
	logFormat   string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "trashd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "trashd",
		Short:         "Trash image classifier with disposal advice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	pf.StringVar(&f.addr, "addr", "", "HTTP listen address (default :5000, env TRASHD_ADDR or HOST/PORT)")
	pf.StringVar(&f.modelPath, "model", "", "Path to the ONNX classifier (env TRASHD_MODEL_PATH)")
	pf.StringVar(&f.labelsPath, "labels", "", "Path to class_indices.json (env TRASHD_LABELS_PATH)")
	pf.StringVar(&f.uploadDir, "upload-dir", "", "Directory for uploaded images (env TRASHD_UPLOAD_DIR)")
	pf.StringVar(&f.onnxLib, "onnx-lib", "", "Path to the onnxruntime shared library (env ONNXRUNTIME_LIB)")
	pf.IntVar(&f.poolSize, "pool-size", 0, "Number of inference sessions (env TRASHD_POOL_SIZE)")
	pf.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; enables CORS")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error (env TRASHD_LOG_LEVEL)")
	pf.StringVar(&f.logFormat, "log-format", "", "Log format: json|console (env TRASHD_LOG_FORMAT)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, newLogger(cfg, stderr))
		},
	}
	root.RunE = serve.RunE
	root.Args = cobra.NoArgs
	root.AddCommand(serve, newClassifyCmd(f, stdout, stderr), newAdviseCmd(f, stdout, stderr), newLabelsCmd(f, stdout))
	return root
}

// loadConfig layers file, environment and flags, then fills defaults.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		c, err := config.Load(f.configPath)
		if err != nil {
			return cfg, apperr.StartupConfig("config file "+f.configPath, err)
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("addr") {
		cfg.Addr = f.addr
	}
	if changed("model") {
		cfg.ModelPath = f.modelPath
	}
	if changed("labels") {
		cfg.LabelsPath = f.labelsPath
	}
	if changed("upload-dir") {
		cfg.UploadDir = f.uploadDir
	}
	if changed("onnx-lib") {
		cfg.ONNXLibPath = f.onnxLib
	}
	if changed("pool-size") {
		cfg.PoolSize = f.poolSize
	}
	if changed("cors-origins") {
		cfg.CORS.Origins = config.SplitCSV(f.corsOrigins)
		cfg.CORS.Enabled = len(cfg.CORS.Origins) > 0
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	cfg.Defaults()
	return cfg, nil
}

// newLogger builds the process logger from log_level and log_format.
func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if strings.EqualFold(cfg.LogFormat, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("svc", "trashd").Logger()
}

// requestLogLevel maps the process log level onto the HTTP layer's
// per-request default.
func requestLogLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return "debug"
	case "warn", "error", "fatal", "panic":
		return "error"
	case "disabled", "off":
		return "off"
	default:
		return "info"
	}
}

func runServe(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Logger: &logger})
	if err != nil {
		return err
	}

	httpapi.SetLogger(logger)
	httpapi.SetRequestLogLevel(requestLogLevel(cfg.LogLevel))
	httpapi.SetMaxUploadBytes(cfg.MaxUploadBytes)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, nil, nil)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("upload_dir", cfg.UploadDir).Msg("trashd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case serveErr = <-errCh:
	}

	// Graceful shutdown: stop accepting, give in-flight requests 5s, then
	// cancel whatever is still waiting on the advice backend.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	cancelBase()
	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if err := a.Close(closeCtx); err != nil {
		logger.Warn().Err(err).Msg("release model")
	}
	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}
