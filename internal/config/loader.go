package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"trashd/internal/apperr"
	"trashd/internal/preprocess"
)

// Defaults applied by (*Config).Defaults.
const (
	DefaultAddr           = ":5000"
	DefaultUploadDir      = "./uploads"
	DefaultMaxUploadBytes = 10 << 20
	DefaultInputName      = "input"
	DefaultOutputName     = "output"
	DefaultPoolSize       = 1
	DefaultMaxWait        = 30 * time.Second
	DefaultAdviceModel    = "gemini-1.5-flash"
	DefaultAdviceTimeout  = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultResample       = string(preprocess.Nearest)
	DefaultMaxBodyBytes   = 1 << 20
)

// Duration is a time.Duration that decodes from strings like "30s" in every
// supported file format.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := parseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML accepts "30s" or a bare integer number of seconds.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	return d.UnmarshalText([]byte(s))
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Advice configures the generative-language backend.
type Advice struct {
	APIKey     string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	Model      string   `json:"model" yaml:"model" toml:"model"`
	Timeout    Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	MaxRetries int      `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
}

// CORS configures the optional CORS middleware.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	ModelPath      string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	LabelsPath     string   `json:"labels_path" yaml:"labels_path" toml:"labels_path"`
	UploadDir      string   `json:"upload_dir" yaml:"upload_dir" toml:"upload_dir"`
	MaxUploadBytes int64    `json:"max_upload_bytes" yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	MaxBodyBytes   int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Resample       string   `json:"resample" yaml:"resample" toml:"resample"`
	ONNXLibPath    string   `json:"onnx_lib_path" yaml:"onnx_lib_path" toml:"onnx_lib_path"`
	InputName      string   `json:"input_name" yaml:"input_name" toml:"input_name"`
	OutputName     string   `json:"output_name" yaml:"output_name" toml:"output_name"`
	PoolSize       int      `json:"pool_size" yaml:"pool_size" toml:"pool_size"`
	MaxWait        Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	Advice         Advice   `json:"advice" yaml:"advice" toml:"advice"`
	CORS           CORS     `json:"cors" yaml:"cors" toml:"cors"`
	LogLevel       string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat      string   `json:"log_format" yaml:"log_format" toml:"log_format"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. lookup is normally
// os.LookupEnv; tests pass a map-backed function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error

	if v, ok := lookup("TRASHD_ADDR"); ok && strings.TrimSpace(v) != "" {
		c.Addr = strings.TrimSpace(v)
	} else {
		host, _ := lookup("HOST")
		port, _ := lookup("PORT")
		host, port = strings.TrimSpace(host), strings.TrimSpace(port)
		if port != "" {
			c.Addr = net.JoinHostPort(host, port)
		}
	}
	str("TRASHD_MODEL_PATH", &c.ModelPath)
	str("TRASHD_LABELS_PATH", &c.LabelsPath)
	str("TRASHD_UPLOAD_DIR", &c.UploadDir)
	str("ONNXRUNTIME_LIB", &c.ONNXLibPath)
	str("GOOGLE_API_KEY", &c.Advice.APIKey)
	str("TRASHD_ADVICE_MODEL", &c.Advice.Model)
	str("TRASHD_LOG_LEVEL", &c.LogLevel)
	str("TRASHD_LOG_FORMAT", &c.LogFormat)
	str("TRASHD_RESAMPLE", &c.Resample)

	if v, ok := lookup("TRASHD_MAX_UPLOAD_BYTES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRASHD_MAX_UPLOAD_BYTES: %w", err))
		} else {
			c.MaxUploadBytes = n
		}
	}
	if v, ok := lookup("TRASHD_MAX_BODY_BYTES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRASHD_MAX_BODY_BYTES: %w", err))
		} else {
			c.MaxBodyBytes = n
		}
	}
	if v, ok := lookup("TRASHD_POOL_SIZE"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("TRASHD_POOL_SIZE: %w", err))
		} else {
			c.PoolSize = n
		}
	}
	if v, ok := lookup("TRASHD_ADVICE_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRASHD_ADVICE_TIMEOUT: %w", err))
		} else {
			c.Advice.Timeout = Duration(d)
		}
	}
	if v, ok := lookup("TRASHD_CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.CORS.Enabled = true
		c.CORS.Origins = SplitCSV(v)
	}
	if len(errs) > 0 {
		return apperr.StartupConfig("environment", errors.Join(errs...))
	}
	return nil
}

// Defaults fills unspecified fields.
func (c *Config) Defaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.UploadDir == "" {
		c.UploadDir = DefaultUploadDir
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Resample == "" {
		c.Resample = DefaultResample
	}
	if c.InputName == "" {
		c.InputName = DefaultInputName
	}
	if c.OutputName == "" {
		c.OutputName = DefaultOutputName
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MaxWait <= 0 {
		c.MaxWait = Duration(DefaultMaxWait)
	}
	if c.Advice.Model == "" {
		c.Advice.Model = DefaultAdviceModel
	}
	if c.Advice.Timeout <= 0 {
		c.Advice.Timeout = Duration(DefaultAdviceTimeout)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// Validate reports missing required settings. It does not touch the
// filesystem; artifact readability is checked when the artifacts load.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ModelPath) == "" {
		errs = append(errs, errors.New("model_path is required"))
	}
	if strings.TrimSpace(c.LabelsPath) == "" {
		errs = append(errs, errors.New("labels_path is required"))
	}
	if c.Advice.MaxRetries < 0 {
		errs = append(errs, errors.New("advice.max_retries must be >= 0"))
	}
	if _, err := preprocess.ParseFilter(c.Resample); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format %q: want json or console", c.LogFormat))
	}
	if len(errs) > 0 {
		return apperr.StartupConfig("config", errors.Join(errs...))
	}
	return nil
}

// AdviceEnabled reports whether a credential for the advice backend is set.
func (c Config) AdviceEnabled() bool { return strings.TrimSpace(c.Advice.APIKey) != "" }

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
