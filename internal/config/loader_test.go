package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: ":9999"
model_path: /m/model.onnx
labels_path: /m/class_indices.json
pool_size: 2
max_wait: 5s
advice:
  model: gemini-pro
  timeout: 12s
  max_retries: 1
cors:
  enabled: true
  origins: ["http://localhost:3000"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelPath != "/m/model.onnx" || cfg.LabelsPath != "/m/class_indices.json" || cfg.PoolSize != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxWait.Std() != 5*time.Second || cfg.Advice.Timeout.Std() != 12*time.Second || cfg.Advice.Model != "gemini-pro" || cfg.Advice.MaxRetries != 1 {
		t.Fatalf("unexpected durations/advice: %+v", cfg)
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.Origins) != 1 {
		t.Fatalf("unexpected cors: %+v", cfg.CORS)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","model_path":"/m","labels_path":"/l","max_upload_bytes":1024,"advice":{"timeout":"3s"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelPath != "/m" || cfg.LabelsPath != "/l" || cfg.MaxUploadBytes != 1024 || cfg.Advice.Timeout.Std() != 3*time.Second {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodel_path=\"/x\"\nlabels_path=\"/y\"\nmax_wait=\"2s\"\n\n[advice]\nmodel=\"m3\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelPath != "/x" || cfg.LabelsPath != "/y" || cfg.MaxWait.Std() != 2*time.Second || cfg.Advice.Model != "m3" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
