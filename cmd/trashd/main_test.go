package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"trashd/internal/app/apptest"
	"trashd/pkg/types"
)

func writeLabels(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "class_indices.json")
	if err := os.WriteFile(p, []byte(`{"Cardboard":0,"Glass":1,"Metal":2,"Paper":3,"Plastic":4,"Trash":5}`), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig_FlagsOverrideEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "trashd.yaml")
	if err := os.WriteFile(cfgPath, []byte("model_path: /file/model.onnx\nlabels_path: /file/labels.json\naddr: \":7000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRASHD_LABELS_PATH", "/env/labels.json")
	t.Setenv("TRASHD_ADDR", "")
	t.Setenv("PORT", "")

	var got flags
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	f := &got
	cmd.Flags().StringVar(&f.configPath, "config", "", "")
	cmd.Flags().StringVar(&f.modelPath, "model", "", "")
	cmd.Flags().StringVar(&f.corsOrigins, "cors-origins", "", "")
	if err := cmd.ParseFlags([]string{"--config", cfgPath, "--model", "/flag/model.onnx", "--cors-origins", "http://a,http://b"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelPath != "/flag/model.onnx" {
		t.Fatalf("flag should win: %q", cfg.ModelPath)
	}
	if cfg.LabelsPath != "/env/labels.json" {
		t.Fatalf("env should beat file: %q", cfg.LabelsPath)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("file value lost: %q", cfg.Addr)
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.Origins) != 2 {
		t.Fatalf("cors: %+v", cfg.CORS)
	}
	if cfg.PoolSize != 1 || cfg.UploadDir == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLabelsCommand(t *testing.T) {
	lp := writeLabels(t)
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"labels", "--labels", lp, "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var resp types.LabelsResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v (%q)", err, out.String())
	}
	if len(resp.Labels) != 6 || resp.Labels[5].Name != "Trash" {
		t.Fatalf("unexpected labels: %+v", resp.Labels)
	}
}

func TestServeFailsWithoutArtifacts(t *testing.T) {
	t.Setenv("TRASHD_MODEL_PATH", "")
	t.Setenv("TRASHD_LABELS_PATH", "")
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"serve", "--addr", "127.0.0.1:0"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "model_path is required") {
		t.Fatalf("expected startup error, got %v", err)
	}
}

func TestAdviseWithoutKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"advise", "Plastic"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "AI service not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestRequestLogLevel(t *testing.T) {
	cases := map[string]string{"debug": "debug", "info": "info", "warn": "error", "off": "off", "": "info"}
	for in, want := range cases {
		if got := requestLogLevel(in); got != want {
			t.Fatalf("requestLogLevel(%q)=%q want %q", in, got, want)
		}
	}
}

func TestClassifyCommand(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	runtimeOverride = &apptest.Runtime{}
	defer func() { runtimeOverride = nil }()
	cfg := apptest.Config(t)
	img := filepath.Join(t.TempDir(), "bottle.png")
	if err := os.WriteFile(img, apptest.PNG(t, 50, 50, 190), 0o644); err != nil {
		t.Fatal(err)
	}
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"classify", "--model", cfg.ModelPath, "--labels", cfg.LabelsPath, "--upload-dir", cfg.UploadDir, img})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v (stderr %s)", err, errOut.String())
	}
	var resp types.PredictionResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v (%q)", err, out.String())
	}
	if resp.Prediction != "Plastic" || resp.Confidence != 90 || resp.Filename != "bottle.png" || resp.UploadID != "" {
		t.Fatalf("unexpected result: %+v", resp)
	}
}

func TestClassifyCommand_ReportsFailures(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	runtimeOverride = &apptest.Runtime{}
	defer func() { runtimeOverride = nil }()
	cfg := apptest.Config(t)
	bad := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"classify", "--model", cfg.ModelPath, "--labels", cfg.LabelsPath, "--upload-dir", cfg.UploadDir, bad})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "1 of 1 files failed") {
		t.Fatalf("expected failure count, got %v", err)
	}
}
