package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"trashd/internal/advice"
	"trashd/internal/app"
	"trashd/internal/apperr"
	"trashd/internal/classifier"
	"trashd/internal/labels"
	"trashd/pkg/types"
)

// runtimeOverride replaces the ONNX runtime for the classify command when set.
var runtimeOverride classifier.Runtime

// newClassifyCmd classifies local image files through the same pipeline as
// the HTTP endpoint and prints one JSON object per file.
func newClassifyCmd(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "classify <image>...",
		Short:   "Classify image files and print JSON results",
		Example: "  trashd classify --model trash.onnx --labels class_indices.json bottle.jpg",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, stderr)
			a, err := app.New(cmd.Context(), cfg, app.Options{Logger: &logger, Runtime: runtimeOverride})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			enc := json.NewEncoder(stdout)
			var failed int
			for _, p := range args {
				data, err := os.ReadFile(p)
				if err != nil {
					logger.Error().Err(err).Str("file", p).Msg("read image")
					failed++
					continue
				}
				pred, err := a.Predict(cmd.Context(), data)
				if err != nil {
					logger.Error().Err(err).Str("file", p).Msg("classify")
					failed++
					continue
				}
				resp := a.Response(app.Result{Prediction: pred})
				resp.Filename = filepath.Base(p)
				resp.UploadID, resp.ImageURL = "", ""
				if err := enc.Encode(resp); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}

// newAdviseCmd asks the advice backend once and prints the text verbatim.
func newAdviseCmd(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "advise <category>",
		Short:   "Print disposal advice for a trash category",
		Example: "  GOOGLE_API_KEY=... trashd advise Plastic",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, stderr)
			if !cfg.AdviceEnabled() {
				return apperr.ServiceUnavailable("AI service not configured: set GOOGLE_API_KEY")
			}
			g, err := advice.NewGemini(cmd.Context(), cfg.Advice.APIKey, cfg.Advice.Model)
			if err != nil {
				return err
			}
			defer g.Close()
			c := advice.New(g, advice.Options{
				Timeout:    cfg.Advice.Timeout.Std(),
				MaxRetries: cfg.Advice.MaxRetries,
				Logger:     &logger,
			})
			text, err := c.Suggest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, text)
			return err
		},
	}
}

// newLabelsCmd validates the label map and prints it in index order.
func newLabelsCmd(f *flags, stdout io.Writer) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Validate and print the label map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			lm, err := labels.Load(cfg.LabelsPath)
			if err != nil {
				return err
			}
			if asJSON {
				out := types.LabelsResponse{}
				for i, n := range lm.Names() {
					out.Labels = append(out.Labels, types.Label{Index: i, Name: n})
				}
				return json.NewEncoder(stdout).Encode(out)
			}
			for i, n := range lm.Names() {
				fmt.Fprintf(stdout, "%d\t%s\n", i, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
