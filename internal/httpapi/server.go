package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trashd/internal/apperr"
	"trashd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Classes() []string
	LabelList() []types.Label
	AdviceEnabled() bool
	Ready() bool
	// Classify stores and classifies one uploaded image.
	Classify(ctx context.Context, filename string, data []byte) (types.PredictionResponse, error)
	// Suggest returns disposal advice for a trash category.
	Suggest(ctx context.Context, trashType string) (string, error)
	OpenUpload(key string) (*os.File, error)
}

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Classes       []string
	AdviceEnabled bool
	Result        *types.PredictionResponse
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON and HTML responses
	r.Use(middleware.Compress(5, "application/json", "text/html"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		methods := corsAllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
		}
		headers := corsAllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Accept", "Content-Type", "X-Log-Level"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if wantsHTML(r) {
			renderPage(w, http.StatusOK, pageData{Classes: svc.Classes(), AdviceEnabled: svc.AdviceEnabled()})
			return
		}
		writeJSON(w, http.StatusOK, types.IndexResponse{Status: "ok", Classes: svc.Classes(), AdviceEnabled: svc.AdviceEnabled()})
	})

	classify := func(w http.ResponseWriter, r *http.Request) {
		rl := newReqLog(r, "classify")
		filename, data, err := readUpload(w, r)
		if err != nil {
			rl.End(writeError(w, err), err, nil)
			return
		}
		rl.Start(map[string]any{"filename": filename, "bytes": len(data)})

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Classify(ctx, filename, data)
		if err != nil {
			failCall(w, r, rl, err)
			return
		}
		rl.End(http.StatusOK, nil, map[string]any{"label": resp.Prediction, "confidence": resp.Confidence, "upload_id": resp.UploadID})
		if wantsHTML(r) {
			renderPage(w, http.StatusOK, pageData{Classes: svc.Classes(), AdviceEnabled: svc.AdviceEnabled(), Result: &resp})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
	r.Post("/", classify)
	r.Post("/predict", classify)

	r.Post("/get_disposal_suggestion", func(w http.ResponseWriter, r *http.Request) {
		rl := newReqLog(r, "advice")
		// The feature check comes first: without a backend nothing else matters.
		if !svc.AdviceEnabled() {
			err := apperr.ServiceUnavailable("AI service not configured")
			rl.End(writeError(w, err), err, nil)
			return
		}
		ct := r.Header.Get("Content-Type")
		if mt, _, _ := mime.ParseMediaType(ct); mt != "application/json" {
			err := apperr.New(apperr.KindUnsupportedMedia, "Content-Type must be application/json")
			rl.End(writeError(w, err), err, nil)
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.AdviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				err = apperr.Wrap(apperr.KindPayloadTooLarge, "request body too large", err)
			} else {
				err = apperr.Wrap(apperr.KindClientInput, "invalid JSON body", err)
			}
			rl.End(writeError(w, err), err, nil)
			return
		}
		trashType := strings.TrimSpace(req.TrashType)
		if trashType == "" {
			err := apperr.ClientInput("Trash type not provided")
			rl.End(writeError(w, err), err, nil)
			return
		}
		rl.Start(map[string]any{"trash_type": trashType})

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		text, err := svc.Suggest(ctx, trashType)
		if err != nil {
			failCall(w, r, rl, err)
			return
		}
		rl.Lines("advice", text)
		rl.End(http.StatusOK, nil, map[string]any{"chars": len(text)})
		writeJSON(w, http.StatusOK, types.AdviceResponse{Suggestion: text})
	})

	r.Get("/uploads/{key}", func(w http.ResponseWriter, r *http.Request) {
		f, err := svc.OpenUpload(chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil {
			writeError(w, err)
			return
		}
		http.ServeContent(w, r, st.Name(), st.ModTime(), f)
	})

	r.Get("/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.LabelsResponse{Labels: svc.LabelList()})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// failCall answers a failed service call. Nothing is written once the client
// has gone; work cut short by shutdown is reported as 503.
func failCall(w http.ResponseWriter, r *http.Request, rl *reqLog, err error) {
	if clientGone(r) {
		return
	}
	if shuttingDown() {
		err = apperr.Wrap(apperr.KindServiceUnavailable, "server shutting down", err)
	}
	rl.End(writeError(w, err), err, nil)
}

// readUpload extracts the "file" part. A request without the part is
// rejected with "No file uploaded"; a part with an empty filename (the
// browser's "nothing chosen") with "No file selected".
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return "", nil, apperr.New(apperr.KindPayloadTooLarge, "file too large")
		case errors.Is(err, http.ErrMissingFile) && r.MultipartForm != nil && len(r.MultipartForm.Value["file"]) > 0:
			// multipart decodes a part with an empty filename as a plain value.
			return "", nil, apperr.ClientInput("No file selected")
		default:
			return "", nil, apperr.ClientInput("No file uploaded")
		}
	}
	defer f.Close()
	if strings.TrimSpace(hdr.Filename) == "" {
		return "", nil, apperr.ClientInput("No file selected")
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindClientInput, "failed to read upload", err)
	}
	return hdr.Filename, data, nil
}

// wantsHTML reports whether the client prefers the rendered page.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		zlog.Error().Err(err).Msg("render page")
	}
}
