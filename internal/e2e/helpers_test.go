package e2e

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"trashd/internal/app"
	"trashd/internal/app/apptest"
	"trashd/internal/config"
	"trashd/internal/httpapi"
)

// newServer builds a full App over the fake runtime and serves it.
func newServer(t *testing.T, gen *apptest.Generator, mutate ...func(*config.Config)) (*httptest.Server, *app.App) {
	t.Helper()
	cfg := apptest.Config(t)
	for _, m := range mutate {
		m(&cfg)
	}
	opts := app.Options{Runtime: &apptest.Runtime{}}
	if gen != nil {
		opts.Generator = gen
	}
	a, err := app.New(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(a))
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close(context.Background())
	})
	return srv, a
}

func postImage(t *testing.T, url, filename string, data []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := imageRequest(url, filename, data)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return do(t, req)
}

// postImageE is postImage for use off the test goroutine.
func postImageE(url, filename string, data []byte) (int, []byte, error) {
	req, err := imageRequest(url, filename, data)
	if err != nil {
		return 0, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func imageRequest(url, filename string, data []byte) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func httpPostJSON(t *testing.T, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do %s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}
