// Package classifier owns the loaded trash-classification artifact and runs
// forward passes over preprocessed image tensors. It is structured into small
// files by concern:
//
//   - classifier.go: Classifier type, Open (load + warmup), Classify, Close.
//   - runtime.go: Runtime/Session interfaces that abstract the model runtime.
//   - runtime_onnx.go: ONNX Runtime adapter (requires cgo).
//   - runtime_onnx_stub.go: no-cgo stub that fails startup with a clear error.
//   - pool.go: fixed session pool with bounded wait (one forward pass per session at a time).
//   - events.go, eventpub_*.go: lifecycle/outcome events for logs and tests.
//   - metrics.go: Prometheus collectors for predictions and inference latency.
//
// Build tags and runtimes:
//
//   - cgo builds link github.com/yalue/onnxruntime_go and load the ONNX Runtime
//     shared library at startup (optionally from an explicit path).
//   - CGO_ENABLED=0 builds compile the stub; Open then fails with a startup
//     configuration error so the process never serves without a model.
//
// A Classifier is immutable after Open returns and safe for concurrent use.
package classifier
