//go:build !cgo

package classifier

// This file is compiled for CGO_ENABLED=0 builds. ONNX Runtime is a native
// library, so such binaries cannot classify; NewONNXRuntime fails fast and the
// process refuses to start.

import "errors"

// NewONNXRuntime always fails in builds without cgo.
func NewONNXRuntime(libPath string) (Runtime, error) {
	return nil, errors.New("ONNX Runtime support not built (binary compiled with CGO_ENABLED=0)")
}
