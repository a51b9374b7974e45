// Package apperr defines the error taxonomy shared by every layer of trashd.
// Each error carries a Kind; the HTTP layer translates kinds to status codes
// in one place through StatusCode.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for status mapping and logging.
type Kind int

const (
	KindInternal Kind = iota
	KindStartupConfig
	KindClientInput
	KindPayloadTooLarge
	KindUnsupportedMedia
	KindDecode
	KindInference
	KindBusy
	KindServiceUnavailable
	KindUpstream
	KindUpstreamTimeout
	KindNotFound
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindStartupConfig:      "startup_config",
	KindClientInput:        "client_input",
	KindPayloadTooLarge:    "payload_too_large",
	KindUnsupportedMedia:   "unsupported_media",
	KindDecode:             "decode",
	KindInference:          "inference",
	KindBusy:               "busy",
	KindServiceUnavailable: "service_unavailable",
	KindUpstream:           "upstream",
	KindUpstreamTimeout:    "upstream_timeout",
	KindNotFound:           "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "internal"
}

// Status returns the HTTP status code for the kind.
// KindStartupConfig never reaches a client; it maps to 500 for completeness.
func (k Kind) Status() int {
	switch k {
	case KindClientInput, KindDecode:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case KindBusy:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the concrete error type. Msg is safe to show to clients; Err is
// the wrapped cause and is only logged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode satisfies httpapi.HTTPError.
func (e *Error) StatusCode() int { return e.Kind.Status() }

// Public returns the client-facing message.
func (e *Error) Public() string {
	if e.Msg != "" {
		return e.Msg
	}
	return http.StatusText(e.StatusCode())
}

// New constructs an error of the given kind without a cause.
func New(k Kind, msg string) error { return &Error{Kind: k, Msg: msg} }

// Wrap constructs an error of the given kind around err.
func Wrap(k Kind, msg string, err error) error { return &Error{Kind: k, Msg: msg, Err: err} }

// KindOf reports the kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func StartupConfig(msg string, err error) error { return Wrap(KindStartupConfig, msg, err) }
func ClientInput(msg string) error              { return New(KindClientInput, msg) }
func Decode(err error) error                    { return Wrap(KindDecode, "invalid image", err) }
func Inference(err error) error                 { return Wrap(KindInference, "inference failed", err) }
func Busy(msg string) error                     { return New(KindBusy, msg) }
func ServiceUnavailable(msg string) error       { return New(KindServiceUnavailable, msg) }
func Upstream(err error) error                  { return Wrap(KindUpstream, "Failed to get AI suggestion", err) }
func UpstreamTimeout(err error) error {
	return Wrap(KindUpstreamTimeout, "AI service timed out", err)
}
func NotFound(msg string) error { return New(KindNotFound, msg) }

// IsStartupConfig reports whether err must abort startup.
func IsStartupConfig(err error) bool { return Is(err, KindStartupConfig) }

// IsClientInput reports whether err was caused by the request itself.
func IsClientInput(err error) bool {
	switch KindOf(err) {
	case KindClientInput, KindDecode, KindPayloadTooLarge, KindUnsupportedMedia:
		return true
	}
	return false
}
