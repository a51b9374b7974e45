package httpapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. Nop until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel applies when a request carries no override.
var defaultLogLevel = LevelInfo

// SetRequestLogLevel sets the default per-request log level
// ("off", "error", "info", "debug").
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqLog emits "<op> start" / "<op> end" lines for one request, honouring the
// request's log level.
type reqLog struct {
	op    string
	lvl   LogLevel
	rid   string
	start time.Time
}

func newReqLog(r *http.Request, op string) *reqLog {
	return &reqLog{op: op, lvl: requestLogLevel(r), rid: middleware.GetReqID(r.Context()), start: time.Now()}
}

func (l *reqLog) with(ev *zerolog.Event) *zerolog.Event {
	if l.rid != "" {
		ev = ev.Str("request_id", l.rid)
	}
	return ev
}

func (l *reqLog) Start(fields map[string]any) {
	if l.lvl < LevelInfo {
		return
	}
	l.with(zlog.Info()).Fields(fields).Msg(l.op + " start")
}

// End logs the outcome. Failures log at LevelError and above, successes at
// LevelInfo and above.
func (l *reqLog) End(status int, err error, fields map[string]any) {
	if err != nil && l.lvl < LevelError || err == nil && l.lvl < LevelInfo {
		return
	}
	ev := zlog.Info()
	if err != nil {
		ev = zlog.Error().Err(err)
	}
	l.with(ev).Int("status", status).Dur("dur", time.Since(l.start)).Fields(fields).Msg(l.op + " end")
}

// Lines logs text one line per entry at debug level, used to trace advice
// bodies when a request asks for ?log=debug.
func (l *reqLog) Lines(prefix, text string) {
	if l.lvl < LevelDebug {
		return
	}
	lw := &loggingLineWriter{prefix: prefix, rid: l.rid}
	_, _ = lw.Write([]byte(text))
	lw.Flush()
}

// loggingLineWriter logs complete lines to the structured logger.
type loggingLineWriter struct {
	prefix string
	rid    string
	buf    []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		lw.emit(string(lw.buf[:idx]))
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (lw *loggingLineWriter) Flush() {
	if len(lw.buf) > 0 {
		lw.emit(string(lw.buf))
		lw.buf = nil
	}
}

func (lw *loggingLineWriter) emit(line string) {
	if line == "" {
		return
	}
	ev := zlog.Debug()
	if lw.rid != "" {
		ev = ev.Str("request_id", lw.rid)
	}
	ev.Msg(lw.prefix + "> " + line)
}
