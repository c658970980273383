package pipeline

import (
	"bufio"
	"net"
	"net/http"
)

// ResponseWriter wraps http.ResponseWriter to track whether a response has
// been written and to run registered callbacks just before the headers are
// flushed. Middleware uses the callbacks to inject headers (e.g. Set-Cookie)
// that must be present on the wire regardless of which unit ends the
// response.
type ResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	written     bool
	hijacked    bool
	inBefore    bool
	beforeFuncs []func()
}

func newResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

// OnBeforeWriteHeader registers fn to run immediately before the response
// headers are written. Callbacks run in registration order, exactly once.
// Registering after the headers have been sent is a no-op.
func (w *ResponseWriter) OnBeforeWriteHeader(fn func()) {
	if w.written {
		return
	}
	w.beforeFuncs = append(w.beforeFuncs, fn)
}

// WriteHeader runs the before-write callbacks and sends the status line.
// Subsequent calls are ignored.
func (w *ResponseWriter) WriteHeader(status int) {
	if w.written || w.hijacked {
		return
	}

	// Guard against callbacks triggering WriteHeader recursively.
	if !w.inBefore {
		w.inBefore = true
		for _, fn := range w.beforeFuncs {
			fn()
		}
		w.inBefore = false
	}

	w.status = status
	w.written = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Written reports whether the response headers have been sent or the
// connection has been hijacked.
func (w *ResponseWriter) Written() bool {
	return w.written || w.hijacked
}

// Status returns the HTTP status code, or zero if nothing was written yet.
func (w *ResponseWriter) Status() int {
	return w.status
}

// BytesWritten returns the number of body bytes written so far.
func (w *ResponseWriter) BytesWritten() int64 {
	return w.bytes
}

// Flush implements http.Flusher if the underlying writer supports it.
func (w *ResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker if the underlying writer supports it.
// A hijacked connection counts as written: the pipeline stops finalizing
// the response for it.
func (w *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	conn, rw, err := hj.Hijack()
	if err == nil {
		w.hijacked = true
	}
	return conn, rw, err
}
