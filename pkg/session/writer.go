package session

import (
	"fmt"
	"net/http"
)

// trackingWriter records the response status so that error paths never
// write over a transport's partial reply, and lets the router observe the
// header before it reaches the client.
type trackingWriter struct {
	http.ResponseWriter
	status int

	// onHeader, when set, runs once just before the header is sent.
	onHeader func(status int, h http.Header)
}

// WriteHeader records the start of the response before delegating.
func (w *trackingWriter) WriteHeader(statusCode int) {
	if w.status == 0 {
		w.status = statusCode
		if w.onHeader != nil {
			w.onHeader(statusCode, w.Header())
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("writing response: %w", err)
	}
	return n, nil
}

// Flush implements http.Flusher for SSE streaming compatibility.
func (w *trackingWriter) Flush() {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Started reports whether any part of the response has been written.
func (w *trackingWriter) Started() bool {
	return w.status != 0
}

// Status returns the status sent, or zero if nothing was written.
func (w *trackingWriter) Status() int {
	return w.status
}
