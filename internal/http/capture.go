package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
)

// captureWriter buffers headers, status and body so we can decide post-dispatch.
type captureWriter struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header), status: http.StatusOK}
}

func (c *captureWriter) Header() http.Header         { return c.header }
func (c *captureWriter) WriteHeader(code int)        { c.status = code }
func (c *captureWriter) Write(b []byte) (int, error) { return c.buf.Write(b) }

// flushTo replays the captured response. Cookies are appended; other
// captured header keys replace any already set on w.
func (c *captureWriter) flushTo(w http.ResponseWriter) {
	for k, vs := range c.header {
		if k == "Set-Cookie" {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
			continue
		}
		w.Header()[k] = vs
	}
	w.WriteHeader(c.status)
	if _, err := w.Write(c.buf.Bytes()); err != nil {
		slog.Default().Debug("failed to write captured response", "error", err)
	}
}
