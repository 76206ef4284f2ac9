package logger

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

var ErrHijackUnsupported = errors.New("underlying ResponseWriter does not support hijacking")

// ResponseLogger remembers the status code written through it and the number of
// body bytes sent.
type ResponseLogger struct {
	w      http.ResponseWriter
	status int
	bytes  int
}

func New(w http.ResponseWriter) *ResponseLogger {
	return &ResponseLogger{w: w, status: http.StatusOK}
}

func (l *ResponseLogger) WriteHeader(code int) {
	l.status = code
	l.w.WriteHeader(code)
}

func (l *ResponseLogger) Write(b []byte) (int, error) {
	n, err := l.w.Write(b)
	l.bytes += n
	return n, err
}

func (l *ResponseLogger) Header() http.Header {
	return l.w.Header()
}

func (l *ResponseLogger) Status() int {
	return l.status
}

func (l *ResponseLogger) Bytes() int {
	return l.bytes
}

// Hijack lets websocket upgrades pass through logging middleware. A hijacked
// connection is reported as 101 Switching Protocols.
func (l *ResponseLogger) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := l.w.(http.Hijacker)
	if !ok {
		return nil, nil, ErrHijackUnsupported
	}
	conn, rw, err := h.Hijack()
	if err == nil {
		l.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

func (l *ResponseLogger) Flush() {
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (l *ResponseLogger) Unwrap() http.ResponseWriter {
	return l.w
}
