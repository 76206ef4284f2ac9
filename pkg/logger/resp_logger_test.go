package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseLogger_Status(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter)
		want    int
		bytes   int
	}{
		{
			name:    "implicit OK",
			handler: func(w http.ResponseWriter) { w.Write([]byte("hello")) },
			want:    http.StatusOK,
			bytes:   5,
		},
		{
			name: "explicit status",
			handler: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"x"}`))
			},
			want:  http.StatusServiceUnavailable,
			bytes: 13,
		},
		{
			name:    "no body",
			handler: func(w http.ResponseWriter) { w.WriteHeader(http.StatusAccepted) },
			want:    http.StatusAccepted,
			bytes:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			lw := New(rr)
			tt.handler(lw)

			if lw.Status() != tt.want {
				t.Errorf("want status %d, got %d", tt.want, lw.Status())
			}
			if rr.Code != tt.want {
				t.Errorf("status not forwarded: want %d, got %d", tt.want, rr.Code)
			}
			if lw.Bytes() != tt.bytes {
				t.Errorf("want %d bytes, got %d", tt.bytes, lw.Bytes())
			}
		})
	}
}

func TestResponseLogger_HijackUnsupported(t *testing.T) {
	lw := New(httptest.NewRecorder())

	_, _, err := lw.Hijack()
	if !errors.Is(err, ErrHijackUnsupported) {
		t.Errorf("want ErrHijackUnsupported, got %v", err)
	}
	if lw.Status() != http.StatusOK {
		t.Errorf("status must not change on failed hijack, got %d", lw.Status())
	}
}

func TestResponseLogger_Header(t *testing.T) {
	rr := httptest.NewRecorder()
	lw := New(rr)

	lw.Header().Set("Content-Type", "application/json")
	lw.Flush()

	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("want header forwarded, got %q", got)
	}
	if !rr.Flushed {
		t.Error("want Flush forwarded to the underlying writer")
	}
}
