package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"logwatch/pkg/logger"
)

type ctxKeyRequestID struct{}

var RequestIDKey = ctxKeyRequestID{}

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware takes the request ID from the X-Request-Id header or
// generates one, and echoes it in the response.
func (api *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				log.Errorf("[requestIDMiddleware] failed to generate request ID: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			reqID = id.String()
		}
		w.Header().Set(requestIDHeader, reqID)

		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (api *API) headerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Request-Id")

		next.ServeHTTP(w, r)
	})
}

func (api *API) loggingMiddleware(kWriter MessageWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := logger.New(w)
			defer func() {
				entry := AccessLogEntry{
					Timestamp:  time.Now().UTC(),
					IP:         getClientIP(r),
					StatusCode: lw.Status(),
					RequestID:  GetRequestID(r.Context()),
					Method:     r.Method,
					Path:       r.URL.Path,
					Duration:   time.Since(start).Seconds(),
					Bytes:      lw.Bytes(),
					Service:    api.ServiceName,
				}

				jsonEntry, err := json.Marshal(entry)
				if err != nil {
					log.Errorf("[loggingMiddleware] failed to marshal log entry for request %s", entry.RequestID)
					return
				}
				// The request context is already cancelled for hijacked connections.
				ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), writeWait)
				defer cancel()
				err = kWriter.WriteMessages(ctx, kafka.Message{Key: []byte(entry.RequestID), Value: jsonEntry})
				if err != nil {
					log.Errorf("[loggingMiddleware] failed to write log to Kafka: %v", err)
					return
				}
				log.Debugf("[loggingMiddleware] log entry sent to Kafka request_id:%s", entry.RequestID)
			}()

			next.ServeHTTP(lw, r)
		})
	}
}

func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}

	return ip
}
