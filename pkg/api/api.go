package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"logwatch/pkg/poller"
)

const writeWait = 5 * time.Second

// Poller is the part of *poller.Poller the API depends on.
type Poller interface {
	Snapshot() poller.Snapshot
	Refresh() bool
	Interval() time.Duration
	SetInterval(d time.Duration) error
	Subscribe() (<-chan poller.Snapshot, func())
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type API struct {
	ServiceName string

	r        *mux.Router
	p        Poller
	kw       MessageWriter
	limiter  *rate.Limiter
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
}

type Option func(*API)

// WithAccessLog sends an access log entry per request to Kafka.
func WithAccessLog(w MessageWriter) Option {
	return func(api *API) { api.kw = w }
}

// WithRefreshLimit caps manual refresh requests.
func WithRefreshLimit(r rate.Limit, burst int) Option {
	return func(api *API) { api.limiter = rate.NewLimiter(r, burst) }
}

// WithGatherer serves g on /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(api *API) { api.gatherer = g }
}

func New(name string, p Poller, opts ...Option) *API {
	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		p:           p,
		gatherer:    prometheus.DefaultGatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(&api)
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)

	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}

	api.r.HandleFunc("/dashboard", api.dashboardHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/dashboard/anomalies", api.anomaliesHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/dashboard/stream", api.streamHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/refresh", api.refreshHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/refresh/interval", api.intervalHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/refresh/interval", api.setIntervalHandler).Methods(http.MethodPut)
	api.r.Handle("/metrics", promhttp.HandlerFor(api.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

func (api *API) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	snap := api.p.Snapshot()
	if e := snapshotError(snap); e != nil {
		writeJSON(w, http.StatusServiceUnavailable, e)
		log.Debugf("[dashboardHandler][%s] no data to serve: %s", sID, e.Error)
		return
	}

	writeJSON(w, http.StatusOK, dashboard(snap, api.p.Interval()))
	log.Debugf("[dashboardHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) anomaliesHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	snap := api.p.Snapshot()
	if e := snapshotError(snap); e != nil {
		writeJSON(w, http.StatusServiceUnavailable, e)
		log.Debugf("[anomaliesHandler][%s] no data to serve: %s", sID, e.Error)
		return
	}

	writeJSON(w, http.StatusOK, snap.Report.Anomalies)
	log.Debugf("[anomaliesHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) refreshHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if api.limiter != nil && !api.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "refresh rate limit exceeded"})
		log.Debugf("[refreshHandler][%s] rate limited request from %v", sID, r.RemoteAddr)
		return
	}

	status := "scheduled"
	if !api.p.Refresh() {
		status = "pending"
	}

	writeJSON(w, http.StatusAccepted, RefreshResponse{Status: status})
	log.Debugf("[refreshHandler][%s] refresh %s", sID, status)
}

func (api *API) intervalHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, IntervalResponse{
		Interval: api.p.Interval().String(),
		Allowed:  allowedIntervals(),
	})
}

func (api *API) setIntervalHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req IntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		log.Debugf("[setIntervalHandler][%s] failed to decode body: %v", sID, err)
		return
	}

	d, err := time.ParseDuration(req.Interval)
	if err == nil {
		err = api.p.SetInterval(d)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Interval must be one of 5s, 10s, 30s, 1m0s"})
		log.Debugf("[setIntervalHandler][%s] rejected interval %q: %v", sID, req.Interval, err)
		return
	}

	writeJSON(w, http.StatusOK, IntervalResponse{Interval: api.p.Interval().String(), Allowed: allowedIntervals()})
	log.Infof("[setIntervalHandler][%s] refresh interval set to %v", sID, d)
}

func (api *API) streamHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	conn, err := api.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("[streamHandler][%s] websocket upgrade failed: %v", sID, err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := api.p.Subscribe()
	defer unsubscribe()

	// The client sends nothing; reading only detects a closed connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap := api.p.Snapshot(); snap.Seq > 0 {
		if err := api.send(conn, snap); err != nil {
			log.Debugf("[streamHandler][%s] send failed: %v", sID, err)
			return
		}
	}

	log.Debugf("[streamHandler][%s] streaming to %v", sID, r.RemoteAddr)
	for {
		select {
		case <-closed:
			log.Debugf("[streamHandler][%s] client closed the stream", sID)
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := api.send(conn, snap); err != nil {
				log.Debugf("[streamHandler][%s] send failed: %v", sID, err)
				return
			}
		}
	}
}

func (api *API) send(conn *websocket.Conn, snap poller.Snapshot) error {
	ev := StreamEvent{Seq: snap.Seq}
	if e := snapshotError(snap); e != nil {
		ev.Error = e
	} else {
		ev.Dashboard = dashboard(snap, api.p.Interval())
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[api] failed to encode response data: %v", err)
	}
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
