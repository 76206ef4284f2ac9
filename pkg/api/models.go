package api

import (
	"time"

	"logwatch/pkg/engine"
	"logwatch/pkg/poller"
)

type DashboardResponse struct {
	Summary engine.Summary `json:"summary"`
	engine.AggregateView
	Anomalies []engine.Finding `json:"anomalies"`
	Records   int              `json:"records"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Interval  string           `json:"interval"`
}

type ErrorResponse struct {
	Error    string     `json:"error"`
	FailedAt *time.Time `json:"failedAt,omitempty"`
}

type IntervalRequest struct {
	Interval string `json:"interval"`
}

type IntervalResponse struct {
	Interval string   `json:"interval"`
	Allowed  []string `json:"allowed"`
}

type RefreshResponse struct {
	Status string `json:"status"`
}

// StreamEvent is pushed to websocket clients after every poll.
type StreamEvent struct {
	Seq       uint64             `json:"seq"`
	Dashboard *DashboardResponse `json:"dashboard,omitempty"`
	Error     *ErrorResponse     `json:"error,omitempty"`
}

// AccessLogEntry is the record sent to Kafka for every served request.
type AccessLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	Bytes      int       `json:"bytes"`
	Service    string    `json:"service"`
}

func dashboard(s poller.Snapshot, interval time.Duration) *DashboardResponse {
	return &DashboardResponse{
		Summary:       s.Report.Summary,
		AggregateView: s.Report.View,
		Anomalies:     s.Report.Anomalies,
		Records:       s.Records,
		FetchedAt:     s.FetchedAt,
		Interval:      interval.String(),
	}
}

// snapshotError describes why s cannot be served, or returns nil.
func snapshotError(s poller.Snapshot) *ErrorResponse {
	switch {
	case s.Err != nil:
		failedAt := s.FailedAt
		return &ErrorResponse{Error: "log source unavailable: " + s.Err.Error(), FailedAt: &failedAt}
	case !s.Ready():
		return &ErrorResponse{Error: poller.ErrNotReady.Error()}
	}
	return nil
}

func allowedIntervals() []string {
	allowed := make([]string, 0, len(poller.AllowedIntervals))
	for _, d := range poller.AllowedIntervals {
		allowed = append(allowed, d.String())
	}
	return allowed
}
