// Package engine turns a list of access-log records into traffic statistics and
// anomaly findings. All functions are pure: they keep no state between calls and never
// modify their input.
package engine

import "logwatch/pkg/models"

// TimeBucket holds the traffic of one minute, labelled "HH:MM".
type TimeBucket struct {
	Time            string  `json:"time"`
	Requests        int     `json:"requests"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime int     `json:"avgResponseTime"`
}

type StatusCodeCount struct {
	Code  int `json:"code"`
	Count int `json:"count"`
}

type EndpointStat struct {
	Endpoint        string `json:"endpoint"`
	Requests        int    `json:"requests"`
	AvgResponseTime int    `json:"avgResponseTime"`
	ErrorRate       int    `json:"errorRate"`

	// MaxConsecutiveErrors is the longest run of error responses in scan order.
	MaxConsecutiveErrors int `json:"maxConsecutiveErrors"`
}

type MethodCount struct {
	Method               string `json:"method"`
	Count                int    `json:"count"`
	ErrorRate            int    `json:"errorRate"`
	MaxConsecutiveErrors int    `json:"maxConsecutiveErrors"`
}

type ResponseTimeBand struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// AggregateView is the output of Aggregate.
type AggregateView struct {
	TimeSeries    []TimeBucket       `json:"timeSeriesData"`
	StatusCodes   []StatusCodeCount  `json:"statusCodeData"`
	Endpoints     []EndpointStat     `json:"endpointData"`
	Methods       []MethodCount      `json:"methodData"`
	ResponseTimes []ResponseTimeBand `json:"responseTimeData"`

	// SkippedEndpoints counts records whose URL yielded no path. They are
	// still part of every other grouping.
	SkippedEndpoints int `json:"skippedEndpoints"`
}

type Summary struct {
	TotalRequests   int     `json:"totalRequests"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime int     `json:"avgResponseTime"`
}

// Report bundles everything derived from one record set.
type Report struct {
	Summary   Summary       `json:"summary"`
	View      AggregateView `json:"view"`
	Anomalies []Finding     `json:"anomalies"`
}

// Analyze runs Aggregate, Detect and Summarize over records.
func Analyze(records []models.LogRecord) Report {
	view := Aggregate(records)
	return Report{
		Summary:   Summarize(records),
		View:      view,
		Anomalies: Detect(view),
	}
}
