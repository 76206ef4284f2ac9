package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logwatch/pkg/models"
)

func TestDetect_ResponseTimeSpike(t *testing.T) {
	var records []models.LogRecord
	for minute, ms := range []float64{100, 100, 100, 100, 1000} {
		records = append(records, rec(minute, "GET", "/a", 200, ms))
		records = append(records, rec(minute, "GET", "/a", 200, ms))
	}

	findings := Detect(Aggregate(records))

	require.Len(t, findings, 1)
	got := findings[0]
	assert.Equal(t, KindResponseTimeSpike, got.Type)
	assert.Equal(t, SeverityHigh, got.Severity)
	assert.Equal(t, "09:04", got.Timestamp)
	assert.Contains(t, got.Message, "1000ms")
	assert.Contains(t, got.Message, "09:04")
	assert.NotEmpty(t, got.ID)
}

func TestDetect_SpikeThresholdIsStrict(t *testing.T) {
	// mean = 100, threshold = 200: a bucket at exactly 200 is not a spike.
	view := AggregateView{TimeSeries: []TimeBucket{
		{Time: "10:00", AvgResponseTime: 50},
		{Time: "10:01", AvgResponseTime: 50},
		{Time: "10:02", AvgResponseTime: 200},
		{Time: "10:03", AvgResponseTime: 100},
	}}

	assert.Empty(t, Detect(view))
}

func TestDetect_ErrorRateSeverity(t *testing.T) {
	tests := []struct {
		name      string
		errorRate int
		want      Severity
		flagged   bool
	}{
		{"below threshold", 20, "", false},
		{"at threshold", 30, "", false},
		{"just above threshold", 31, SeverityMedium, true},
		{"40 percent", 40, SeverityMedium, true},
		{"at high bound", 50, SeverityMedium, true},
		{"60 percent", 60, SeverityHigh, true},
		{"all errors", 100, SeverityHigh, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := AggregateView{Endpoints: []EndpointStat{{Endpoint: "/b", Requests: 10, ErrorRate: tt.errorRate}}}

			findings := Detect(view)
			if !tt.flagged {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, KindHighErrorRate, findings[0].Type)
			assert.Equal(t, tt.want, findings[0].Severity)
			assert.Contains(t, findings[0].Message, fmt.Sprintf("%d%%", tt.errorRate))
			assert.Contains(t, findings[0].Message, "/b")
		})
	}
}

func TestDetect_ErrorRateFromRecords(t *testing.T) {
	var records []models.LogRecord
	for i := 0; i < 10; i++ {
		statusB, statusC := 200, 200
		if i < 4 {
			statusB = 500
		}
		if i < 6 {
			statusC = 404
		}
		records = append(records, rec(0, "GET", "/b", statusB, 10))
		records = append(records, rec(0, "GET", "/c", statusC, 10))
	}

	findings := Detect(Aggregate(records))

	require.Len(t, findings, 2)
	assert.Equal(t, SeverityMedium, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "40%")
	assert.Equal(t, SeverityHigh, findings[1].Severity)
	assert.Contains(t, findings[1].Message, "60%")
	assert.NotEqual(t, findings[0].ID, findings[1].ID)
}

func TestDetect_CapPrefersResponseTime(t *testing.T) {
	// 9 slow buckets among 20 (mean 450, threshold 900) and 4 failing endpoints
	// make 13 candidates.
	var view AggregateView
	for i := 0; i < 20; i++ {
		ms := 0
		if i%2 == 0 && i < 18 {
			ms = 1000
		}
		view.TimeSeries = append(view.TimeSeries, TimeBucket{Time: fmt.Sprintf("10:%02d", i), AvgResponseTime: ms})
	}
	for i := 0; i < 4; i++ {
		view.Endpoints = append(view.Endpoints, EndpointStat{Endpoint: fmt.Sprintf("/e%d", i), ErrorRate: 90})
	}

	candidates := len(responseTimeSpikes(view.TimeSeries)) + len(highErrorRates(view.Endpoints, ""))
	require.Equal(t, 13, candidates)

	findings := Detect(view)

	require.Len(t, findings, MaxFindings)
	for _, f := range findings {
		assert.Equal(t, KindResponseTimeSpike, f.Type)
	}
	assert.Equal(t, []string{"10:00", "10:02", "10:04"}, []string{findings[0].Timestamp, findings[1].Timestamp, findings[2].Timestamp})
}

func TestDetect_MixedUnderCap(t *testing.T) {
	view := AggregateView{
		TimeSeries: []TimeBucket{
			{Time: "10:00", AvgResponseTime: 100},
			{Time: "10:01", AvgResponseTime: 100},
			{Time: "10:02", AvgResponseTime: 100},
			{Time: "10:03", AvgResponseTime: 900},
		},
		Endpoints: []EndpointStat{
			{Endpoint: "/x", ErrorRate: 35},
			{Endpoint: "/y", ErrorRate: 75},
			{Endpoint: "/z", ErrorRate: 99},
		},
	}

	findings := Detect(view)

	require.Len(t, findings, 3)
	assert.Equal(t, KindResponseTimeSpike, findings[0].Type)
	assert.Equal(t, KindHighErrorRate, findings[1].Type)
	assert.Contains(t, findings[1].Message, "/x")
	assert.Equal(t, "10:03", findings[1].Timestamp)
	assert.Contains(t, findings[2].Message, "/y")
}

func TestDetect_StableIDs(t *testing.T) {
	view := AggregateView{
		TimeSeries: []TimeBucket{{Time: "10:00", AvgResponseTime: 0}, {Time: "10:01", AvgResponseTime: 0}, {Time: "10:02", AvgResponseTime: 500}},
		Endpoints:  []EndpointStat{{Endpoint: "/x", ErrorRate: 80}},
	}

	first := Detect(view)
	view.Endpoints[0].ErrorRate = 60
	second := Detect(view)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestDetect_DegenerateViews(t *testing.T) {
	tests := []struct {
		name string
		view AggregateView
	}{
		{"zero value", AggregateView{}},
		{"all zero latency", AggregateView{TimeSeries: []TimeBucket{{Time: "10:00"}, {Time: "10:01"}}}},
		{"single bucket", AggregateView{TimeSeries: []TimeBucket{{Time: "10:00", AvgResponseTime: 5000}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := Detect(tt.view)
			assert.NotNil(t, findings)
			assert.Empty(t, findings)
		})
	}
}

func TestSummarize(t *testing.T) {
	records := []models.LogRecord{
		rec(0, "GET", "/a", 200, 100),
		rec(1, "GET", "/a", 404, 200),
		rec(2, "GET", "not a url", 500, 301),
	}

	got := Summarize(records)

	assert.Equal(t, Summary{TotalRequests: 3, SuccessRate: 33.3, AvgResponseTime: 200}, got)
}
