package engine

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// MaxFindings bounds the number of findings returned by Detect.
const MaxFindings = 3

const (
	spikeFactor        = 2
	errorRateThreshold = 30
	errorRateHigh      = 50
)

type Kind string

const (
	KindResponseTimeSpike Kind = "response_time_spike"
	KindHighErrorRate     Kind = "high_error_rate"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Finding is a single anomaly. ID is stable for the same kind and subject.
type Finding struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Type      Kind     `json:"type"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

// Detect flags time buckets whose average response time is more than twice the
// mean across buckets, then endpoints with an error rate above 30%. Response time
// findings come first and the result is cut to MaxFindings.
func Detect(view AggregateView) []Finding {
	findings := make([]Finding, 0, MaxFindings)
	findings = append(findings, responseTimeSpikes(view.TimeSeries)...)
	findings = append(findings, highErrorRates(view.Endpoints, latestLabel(view.TimeSeries))...)

	if len(findings) > MaxFindings {
		findings = findings[:MaxFindings]
	}
	return findings
}

func responseTimeSpikes(buckets []TimeBucket) []Finding {
	if len(buckets) == 0 {
		return nil
	}

	var total int
	for _, b := range buckets {
		total += b.AvgResponseTime
	}
	threshold := spikeFactor * float64(total) / float64(len(buckets))

	var findings []Finding
	for _, b := range buckets {
		if float64(b.AvgResponseTime) <= threshold {
			continue
		}
		findings = append(findings, Finding{
			ID:        findingID(KindResponseTimeSpike, b.Time),
			Timestamp: b.Time,
			Type:      KindResponseTimeSpike,
			Severity:  SeverityHigh,
			Message:   fmt.Sprintf("Response time spike of %dms at %s", b.AvgResponseTime, b.Time),
		})
	}
	return findings
}

func highErrorRates(endpoints []EndpointStat, label string) []Finding {
	var findings []Finding
	for _, ep := range endpoints {
		if ep.ErrorRate <= errorRateThreshold {
			continue
		}
		severity := SeverityMedium
		if ep.ErrorRate > errorRateHigh {
			severity = SeverityHigh
		}
		findings = append(findings, Finding{
			ID:        findingID(KindHighErrorRate, ep.Endpoint),
			Timestamp: label,
			Type:      KindHighErrorRate,
			Severity:  severity,
			Message:   fmt.Sprintf("High error rate of %d%% on %s", ep.ErrorRate, ep.Endpoint),
		})
	}
	return findings
}

// latestLabel is the label of the last bucket in scan order, the window an
// endpoint finding is reported against.
func latestLabel(buckets []TimeBucket) string {
	if len(buckets) == 0 {
		return ""
	}
	return buckets[len(buckets)-1].Time
}

func findingID(kind Kind, subject string) string {
	return uuid.NewV5(uuid.NamespaceURL, string(kind)+":"+subject).String()
}
