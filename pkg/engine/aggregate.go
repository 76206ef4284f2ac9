package engine

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"logwatch/pkg/models"
)

// Response time bands, lower bound inclusive. The last band has no upper bound.
var responseTimeBands = []struct {
	label string
	upper float64
}{
	{"<100ms", 100},
	{"100-300ms", 300},
	{"300-500ms", 500},
	{"500-1000ms", 1000},
	{">1000ms", math.Inf(1)},
}

type minuteKey struct {
	hour, minute int
}

func (k minuteKey) String() string {
	return fmt.Sprintf("%02d:%02d", k.hour, k.minute)
}

type (
	endpointKey string
	statusKey   int
	methodKey   string
)

type trafficAcc struct {
	requests  int
	successes int
	totalMS   float64
}

// errorAcc counts error responses and the longest run of them in scan order.
type errorAcc struct {
	requests  int
	errors    int
	errRun    int
	maxErrRun int
}

func (a *errorAcc) add(failed bool) {
	a.requests++
	if !failed {
		a.errRun = 0
		return
	}
	a.errors++
	a.errRun++
	a.maxErrRun = max(a.maxErrRun, a.errRun)
}

type endpointAcc struct {
	errorAcc
	totalMS float64
}

// grouping keeps accumulators keyed by K in order of first appearance.
type grouping[K comparable, A any] struct {
	order []K
	accs  map[K]*A
}

func newGrouping[K comparable, A any]() *grouping[K, A] {
	return &grouping[K, A]{accs: make(map[K]*A)}
}

func (g *grouping[K, A]) get(key K) *A {
	acc, ok := g.accs[key]
	if !ok {
		acc = new(A)
		g.accs[key] = acc
		g.order = append(g.order, key)
	}
	return acc
}

// Aggregate groups records by minute, status code, endpoint path, method and
// response time band. Records are processed in the given order. It never fails:
// a record whose URL has no usable path is left out of the endpoint grouping only.
func Aggregate(records []models.LogRecord) AggregateView {
	view := AggregateView{
		TimeSeries:    []TimeBucket{},
		StatusCodes:   []StatusCodeCount{},
		Endpoints:     []EndpointStat{},
		Methods:       []MethodCount{},
		ResponseTimes: []ResponseTimeBand{},
	}
	if len(records) == 0 {
		return view
	}

	var (
		minutes   = newGrouping[minuteKey, trafficAcc]()
		statuses  = newGrouping[statusKey, int]()
		endpoints = newGrouping[endpointKey, endpointAcc]()
		methods   = newGrouping[methodKey, errorAcc]()
		bands     = make([]int, len(responseTimeBands))
	)

	for _, rec := range records {
		ms := responseTime(rec)
		failed := isError(rec.StatusCode)

		ts := rec.Timestamp.UTC()
		bucket := minutes.get(minuteKey{hour: ts.Hour(), minute: ts.Minute()})
		bucket.requests++
		bucket.totalMS += ms
		if !failed {
			bucket.successes++
		}

		*statuses.get(statusKey(rec.StatusCode))++
		methods.get(methodKey(rec.Method)).add(failed)
		bands[bandIndex(ms)]++

		path, ok := endpointPath(rec.URL)
		if !ok {
			view.SkippedEndpoints++
			continue
		}
		ep := endpoints.get(endpointKey(path))
		ep.add(failed)
		ep.totalMS += ms
	}

	for _, key := range minutes.order {
		acc := minutes.accs[key]
		view.TimeSeries = append(view.TimeSeries, TimeBucket{
			Time:            key.String(),
			Requests:        acc.requests,
			SuccessRate:     percentOneDecimal(acc.successes, acc.requests),
			AvgResponseTime: average(acc.totalMS, acc.requests),
		})
	}

	for _, key := range statuses.order {
		view.StatusCodes = append(view.StatusCodes, StatusCodeCount{Code: int(key), Count: *statuses.accs[key]})
	}

	for _, key := range endpoints.order {
		acc := endpoints.accs[key]
		view.Endpoints = append(view.Endpoints, EndpointStat{
			Endpoint:             string(key),
			Requests:             acc.requests,
			AvgResponseTime:      average(acc.totalMS, acc.requests),
			ErrorRate:            percentRounded(acc.errors, acc.requests),
			MaxConsecutiveErrors: acc.maxErrRun,
		})
	}

	for _, key := range methods.order {
		acc := methods.accs[key]
		view.Methods = append(view.Methods, MethodCount{
			Method:               string(key),
			Count:                acc.requests,
			ErrorRate:            percentRounded(acc.errors, acc.requests),
			MaxConsecutiveErrors: acc.maxErrRun,
		})
	}

	for i, band := range responseTimeBands {
		view.ResponseTimes = append(view.ResponseTimes, ResponseTimeBand{Range: band.label, Count: bands[i]})
	}

	return view
}

// endpointPath returns the path of an absolute or path-qualified URL with query and
// host removed. An absolute URL without a path maps to "/".
func endpointPath(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Opaque != "" {
		return "", false
	}

	path := u.EscapedPath()
	switch {
	case u.Host != "" && path == "":
		return "/", true
	case u.Host == "" && (u.Scheme != "" || !strings.HasPrefix(path, "/")):
		return "", false
	}

	return path, true
}

func bandIndex(ms float64) int {
	for i, band := range responseTimeBands {
		if ms < band.upper {
			return i
		}
	}
	return len(responseTimeBands) - 1
}

// responseTime treats missing or invalid values as zero.
func responseTime(rec models.LogRecord) float64 {
	ms := rec.ResponseTimeMS
	if ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0
	}
	return ms
}

func isError(status int) bool {
	return status >= 400
}

func average(total float64, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(total / float64(n)))
}

func percentOneDecimal(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func percentRounded(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
