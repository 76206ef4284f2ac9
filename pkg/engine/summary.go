package engine

import "logwatch/pkg/models"

// Summarize computes headline figures straight from the records, using the same
// success and rounding rules as the per-bucket series.
func Summarize(records []models.LogRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	var (
		successes int
		totalMS   float64
	)
	for _, rec := range records {
		if !isError(rec.StatusCode) {
			successes++
		}
		totalMS += responseTime(rec)
	}

	return Summary{
		TotalRequests:   len(records),
		SuccessRate:     percentOneDecimal(successes, len(records)),
		AvgResponseTime: average(totalMS, len(records)),
	}
}
