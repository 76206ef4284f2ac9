package models

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

var ErrPayload = errors.New("unexpected log payload")

// timestampLayouts lists the accepted timestamp forms. Python's str(datetime) output
// carries no zone and is read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// LogRecord is a single observed HTTP request.
type LogRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method"`
	URL            string    `json:"url"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	Endpoint       string    `json:"endpoint,omitempty"`
	ClientIP       string    `json:"client_ip,omitempty"`
}

func (r *LogRecord) UnmarshalJSON(b []byte) error {
	// plain drops the method set; embedded by value since go-json cannot set an
	// embedded pointer to an unexported type.
	type plain LogRecord
	var aux struct {
		plain
		Timestamp string `json:"timestamp"`
	}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	*r = LogRecord(aux.plain)
	r.Timestamp = ts

	return nil
}

// ParseTimestamp parses s using the first matching accepted layout.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// DecodeRecords decodes a JSON array of records or a single record object.
// A single object is returned as a one-element slice; null yields an empty slice.
func DecodeRecords(data []byte) ([]LogRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []LogRecord{}, nil
	}

	switch data[0] {
	case '[':
		var records []LogRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayload, err)
		}
		if records == nil {
			records = []LogRecord{}
		}
		return records, nil

	case '{':
		var rec LogRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayload, err)
		}
		return []LogRecord{rec}, nil
	}

	return nil, fmt.Errorf("%w: starts with %q", ErrPayload, data[0])
}
