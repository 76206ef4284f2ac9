package models

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"RFC3339 UTC", "2025-03-14T09:26:53.589Z", want, false},
		{"RFC3339 offset", "2025-03-14T11:26:53.589+02:00", want, false},
		{"python str(datetime)", "2025-03-14 09:26:53.589000", want, false},
		{"python isoformat", "2025-03-14T09:26:53.589", want, false},
		{"no fraction", "2025-03-14 09:26:53", want.Truncate(time.Second), false},
		{"garbage", "yesterday", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeRecords_Array(t *testing.T) {
	data := []byte(`[
		{"timestamp":"2025-03-14 09:26:53.589000","method":"POST","endpoint":"/submit",
		 "url":"http://127.0.0.1:8000/submit","status_code":201,"response_time_ms":412.77},
		{"timestamp":"2025-03-14T09:27:01Z","method":"GET","url":"/fetch?id=3","status_code":404}
	]`)

	records, err := DecodeRecords(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Method != "POST" || first.StatusCode != 201 || first.ResponseTimeMS != 412.77 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.Endpoint != "/submit" {
		t.Errorf("want endpoint /submit, got %q", first.Endpoint)
	}
	if records[1].ResponseTimeMS != 0 {
		t.Errorf("missing response_time_ms must decode as 0, got %v", records[1].ResponseTimeMS)
	}
	if records[1].Timestamp.Minute() != 27 {
		t.Errorf("unexpected timestamp %v", records[1].Timestamp)
	}
}

func TestDecodeRecords_SingleObject(t *testing.T) {
	data := []byte(`{"timestamp":"2025-03-14T09:27:01Z","method":"GET","url":"/a","status_code":200,"response_time_ms":5}`)

	records, err := DecodeRecords(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].URL != "/a" {
		t.Errorf("want one record for /a, got %+v", records)
	}
}

func TestDecodeRecords_Empty(t *testing.T) {
	for _, in := range []string{"", "  ", "null", "[]"} {
		records, err := DecodeRecords([]byte(in))
		if err != nil {
			t.Errorf("DecodeRecords(%q) unexpected error: %v", in, err)
		}
		if records == nil || len(records) != 0 {
			t.Errorf("DecodeRecords(%q) = %v, want empty non-nil slice", in, records)
		}
	}
}

func TestDecodeRecords_Invalid(t *testing.T) {
	tests := []string{
		`"just a string"`,
		`[{"timestamp":"not a time"}]`,
		`{"status_code":"oops"`,
	}
	for _, in := range tests {
		if _, err := DecodeRecords([]byte(in)); !errors.Is(err, ErrPayload) {
			t.Errorf("DecodeRecords(%q) error = %v, want ErrPayload", in, err)
		}
	}
}

func TestLogRecord_UnmarshalJSON(t *testing.T) {
	// Extra fields written by the FastAPI producer are ignored.
	data := []byte(`{"timestamp":"2025-03-14 09:26:53.589000","method":"GET","endpoint":"/fetch",
		"url":"http://127.0.0.1:8000/fetch","status_code":503,"response_time_ms":12.5,
		"client_ip":"10.0.0.7","headers":{"accept":"*/*"},"response":{"error":"Service Unavailable"}}`)

	var rec LogRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := LogRecord{
		Timestamp:      time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC),
		Method:         "GET",
		URL:            "http://127.0.0.1:8000/fetch",
		StatusCode:     503,
		ResponseTimeMS: 12.5,
		Endpoint:       "/fetch",
		ClientIP:       "10.0.0.7",
	}
	if rec != want {
		t.Errorf("got %+v, want %+v", rec, want)
	}

	roundTrip, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var again LogRecord
	if err := json.Unmarshal(roundTrip, &again); err != nil {
		t.Fatalf("unexpected error decoding %s: %v", roundTrip, err)
	}
	if again != want {
		t.Errorf("got %+v after re-decoding, want %+v", again, want)
	}
}
