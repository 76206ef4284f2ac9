package simulate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"logwatch/pkg/engine"
	"logwatch/pkg/models"
	"logwatch/pkg/source"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

func TestGenerator_Distribution(t *testing.T) {
	g := NewGenerator("http://127.0.0.1:8000", 42)

	const n = 20000
	var success, client, server int
	for i := 0; i < n; i++ {
		rec := g.Next()

		switch {
		case rec.StatusCode >= 500:
			server++
		case rec.StatusCode >= 400:
			client++
		default:
			success++
		}
		if rec.ResponseTimeMS < minLatencyMS || rec.ResponseTimeMS >= maxLatencyMS {
			t.Fatalf("response time %v out of range", rec.ResponseTimeMS)
		}
		if !slices.Contains(Endpoints, rec.Endpoint) || rec.URL != "http://127.0.0.1:8000"+rec.Endpoint {
			t.Fatalf("unexpected endpoint %q url %q", rec.Endpoint, rec.URL)
		}
		if !slices.Contains(Methods, rec.Method) {
			t.Fatalf("unexpected method %q", rec.Method)
		}
	}

	tests := []struct {
		name  string
		count int
		want  float64
	}{
		{name: "2xx", count: success, want: 0.85},
		{name: "4xx", count: client, want: 0.10},
		{name: "5xx", count: server, want: 0.05},
	}
	for _, tt := range tests {
		share := float64(tt.count) / n
		if share < tt.want-0.02 || share > tt.want+0.02 {
			t.Errorf("%s share = %.3f, want about %.2f", tt.name, share, tt.want)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	fixed := func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	a, b := NewGenerator("", 7), NewGenerator("", 7)
	a.now, b.now = fixed, fixed

	for i := 0; i < 100; i++ {
		if ra, rb := a.Next(), b.Next(); ra != rb {
			t.Fatalf("record %d differs: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestWindow_Add(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Add(models.LogRecord{StatusCode: i})
	}

	got := w.Records()
	if len(got) != 3 {
		t.Fatalf("want 3 records, got %d", len(got))
	}
	for i, want := range []int{3, 4, 5} {
		if got[i].StatusCode != want {
			t.Errorf("record %d: want status %d, got %d", i, want, got[i].StatusCode)
		}
	}

	got[0].StatusCode = 999
	if w.Records()[0].StatusCode != 3 {
		t.Error("Records must return a copy")
	}
}

func TestRun(t *testing.T) {
	w := NewWindow(10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, NewGenerator("", 1), w, 5*time.Millisecond, 4)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for w.Len() < 10 {
		select {
		case <-deadline:
			t.Fatalf("window not filled, has %d records", w.Len())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if w.Len() != 10 {
		t.Errorf("window must stay bounded, has %d records", w.Len())
	}
}

func TestRouter_ServesHTTPSource(t *testing.T) {
	w := NewWindow(500)
	g := NewGenerator("http://127.0.0.1:8000", 3)
	for i := 0; i < 500; i++ {
		w.Add(g.Next())
	}

	srv := httptest.NewServer(Router(w))
	defer srv.Close()

	records, err := source.NewHTTP(srv.URL, time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(records) != 500 {
		t.Fatalf("want 500 records, got %d", len(records))
	}

	report := engine.Analyze(records)
	if report.Summary.TotalRequests != 500 || report.View.SkippedEndpoints != 0 {
		t.Errorf("unexpected summary %+v, skipped %d", report.Summary, report.View.SkippedEndpoints)
	}
	if len(report.View.Endpoints) != len(Endpoints) {
		t.Errorf("want %d endpoints, got %d", len(Endpoints), len(report.View.Endpoints))
	}

	req := httptest.NewRequest(http.MethodPost, "/logs", nil)
	rr := httptest.NewRecorder()
	Router(w).ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("want status code %v, got %v", http.StatusMethodNotAllowed, rr.Code)
	}
}
