package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	json "github.com/goccy/go-json"

	"logwatch/pkg/models"
)

// logEntry is the document shape indexed by the log keeper service.
type logEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	Service    string    `json:"service"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source logEntry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ElasticSource reads the most recent documents of an Elasticsearch index.
type ElasticSource struct {
	es    *elasticsearch.Client
	index string
	size  int
}

func NewElastic(cfg elasticsearch.Config, index string, size int) (*ElasticSource, error) {
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	if size <= 0 {
		size = 1000
	}
	return &ElasticSource{es: es, index: index, size: size}, nil
}

// Fetch returns up to size latest entries in chronological order.
func (s *ElasticSource) Fetch(ctx context.Context) ([]models.LogRecord, error) {
	query := fmt.Sprintf(`{"size":%d,"sort":[{"timestamp":{"order":"desc"}}],"query":{"match_all":{}}}`, s.size)

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, res.Status())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	hits := sr.Hits.Hits
	records := make([]models.LogRecord, len(hits))
	for i, hit := range hits {
		records[len(hits)-1-i] = hit.Source.record()
	}

	return records, nil
}

func (e logEntry) record() models.LogRecord {
	return models.LogRecord{
		Timestamp:      e.Timestamp.UTC(),
		Method:         e.Method,
		URL:            e.Path,
		StatusCode:     e.StatusCode,
		ResponseTimeMS: e.Duration * 1000,
		Endpoint:       e.Path,
		ClientIP:       e.IP,
	}
}
