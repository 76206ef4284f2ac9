package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"logwatch/pkg/models"
)

const logsPath = "/logs"

// HTTPSource reads records from GET <baseURL>/logs.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTP(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    strings.TrimRight(baseURL, "/") + logsPath,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]models.LogRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, errorMessage(body))
	}

	records, err := models.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return records, nil
}

// errorMessage extracts {"error": "..."} from a failed response, falling back to
// the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
