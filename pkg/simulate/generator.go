// Package simulate produces synthetic access-log records for local development and
// serves them the way the analyzer's HTTP source expects.
package simulate

import (
	"context"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"logwatch/pkg/models"
)

var (
	Endpoints = []string{"/submit", "/update", "/delete", "/fetch", "/authenticate"}
	Methods   = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

	successCodes     = []int{200, 201, 202}
	clientErrorCodes = []int{400, 401, 403, 404}
	serverErrorCodes = []int{500, 502, 503}
)

const (
	successShare     = 0.85
	clientErrorShare = 0.10

	minLatencyMS = 50
	maxLatencyMS = 2000
)

// Generator creates random records: 85% 2xx, 10% 4xx and 5% 5xx, with a response
// time uniform in [50, 2000) ms.
type Generator struct {
	baseURL string
	rnd     *rand.Rand
	now     func() time.Time
}

func NewGenerator(baseURL string, seed uint64) *Generator {
	return &Generator{
		baseURL: baseURL,
		rnd:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:     time.Now,
	}
}

func (g *Generator) Next() models.LogRecord {
	path := Endpoints[g.rnd.IntN(len(Endpoints))]
	latency := minLatencyMS + g.rnd.Float64()*(maxLatencyMS-minLatencyMS)

	return models.LogRecord{
		Timestamp:      g.now().UTC(),
		Method:         Methods[g.rnd.IntN(len(Methods))],
		URL:            g.baseURL + path,
		StatusCode:     g.status(),
		ResponseTimeMS: float64(int(latency*100)) / 100,
		Endpoint:       path,
	}
}

func (g *Generator) status() int {
	var codes []int
	switch roll := g.rnd.Float64(); {
	case roll < successShare:
		codes = successCodes
	case roll < successShare+clientErrorShare:
		codes = clientErrorCodes
	default:
		codes = serverErrorCodes
	}
	return codes[g.rnd.IntN(len(codes))]
}

// Window keeps the most recent records up to a fixed size.
type Window struct {
	mu      sync.RWMutex
	size    int
	records []models.LogRecord
}

func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, records: make([]models.LogRecord, 0, size)}
}

func (w *Window) Add(records ...models.LogRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = append(w.records, records...)
	if over := len(w.records) - w.size; over > 0 {
		w.records = append(w.records[:0], w.records[over:]...)
	}
}

// Records returns a copy of the window in insertion order.
func (w *Window) Records() []models.LogRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]models.LogRecord, len(w.records))
	copy(out, w.records)
	return out
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.records)
}

// Run adds perTick generated records to w on every tick until ctx is done.
func Run(ctx context.Context, g *Generator, w *Window, every time.Duration, perTick int) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infof("[simulate] generator stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			batch := make([]models.LogRecord, 0, perTick)
			for i := 0; i < perTick; i++ {
				batch = append(batch, g.Next())
			}
			w.Add(batch...)
			log.Debugf("[simulate] added %d records, window holds %d", perTick, w.Len())
		}
	}
}
