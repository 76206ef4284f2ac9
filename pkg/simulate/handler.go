package simulate

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Router serves the window as a JSON array on GET /logs.
func Router(w *Window) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/logs", logsHandler(w)).Methods(http.MethodGet)
	return r
}

func logsHandler(win *Window) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		records := win.Records()
		if err := json.NewEncoder(w).Encode(records); err != nil {
			log.Errorf("[simulate] failed to encode %d records: %v", len(records), err)
			return
		}
		log.Debugf("[simulate] served %d records to %v", len(records), r.RemoteAddr)
	}
}
