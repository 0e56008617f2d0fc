package experiment

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type progressEntry struct {
	Workload  string  `json:"workload"`
	Config    string  `json:"best_config"`
	MissRate  float64 `json:"best_miss_rate"`
	Iteration int     `json:"found_at"`
}

// NewRouter serves /metrics and a JSON progress view under /api.
func NewRouter(t *Telemetry) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", t.Handler())
	r.HandleFunc("/api/progress", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, progress(t, ""))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/progress/{workload}", func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)["workload"]
		entries := progress(t, name)
		if len(entries) == 0 {
			http.Error(w, "unknown workload "+name, http.StatusNotFound)
			return
		}
		writeJSON(w, entries[0])
	}).Methods(http.MethodGet)
	return r
}

func progress(t *Telemetry, only string) []progressEntry {
	entries := []progressEntry{}
	for _, rec := range t.Best() {
		if only != "" && rec.Workload != only {
			continue
		}
		entries = append(entries, progressEntry{
			Workload:  rec.Workload,
			Config:    rec.Config.String(),
			MissRate:  rec.MissRate,
			Iteration: rec.Iteration,
		})
	}
	return entries
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("writing progress response: %v", err)
	}
}

// Serve starts the metrics server on addr in the background. Listen errors
// other than a clean shutdown are logged.
func Serve(addr string, t *Telemetry) *http.Server {
	srv := &http.Server{Addr: addr, Handler: NewRouter(t)}
	go func() {
		logrus.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}
