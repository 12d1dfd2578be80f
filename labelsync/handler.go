package labelsync

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lewtec/labelsync/internal/domain"
	"github.com/lewtec/labelsync/internal/repository"
	"github.com/lewtec/labelsync/internal/roboflow"
	"github.com/lewtec/labelsync/internal/storage"
)

// syncFailure is the body of a sync request that produced no report
type syncFailure struct {
	Success  bool   `json:"success"`
	Uploaded int    `json:"uploaded"`
	Failed   int    `json:"failed"`
	Error    string `json:"error"`
}

// GetHTTPHandler returns the HTTP API wrapped in logging and CORS middleware
func (a *App) GetHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sync", a.handleSync)
	mux.HandleFunc("GET /versions", a.handleVersions)
	mux.HandleFunc("GET /versions/{version}/datasets", a.handleDatasets)
	mux.HandleFunc("GET /versions/{version}/datasets/{dataset}/stats", a.handleStats)
	mux.HandleFunc("GET /projects", a.handleProjects)
	mux.HandleFunc("GET /runs", a.handleRuns)
	mux.HandleFunc("GET /runs/{id}", a.handleRun)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /{$}", a.handleIndex)

	var handler http.Handler = mux
	var origins []string
	if a.Config != nil {
		origins = a.Config.Server.CORSOrigins
	}
	handler = CORS(origins, handler)
	handler = HTTPLogger(a.logger(), handler)
	return handler
}

func (a *App) handleSync(w http.ResponseWriter, r *http.Request) {
	var req domain.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, syncFailure{Error: "invalid request body: " + err.Error()})
		return
	}

	report, err := a.Sync(r.Context(), req, func(done, total int) {
		a.logger().Debug("sync progress", "done", done, "total", total)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		} else {
			a.logger().Error("sync failed", "version", req.Version, "dataset", req.Dataset, "error", err)
		}
		writeJSON(w, status, syncFailure{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *App) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := a.Store.ListVersions(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(versions))
}

func (a *App) handleDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := a.Store.ListDatasets(r.Context(), r.PathValue("version"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(datasets))
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Store.Stats(r.Context(), r.PathValue("version"), r.PathValue("dataset"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *App) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.FilterProjects(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(projects))
}

func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := repository.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := a.Runs.List(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(runs))
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	database := "disabled"
	if a.Database != nil {
		database = "ok"
		if err := a.Database.PingContext(r.Context()); err != nil {
			database = "error: " + err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  database,
	})
}

// writeError maps service errors to a status code and an {"error"} body
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, storage.ErrObjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidKey):
		status = http.StatusBadRequest
	case errors.Is(err, roboflow.ErrUnauthorized), errors.Is(err, roboflow.ErrNoAPIKey):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		a.logger().Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// nonNil keeps empty listings encoded as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
