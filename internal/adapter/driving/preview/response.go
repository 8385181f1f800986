package preview

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Clients int    `json:"clients"`
}

// BuildRunResponse is the JSON representation of a recorded build run.
type BuildRunResponse struct {
	ID          string   `json:"id"`
	Tasks       []string `json:"tasks"`
	Status      string   `json:"status"`
	OutputCount int      `json:"output_count"`
	Error       string   `json:"error,omitempty"`
	StartedAt   string   `json:"started_at"`
	FinishedAt  string   `json:"finished_at,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

// RebuildResponse is the JSON body returned after a manual rebuild.
type RebuildResponse struct {
	Status string `json:"status"`
}

// toBuildRunResponse converts a domain BuildRun to its JSON representation.
func toBuildRunResponse(run model.BuildRun) BuildRunResponse {
	tasks := make([]string, 0, len(run.Tasks))
	for _, t := range run.Tasks {
		tasks = append(tasks, string(t))
	}

	resp := BuildRunResponse{
		ID:          run.ID,
		Tasks:       tasks,
		Status:      string(run.Status),
		OutputCount: run.OutputCount,
		Error:       run.Error,
		StartedAt:   run.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:  run.Duration().Milliseconds(),
	}
	if !run.FinishedAt.IsZero() {
		resp.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
