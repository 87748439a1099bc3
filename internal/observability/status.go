package observability

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"runicorn-desktop/internal/state"
)

// StatusSource is implemented by the supervisor
type StatusSource interface {
	State() state.State
	PublishedURL() (string, bool)
}

// StatusResponse is the body of /status and /readyz
type StatusResponse struct {
	State       state.State `json:"state"`
	Description string      `json:"description"`
	URL         string      `json:"url,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// StatusHandler reports the supervisor state. It always answers 200.
func StatusHandler(source StatusSource, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, buildStatus(source), logger)
	}
}

// ReadyzHandler answers 200 while a backend URL is published and 503
// otherwise
func ReadyzHandler(source StatusSource, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := buildStatus(source)

		statusCode := http.StatusOK
		if status.URL == "" {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSONResponse(w, statusCode, status, logger)
	}
}

func buildStatus(source StatusSource) StatusResponse {
	current := source.State()
	url, _ := source.PublishedURL()
	return StatusResponse{
		State:       current,
		Description: state.GetInfo(current).Description,
		URL:         url,
		Timestamp:   time.Now(),
	}
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorw("Failed to encode status response", "error", err)
	}
}
