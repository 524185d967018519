package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/configflow"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/discovery"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/speaker"
)

// maxBodyBytes limits request bodies to 1MB
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, configflow.ErrFlowNotFound),
		errors.Is(err, configflow.ErrDeviceNotFound),
		errors.Is(err, configflow.ErrNoDevicesFound),
		errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, configflow.ErrAlreadyConfigured),
		errors.Is(err, configflow.ErrWrongStep),
		errors.Is(err, discovery.ErrScanInProgress),
		errors.Is(err, speaker.ErrInvalidTransition),
		errors.Is(err, speaker.ErrOperationInProgress):
		return http.StatusConflict
	case errors.Is(err, configflow.ErrInvalidName),
		errors.Is(err, speaker.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, discovery.ErrNoScanner):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// reasonFor gives a stable machine-readable reason for flow aborts.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, configflow.ErrNoDevicesFound):
		return "no_devices_found"
	case errors.Is(err, configflow.ErrAlreadyConfigured):
		return "already_configured"
	case errors.Is(err, configflow.ErrDeviceNotFound):
		return "device_not_found"
	case errors.Is(err, configflow.ErrInvalidName):
		return "invalid_name"
	default:
		return ""
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	body := map[string]string{"error": err.Error()}
	if reason := reasonFor(err); reason != "" {
		body["reason"] = reason
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "no route for " + r.URL.Path})
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": r.Method + " not allowed on " + r.URL.Path})
}
