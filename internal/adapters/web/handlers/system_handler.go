package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// SystemHandler handles health and reset
type SystemHandler struct {
	Devices  ports.DiscoveryService
	Flows    ports.ConfigFlowService
	Speakers ports.SpeakerService
	Version  string
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(devices ports.DiscoveryService, flows ports.ConfigFlowService, speakers ports.SpeakerService, version string) *SystemHandler {
	return &SystemHandler{Devices: devices, Flows: flows, Speakers: speakers, Version: version}
}

// HandleHealth reports readiness plus device and entry counts
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "initialized",
		"version": h.Version,
		"devices": h.Devices.DeviceCount(),
	}
	if h.Flows != nil {
		entries, err := h.Flows.Entries(r.Context())
		if err != nil {
			slog.Warn("Health check could not list entries", "error", err)
			body["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["entries"] = len(entries)
	}
	if h.Speakers != nil {
		body["speakers"] = len(h.Speakers.List())
	}
	if last, ok := h.Devices.LastSummary(); ok {
		body["last_scan"] = last.FinishedAt
	}
	writeJSON(w, http.StatusOK, body)
}

// HandleReset clears the device registry and speaker states
func (h *SystemHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.Devices.Reset()
	if h.Speakers != nil {
		h.Speakers.Reset()
	}
	slog.Info("Bluetooth state reset", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
