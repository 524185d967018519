package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// SpeakerHandler handles speaker link and playback operations
type SpeakerHandler struct {
	Service ports.SpeakerService
}

// NewSpeakerHandler creates a new SpeakerHandler
func NewSpeakerHandler(service ports.SpeakerService) *SpeakerHandler {
	return &SpeakerHandler{Service: service}
}

type speakerAction func(ctx context.Context, address string) (domain.SpeakerStatus, error)

func (h *SpeakerHandler) action(name string) (speakerAction, bool) {
	switch name {
	case "pair":
		return h.Service.Pair, true
	case "connect":
		return h.Service.Connect, true
	case "disconnect":
		return h.Service.Disconnect, true
	case "reconnect":
		return h.Service.Reconnect, true
	case "turn_on":
		return h.Service.TurnOn, true
	case "turn_off":
		return h.Service.TurnOff, true
	default:
		return nil, false
	}
}

func speakerAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := domain.NormalizeAddress(mux.Vars(r)["address"])
	if !domain.IsValidMAC(address) {
		http.Error(w, "Invalid speaker address", http.StatusBadRequest)
		return "", false
	}
	return address, true
}

// HandleList returns every tracked speaker
func (h *SpeakerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"speakers": h.Service.List()})
}

// HandleStatus returns one speaker's link status
func (h *SpeakerHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	address, ok := speakerAddress(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Service.Status(address))
}

// HandleAction runs pair, connect, disconnect, reconnect, turn_on or turn_off
func (h *SpeakerHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	address, ok := speakerAddress(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["action"]
	act, ok := h.action(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action: " + name})
		return
	}

	status, err := act(r.Context(), address)
	if err != nil {
		code := statusFor(err)
		writeJSON(w, code, map[string]interface{}{"error": err.Error(), "status": status})
		return
	}
	writeJSON(w, http.StatusOK, status)
}
