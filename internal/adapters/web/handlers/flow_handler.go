package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// FlowHandler handles the speaker config flow and configured entries
type FlowHandler struct {
	Flows    ports.ConfigFlowService
	Speakers ports.SpeakerService
}

// NewFlowHandler creates a new FlowHandler. speakers may be nil.
func NewFlowHandler(flows ports.ConfigFlowService, speakers ports.SpeakerService) *FlowHandler {
	return &FlowHandler{Flows: flows, Speakers: speakers}
}

// HandleStart opens a new flow at the device selection step
func (h *FlowHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	flow, err := h.Flows.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, flow)
}

// HandleGet returns a live flow
func (h *FlowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	flow, err := h.Flows.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// HandleSelectDevice submits the user step
func (h *FlowHandler) HandleSelectDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}

	flow, err := h.Flows.SelectDevice(r.Context(), mux.Vars(r)["id"], req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// HandleSetName submits the name step and creates the entry
func (h *FlowHandler) HandleSetName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	flow, err := h.Flows.SetName(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, flow)
}

// HandleAbort discards a flow
func (h *FlowHandler) HandleAbort(w http.ResponseWriter, r *http.Request) {
	if err := h.Flows.Abort(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListEntries returns configured speakers
func (h *FlowHandler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Flows.Entries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.SpeakerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// HandleRemoveEntry deletes a configured speaker and forgets its link state
func (h *FlowHandler) HandleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Flows.RemoveEntry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Speakers != nil {
		h.Speakers.Forget(entry.Address)
	}
	writeJSON(w, http.StatusOK, entry)
}
