package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// MaxScanTimeout caps the timeout a client may request.
const MaxScanTimeout = 60 * time.Second

// DeviceHandler handles device listing, scanning and manufacturer lookups
type DeviceHandler struct {
	Service     ports.DiscoveryService
	ScanTimeout time.Duration
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(service ports.DiscoveryService, scanTimeout time.Duration) *DeviceHandler {
	if scanTimeout <= 0 {
		scanTimeout = 10 * time.Second
	}
	return &DeviceHandler{Service: service, ScanTimeout: scanTimeout}
}

// ParseDeviceFilter reads type, min_rssi and audio query parameters.
func ParseDeviceFilter(r *http.Request) (domain.DeviceFilter, error) {
	q := r.URL.Query()
	var f domain.DeviceFilter
	if t := q.Get("type"); t != "" {
		f.Type = domain.DeviceType(t)
		if !f.Type.IsValid() {
			return f, errBadParam("type")
		}
	}
	if v := q.Get("min_rssi"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errBadParam("min_rssi")
		}
		f.MinRSSI = &n
	}
	if v := q.Get("audio"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errBadParam("audio")
		}
		f.AudioOnly = b
	}
	return f, nil
}

type paramError string

func (e paramError) Error() string { return "invalid query parameter: " + string(e) }

func errBadParam(name string) error { return paramError(name) }

// HandleList returns discovered devices
func (h *DeviceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseDeviceFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	devices := h.Service.Devices(filter)
	if devices == nil {
		devices = []domain.SeenDevice{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(devices),
		"devices": devices,
	})
}

// HandleGet returns one device by address
func (h *DeviceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	address := domain.NormalizeAddress(mux.Vars(r)["address"])
	device, ok := h.Service.Device(address)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// ParseScanTimeout accepts a Go duration ("5s") or whole seconds ("5").
func ParseScanTimeout(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		secs, convErr := strconv.Atoi(strings.TrimSpace(v))
		if convErr != nil {
			return 0, errBadParam("timeout")
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 || d > MaxScanTimeout {
		return 0, errBadParam("timeout")
	}
	return d, nil
}

// HandleScan runs one scan pass and returns its summary
func (h *DeviceHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	timeout, err := ParseScanTimeout(r.URL.Query().Get("timeout"), h.ScanTimeout)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.Service.Scan(r.Context(), timeout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleLastScan returns the summary of the last successful scan
func (h *DeviceHandler) HandleLastScan(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.Service.LastSummary()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scan completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ParseCompanyID accepts decimal ("76") or hex ("0x004C") company identifiers.
func ParseCompanyID(s string) (uint16, error) {
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, errBadParam("id")
	}
	return uint16(v), nil
}

// HandleManufacturer looks up a company identifier
func (h *DeviceHandler) HandleManufacturer(w http.ResponseWriter, r *http.Request) {
	id, err := ParseCompanyID(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, ok := h.Service.LookupManufacturer(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"id": id, "error": "unknown company identifier"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "name": name})
}

// HandleRefreshManufacturers reloads the manufacturer registry
func (h *DeviceHandler) HandleRefreshManufacturers(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.RefreshRegistry(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "refreshed", "companies": n})
}
