package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/export"
)

// ExportHandler handles inventory export
type ExportHandler struct {
	Devices  ports.DiscoveryService
	Flows    ports.ConfigFlowService
	Exporter ports.InventoryExporter
	now      func() time.Time
}

// NewExportHandler creates a new ExportHandler. exporter may be nil, which disables PDF.
func NewExportHandler(devices ports.DiscoveryService, flows ports.ConfigFlowService, exporter ports.InventoryExporter) *ExportHandler {
	return &ExportHandler{Devices: devices, Flows: flows, Exporter: exporter, now: time.Now}
}

// HandleExport exports devices as json, csv or pdf
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter, err := ParseDeviceFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	devices := h.Devices.Devices(filter)
	now := h.now()

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.ExportCSV(&buf, devices)
	case export.FormatPDF:
		if h.Exporter == nil {
			http.Error(w, "PDF export not available", http.StatusNotImplemented)
			return
		}
		var entries []domain.SpeakerEntry
		if h.Flows != nil {
			if entries, err = h.Flows.Entries(r.Context()); err != nil {
				writeError(w, err)
				return
			}
		}
		var pdf []byte
		pdf, err = h.Exporter.ExportInventory(domain.NewInventoryReport("Bluetooth Device Inventory", devices, entries, now))
		buf.Write(pdf)
	default:
		err = export.ExportJSON(&buf, devices)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(now)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
