package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/web/middleware"
)

// SetupRoutes builds the router. Mutating routes require the API token when one
// is configured; scans are additionally rate limited per client.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)

	auth := middleware.AuthMiddleware(s.Auth)
	protect := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	scan := protect(s.DeviceHandler.HandleScan)
	if s.scanRateLimit > 0 {
		scan = middleware.RateLimitMiddleware(middleware.NewRateLimiter(s.scanRateLimit, time.Minute))(scan)
	}

	r.HandleFunc("/healthz", s.SystemHandler.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/ws", protect(s.WSManager.HandleWebSocket)).Methods(http.MethodGet)

	// API routes live on the root router: a PathPrefix subrouter reports a
	// method mismatch as not found.
	api := func(path string) string { return "/api" + path }

	// Devices and scanning
	r.HandleFunc(api("/devices"), s.DeviceHandler.HandleList).Methods(http.MethodGet)
	r.HandleFunc(api("/devices/{address}"), s.DeviceHandler.HandleGet).Methods(http.MethodGet)
	r.Handle(api("/scan"), scan).Methods(http.MethodPost)
	r.HandleFunc(api("/scan"), s.DeviceHandler.HandleLastScan).Methods(http.MethodGet)

	// Manufacturer registry
	r.HandleFunc(api("/manufacturers/{id}"), s.DeviceHandler.HandleManufacturer).Methods(http.MethodGet)
	r.Handle(api("/manufacturers/refresh"), protect(s.DeviceHandler.HandleRefreshManufacturers)).Methods(http.MethodPost)

	// Config flow
	r.Handle(api("/flows"), protect(s.FlowHandler.HandleStart)).Methods(http.MethodPost)
	r.HandleFunc(api("/flows/{id}"), s.FlowHandler.HandleGet).Methods(http.MethodGet)
	r.Handle(api("/flows/{id}"), protect(s.FlowHandler.HandleAbort)).Methods(http.MethodDelete)
	r.Handle(api("/flows/{id}/device"), protect(s.FlowHandler.HandleSelectDevice)).Methods(http.MethodPost)
	r.Handle(api("/flows/{id}/name"), protect(s.FlowHandler.HandleSetName)).Methods(http.MethodPost)

	// Entries
	r.HandleFunc(api("/entries"), s.FlowHandler.HandleListEntries).Methods(http.MethodGet)
	r.Handle(api("/entries/{id}"), protect(s.FlowHandler.HandleRemoveEntry)).Methods(http.MethodDelete)

	// Speakers
	r.HandleFunc(api("/speakers"), s.SpeakerHandler.HandleList).Methods(http.MethodGet)
	r.HandleFunc(api("/speakers/{address}"), s.SpeakerHandler.HandleStatus).Methods(http.MethodGet)
	r.Handle(api("/speakers/{address}/{action}"), protect(s.SpeakerHandler.HandleAction)).Methods(http.MethodPost)

	// Maintenance
	r.Handle(api("/reset"), protect(s.SystemHandler.HandleReset)).Methods(http.MethodPost)
	r.HandleFunc(api("/export"), s.ExportHandler.HandleExport).Methods(http.MethodGet)

	return r
}
