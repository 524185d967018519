package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"github.com/lcalzada-xor/bluespeak/internal/telemetry"
)

// Options configures the HTTP surface.
type Options struct {
	ScanTimeout   time.Duration
	ScanRateLimit int // scans per minute per client, 0 disables
	Auth          middleware.TokenValidator
	Version       string
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr      string
	WSManager *websocket.WSManager
	Auth      middleware.TokenValidator

	DeviceHandler  *handlers.DeviceHandler
	FlowHandler    *handlers.FlowHandler
	SpeakerHandler *handlers.SpeakerHandler
	ExportHandler  *handlers.ExportHandler
	SystemHandler  *handlers.SystemHandler

	scanRateLimit int
	srv           *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, devices ports.DiscoveryService, flows ports.ConfigFlowService, speakers ports.SpeakerService, exporter ports.InventoryExporter, ws *websocket.WSManager, opts Options) *Server {
	if ws == nil {
		ws = websocket.NewWSManager()
	}
	if opts.Version == "" {
		opts.Version = telemetry.ServiceVersion
	}
	return &Server{
		Addr:      addr,
		WSManager: ws,
		Auth:      opts.Auth,

		DeviceHandler:  handlers.NewDeviceHandler(devices, opts.ScanTimeout),
		FlowHandler:    handlers.NewFlowHandler(flows, speakers),
		SpeakerHandler: handlers.NewSpeakerHandler(speakers),
		ExportHandler:  handlers.NewExportHandler(devices, flows, exporter),
		SystemHandler:  handlers.NewSystemHandler(devices, flows, speakers, opts.Version),

		scanRateLimit: opts.ScanRateLimit,
	}
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start(ctx)

	handler := SetupRoutes(s)
	instrumentedHandler := otelhttp.NewHandler(handler, telemetry.ServiceName+"-http")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumentedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Web server shutdown error", "error", err)
		}
	}()

	slog.Info("Web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
