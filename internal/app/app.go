package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/events"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/ingest"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/manufacturer"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/mqtt"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/reporting"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/scanner"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/storage"
	webserver "github.com/lcalzada-xor/bluespeak/internal/adapters/web/server"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/bluespeak/internal/config"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/auth"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/configflow"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/discovery"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/persistence"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/registry"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/speaker"
	"github.com/lcalzada-xor/bluespeak/internal/telemetry"
)

// Application holds the core components and orchestrates their lifecycle.
type Application struct {
	Config *config.Config

	Store              *storage.SQLiteAdapter
	Manufacturers      *manufacturer.Loader
	Registry           *registry.DeviceRegistry
	PersistenceManager *persistence.PersistenceManager
	Scanner            ports.Scanner
	Events             *events.Bus
	MQTT               *mqtt.Publisher

	Discovery *discovery.Service
	Speakers  *speaker.Service
	Flows     *configflow.Service

	WebServer  *webserver.Server
	GrpcServer *grpc.Server

	closers        []io.Closer
	shutdownTracer func(context.Context) error
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	if err := app.bootstrap(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	// 1. Foundation
	telemetry.InitMetrics()
	traceOut := io.Discard
	if app.Config.Debug {
		traceOut = os.Stderr
	}
	shutdown, err := telemetry.InitTracer(traceOut)
	if err != nil {
		return fmt.Errorf("tracer init: %w", err)
	}
	app.shutdownTracer = shutdown

	if err := app.initStorage(); err != nil {
		return err
	}
	app.initManufacturers()

	// 2. Registry & persistence
	app.Registry = registry.NewDeviceRegistry()
	app.restoreDevices()
	app.PersistenceManager = persistence.NewPersistenceManager(app.Store, 10000)
	app.Registry.AddObserver(app.PersistenceManager)

	if err := app.initScanner(); err != nil {
		return err
	}

	// 3. Events
	ws := websocket.NewWSManager()
	app.Events = events.NewBus(ws, events.NewLogSink(nil))
	if app.Config.MQTTBroker != "" {
		pub, err := mqtt.Dial(app.Config.MQTTBroker, app.Config.MQTTClientID, app.Config.MQTTTopicPrefix)
		if err != nil {
			// Events still reach websocket and log sinks.
			slog.Warn("MQTT disabled", "broker", app.Config.MQTTBroker, "error", err)
		} else {
			app.MQTT = pub
			app.Events.Subscribe(pub)
		}
	}

	// 4. Domain services
	opts := discovery.DefaultOptions()
	opts.ScanInterval = app.Config.ScanInterval
	opts.ScanTimeout = app.Config.ScanTimeout
	opts.MaxScanAttempts = app.Config.MaxScanAttempts
	opts.DeviceTTL = app.Config.DeviceTTL
	app.Discovery = discovery.NewService(app.Scanner, app.Registry, app.Manufacturers, app.Events, opts)
	app.Speakers = speaker.NewService(nil, app.Events, app.Config.ConnectionTimeout)
	app.Flows = configflow.NewService(app.Discovery, app.Store, app.Events, app.Config.FlowTTL)

	// 5. Servers
	tokens, err := auth.NewTokenService(app.Config.APITokenHash)
	if err != nil {
		return fmt.Errorf("api token: %w", err)
	}
	if !tokens.Enabled() {
		slog.Warn("API token not configured, mutating endpoints are unauthenticated")
	}

	app.WebServer = webserver.NewServer(app.Config.Addr, app.Discovery, app.Flows, app.Speakers, reporting.NewPDFExporter(), ws, webserver.Options{
		ScanTimeout:   app.Config.ScanTimeout,
		ScanRateLimit: app.Config.ScanRateLimit,
		Auth:          tokens,
	})
	if app.Config.GRPCPort > 0 {
		app.GrpcServer = ingest.NewGRPCServer(app.Discovery)
	}
	return nil
}

func (app *Application) initStorage() error {
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	app.Store = store
	app.closers = append(app.closers, store)
	return nil
}

// initManufacturers chains the SIG database, the JSON cache and the built-in
// table. A missing database or cache degrades lookups but never fails startup.
func (app *Application) initManufacturers() {
	static := manufacturer.NewDefaultStaticRepository()
	repos := []manufacturer.CompanyRepository{}

	companyDB, err := manufacturer.NewCompanyDatabase(app.Config.CompanyDBPath, app.Config.CompanyCacheSize, nil)
	if err != nil {
		slog.Warn("Company database unavailable, using cache and built-in table", "path", app.Config.CompanyDBPath, "error", err)
	} else {
		repos = append(repos, companyDB)
		app.closers = append(app.closers, companyDB)
	}

	cache := manufacturer.NewJSONCacheRepository(app.Config.CompanyCachePath)
	if err := cache.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Manufacturer cache unreadable", "path", cache.Path(), "error", err)
	}
	repos = append(repos, cache, static)

	app.Manufacturers = manufacturer.NewLoader(manufacturer.NewCompositeCompanyRepository(repos...), cache)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if n, err := app.Manufacturers.Reload(ctx); err != nil {
		slog.Warn("Manufacturer registry refresh failed", "error", err)
	} else {
		telemetry.RegistryCompanies.Set(float64(n))
	}
}

func (app *Application) restoreDevices() {
	devices, err := app.Store.GetAllDevices()
	if err != nil {
		slog.Warn("Could not restore devices", "error", err)
		return
	}
	for _, d := range devices {
		app.Registry.LoadDevice(d)
	}
	if len(devices) > 0 {
		slog.Info("Restored devices from storage", "count", len(devices))
	}
}

func (app *Application) initScanner() error {
	switch app.Config.Scanner {
	case "mock":
		app.Scanner = scanner.NewMockScanner("speakers", time.Now().UnixNano(), 2*time.Second)
		slog.Info("Mock mode active, advertisements are simulated")
	case "pcap":
		pcap := scanner.NewPCAPScanner(app.Config.PcapPath, app.Config.PcapLoop)
		app.Scanner = pcap
		app.closers = append(app.closers, pcap)
	case "tinygo":
		app.Scanner = scanner.NewTinyGoScanner()
	default:
		return fmt.Errorf("unknown scanner %q", app.Config.Scanner)
	}
	return nil
}

// Run starts every component and blocks until ctx is cancelled or one fails.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting bluespeak components...", "scanner", app.Scanner.Name())

	g, gctx := errgroup.WithContext(ctx)
	app.PersistenceManager.Start(gctx)

	g.Go(func() error {
		if err := app.WebServer.Run(gctx); err != nil {
			return fmt.Errorf("web server error: %w", err)
		}
		return nil
	})

	if app.GrpcServer != nil {
		g.Go(func() error {
			lis, err := net.Listen("tcp", fmt.Sprintf(":%d", app.Config.GRPCPort))
			if err != nil {
				return fmt.Errorf("grpc listen error: %w", err)
			}
			go func() {
				<-gctx.Done()
				app.GrpcServer.GracefulStop()
			}()

			slog.Info("gRPC ingest listening", "port", app.Config.GRPCPort)
			if err := app.GrpcServer.Serve(lis); err != nil {
				return fmt.Errorf("grpc server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		app.Speakers.MaintainConnections(gctx, app.Config.ReconnectInterval)
		return nil
	})

	g.Go(func() error {
		if err := app.Discovery.Run(gctx); err != nil {
			return fmt.Errorf("discovery error: %w", err)
		}
		return nil
	})

	slog.Info("bluespeak ready. Press Ctrl+C to terminate.", "addr", app.Config.Addr)

	err := g.Wait()
	if ctx.Err() != nil {
		slog.Info("Termination signal received")
	}

	// Let the persistence manager flush before storage closes.
	select {
	case <-app.PersistenceManager.Done():
	case <-time.After(5 * time.Second):
		slog.Warn("Persistence flush timed out")
	}

	app.cleanup()
	return err
}

func (app *Application) cleanup() {
	slog.Info("Cleaning up resources...")

	if app.MQTT != nil {
		app.MQTT.Close()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
	app.closers = nil

	if app.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := app.shutdownTracer(ctx); err != nil {
			slog.Warn("Tracer shutdown failed", "error", err)
		}
		app.shutdownTracer = nil
	}
}
