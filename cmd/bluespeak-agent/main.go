package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/ingest"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/scanner"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

func main() {
	serverAddr := flag.String("server", "localhost:9000", "bluespeak gRPC ingest address")
	name := flag.String("name", "", "Agent name reported to the server (default: hostname)")
	backend := flag.String("scanner", "tinygo", "Scanner backend: tinygo, pcap or mock")
	pcapPath := flag.String("pcap", "", "Replay BLE advertisements from a pcap file")
	interval := flag.Duration("interval", 15*time.Second, "Time between scan passes")
	timeout := flag.Duration("timeout", 10*time.Second, "Length of one scan pass")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if *name == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "agent"
		}
		*name = host
	}
	if *pcapPath != "" {
		*backend = "pcap"
	}

	var sc ports.Scanner
	switch *backend {
	case "tinygo":
		sc = scanner.NewTinyGoScanner()
	case "pcap":
		if *pcapPath == "" {
			slog.Error("scanner pcap requires -pcap")
			os.Exit(2)
		}
		p := scanner.NewPCAPScanner(*pcapPath, true)
		defer p.Close()
		sc = p
	case "mock":
		sc = scanner.NewMockScanner("crowded", time.Now().UnixNano(), time.Second)
	default:
		slog.Error("Unknown scanner", "scanner", *backend)
		os.Exit(2)
	}

	// 1. Connect to gRPC Server
	client, err := ingest.Dial(*serverAddr, *name)
	if err != nil {
		slog.Error("Could not connect", "server", *serverAddr, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("Agent started", "server", *serverAddr, "agent", *name, "scanner", sc.Name())

	// 2. Scan and report until interrupted
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		report(ctx, sc, client, *timeout)
		select {
		case <-ctx.Done():
			slog.Info("Agent stopping")
			return
		case <-ticker.C:
		}
	}
}

func report(ctx context.Context, sc ports.Scanner, client *ingest.Client, timeout time.Duration) {
	raws, err := sc.Scan(ctx, timeout)
	if err != nil && ctx.Err() == nil {
		slog.Warn("Scan failed", "scanner", sc.Name(), "error", err)
	}
	if len(raws) == 0 || ctx.Err() != nil {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	accepted, fresh, err := client.Report(rctx, raws)
	if err != nil {
		slog.Warn("Report failed", "advertisements", len(raws), "error", err)
		return
	}
	slog.Info("Batch reported", "sent", len(raws), "accepted", accepted, "new", fresh)
}
