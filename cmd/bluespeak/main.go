package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/bcrypt"

	"github.com/lcalzada-xor/bluespeak/internal/app"
	"github.com/lcalzada-xor/bluespeak/internal/config"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/auth"
	"github.com/lcalzada-xor/bluespeak/internal/telemetry"
)

func main() {
	hashToken := flag.String("hash-token", "", "Print the bcrypt hash of the given API token and exit")

	// load config
	cfg := config.Load()

	if *hashToken != "" {
		hash, err := auth.HashToken(*hashToken, bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	// Setup Structured Logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	// Initialize Application
	application, err := app.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("bluespeak starting...", "version", telemetry.ServiceVersion)

	if err := application.Run(ctx); err != nil {
		slog.Error("Application error", "error", err)
		cancel()
		os.Exit(1)
	}
}
