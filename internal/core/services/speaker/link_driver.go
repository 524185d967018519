package speaker

import (
	"context"
	"log/slog"
	"time"
)

// SimulatedLinkDriver stands in for a real Bluetooth stack: every operation
// succeeds after an optional delay unless the context ends first.
type SimulatedLinkDriver struct {
	Latency time.Duration
}

// NewSimulatedLinkDriver creates a driver that waits latency per call.
func NewSimulatedLinkDriver(latency time.Duration) *SimulatedLinkDriver {
	return &SimulatedLinkDriver{Latency: latency}
}

func (d *SimulatedLinkDriver) Pair(ctx context.Context, address string) error {
	return d.simulate(ctx, "pair", address)
}

func (d *SimulatedLinkDriver) Connect(ctx context.Context, address string) error {
	return d.simulate(ctx, "connect", address)
}

func (d *SimulatedLinkDriver) Disconnect(ctx context.Context, address string) error {
	return d.simulate(ctx, "disconnect", address)
}

func (d *SimulatedLinkDriver) simulate(ctx context.Context, op, address string) error {
	if d.Latency > 0 {
		timer := time.NewTimer(d.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	slog.Info("Simulated link operation", "op", op, "address", address)
	return nil
}
