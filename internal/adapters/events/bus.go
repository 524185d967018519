// Package events fans domain events out to websocket, MQTT and log sinks.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// Bus is a synchronous fan-out publisher. Sinks must not block.
type Bus struct {
	mu    sync.RWMutex
	sinks []ports.EventPublisher
}

// NewBus creates a bus over the given sinks; nil sinks are skipped.
func NewBus(sinks ...ports.EventPublisher) *Bus {
	b := &Bus{}
	for _, s := range sinks {
		b.Subscribe(s)
	}
	return b
}

// Subscribe adds a sink.
func (b *Bus) Subscribe(sink ports.EventPublisher) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish delivers the event to every sink in subscription order.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	sinks := make([]ports.EventPublisher, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		s.Publish(ctx, event)
	}
}

// Len returns the number of sinks.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sinks)
}

// LogSink writes every event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink logs to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

func (l *LogSink) Publish(ctx context.Context, event domain.Event) {
	level := slog.LevelInfo
	switch event.Type {
	case domain.EventDeviceDiscovered:
		level = slog.LevelDebug
	case domain.EventScanFailed:
		level = slog.LevelWarn
	}
	l.Logger.Log(ctx, level, "Event", "type", event.Type, "timestamp", event.Timestamp)
}

// PublisherFunc adapts a function to ports.EventPublisher.
type PublisherFunc func(ctx context.Context, event domain.Event)

func (f PublisherFunc) Publish(ctx context.Context, event domain.Event) { f(ctx, event) }
