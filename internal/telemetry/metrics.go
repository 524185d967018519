package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AdvertisementsReceived counts raw advertisements handed to the pipeline
	AdvertisementsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluespeak",
			Name:      "advertisements_received_total",
			Help:      "Total number of raw advertisements received from scanners and agents",
		},
		[]string{"source"},
	)

	// DevicesClassified counts classification results per device type
	DevicesClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluespeak",
			Name:      "devices_classified_total",
			Help:      "Total number of classified devices by type and matching rule",
		},
		[]string{"device_type", "matched_by"},
	)

	// ScansTotal counts scan passes by outcome
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluespeak",
			Name:      "scans_total",
			Help:      "Total number of scan passes",
		},
		[]string{"scanner", "result"},
	)

	// ScanDuration observes how long a scan pass took
	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bluespeak",
			Name:      "scan_duration_seconds",
			Help:      "Duration of scan passes",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		},
		[]string{"scanner"},
	)

	// DevicesActive is the number of devices in the in-memory registry
	DevicesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bluespeak",
			Name:      "devices_active",
			Help:      "Number of devices currently tracked",
		},
	)

	// SpeakerTransitions counts link state transitions
	SpeakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bluespeak",
			Name:      "speaker_transitions_total",
			Help:      "Total number of speaker link state transitions",
		},
		[]string{"operation", "result"},
	)

	// RegistryCompanies is the size of the active manufacturer registry snapshot
	RegistryCompanies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bluespeak",
			Name:      "registry_companies",
			Help:      "Number of company identifiers in the active registry",
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(AdvertisementsReceived)
		prometheus.DefaultRegisterer.Register(DevicesClassified)
		prometheus.DefaultRegisterer.Register(ScansTotal)
		prometheus.DefaultRegisterer.Register(ScanDuration)
		prometheus.DefaultRegisterer.Register(DevicesActive)
		prometheus.DefaultRegisterer.Register(SpeakerTransitions)
		prometheus.DefaultRegisterer.Register(RegistryCompanies)
	})
}
