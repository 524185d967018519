package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "BLUESPEAK_"

// Config holds all application configuration.
type Config struct {
	Addr     string
	GRPCPort int
	Debug    bool

	DBPath           string
	CompanyDBPath    string
	CompanyCachePath string
	CompanyCacheSize int

	Scanner           string // tinygo, pcap or mock
	MockMode          bool
	PcapPath          string
	PcapLoop          bool
	ScanInterval      time.Duration
	ScanTimeout       time.Duration
	MaxScanAttempts   int
	DeviceTTL         time.Duration
	ReconnectInterval time.Duration
	ConnectionTimeout time.Duration
	FlowTTL           time.Duration

	MQTTBroker      string
	MQTTTopicPrefix string
	MQTTClientID    string

	APITokenHash string
	ScanRateLimit int // scans per minute per client IP
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// Parse is Load over an explicit flag set and argument list.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	dataDir := getDefaultDataDir()

	// Defaults and Environment Variables
	cfg.Addr = getEnv("ADDR", ":8080")
	cfg.GRPCPort = getEnvInt("GRPC", 9000)
	cfg.Debug = getEnvBool("DEBUG", false)
	cfg.DBPath = getEnv("DB", filepath.Join(dataDir, "bluespeak.db"))
	cfg.CompanyDBPath = getEnv("COMPANY_DB", filepath.Join(dataDir, "company_ids.db"))
	cfg.CompanyCachePath = getEnv("COMPANY_CACHE", filepath.Join(dataDir, "company_ids.json"))
	cfg.CompanyCacheSize = getEnvInt("COMPANY_CACHE_SIZE", 1000)
	cfg.Scanner = getEnv("SCANNER", "tinygo")
	cfg.MockMode = getEnvBool("MOCK", false)
	cfg.PcapPath = getEnv("PCAP", "")
	cfg.PcapLoop = getEnvBool("PCAP_LOOP", false)
	cfg.ScanInterval = getEnvDuration("SCAN_INTERVAL", 15*time.Second)
	cfg.ScanTimeout = getEnvDuration("SCAN_TIMEOUT", 10*time.Second)
	cfg.MaxScanAttempts = getEnvInt("MAX_SCAN_ATTEMPTS", 5)
	cfg.DeviceTTL = getEnvDuration("DEVICE_TTL", 10*time.Minute)
	cfg.ReconnectInterval = getEnvDuration("RECONNECT_INTERVAL", 15*time.Second)
	cfg.ConnectionTimeout = getEnvDuration("CONNECTION_TIMEOUT", 30*time.Second)
	cfg.FlowTTL = getEnvDuration("FLOW_TTL", 10*time.Minute)
	cfg.MQTTBroker = getEnv("MQTT_BROKER", "")
	cfg.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "bluespeak")
	cfg.MQTTClientID = getEnv("MQTT_CLIENT_ID", "bluespeak")
	cfg.APITokenHash = getEnv("API_TOKEN_HASH", "")
	cfg.ScanRateLimit = getEnvInt("SCAN_RATE_LIMIT", 6)

	// Command Line Flags (Override Env)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	fs.IntVar(&cfg.GRPCPort, "grpc", cfg.GRPCPort, "gRPC ingest port (0 to disable)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	fs.StringVar(&cfg.CompanyDBPath, "company-db", cfg.CompanyDBPath, "Path to company identifier database")
	fs.StringVar(&cfg.CompanyCachePath, "company-cache", cfg.CompanyCachePath, "Path to manufacturer JSON cache")
	fs.IntVar(&cfg.CompanyCacheSize, "company-cache-size", cfg.CompanyCacheSize, "Company lookup LRU size")
	fs.StringVar(&cfg.Scanner, "scanner", cfg.Scanner, "Scanner backend: tinygo, pcap or mock")
	fs.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run in mock mode (simulation)")
	fs.StringVar(&cfg.PcapPath, "pcap", cfg.PcapPath, "Replay BLE advertisements from a pcap file")
	fs.BoolVar(&cfg.PcapLoop, "pcap-loop", cfg.PcapLoop, "Restart the pcap replay when it ends")
	fs.DurationVar(&cfg.ScanInterval, "scan-interval", cfg.ScanInterval, "Time between scan passes")
	fs.DurationVar(&cfg.ScanTimeout, "scan-timeout", cfg.ScanTimeout, "Length of one scan pass")
	fs.IntVar(&cfg.MaxScanAttempts, "max-scan-attempts", cfg.MaxScanAttempts, "Consecutive scan failures before giving up")
	fs.DurationVar(&cfg.DeviceTTL, "device-ttl", cfg.DeviceTTL, "Forget devices not seen for this long")
	fs.DurationVar(&cfg.ReconnectInterval, "reconnect-interval", cfg.ReconnectInterval, "Delay between reconnect attempts")
	fs.DurationVar(&cfg.ConnectionTimeout, "connection-timeout", cfg.ConnectionTimeout, "Timeout for pair/connect/disconnect")
	fs.DurationVar(&cfg.FlowTTL, "flow-ttl", cfg.FlowTTL, "Lifetime of an unfinished config flow")
	fs.StringVar(&cfg.MQTTBroker, "mqtt", cfg.MQTTBroker, "MQTT broker URL (empty to disable)")
	fs.StringVar(&cfg.MQTTTopicPrefix, "mqtt-prefix", cfg.MQTTTopicPrefix, "MQTT topic prefix")
	fs.StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client identifier")
	fs.StringVar(&cfg.APITokenHash, "api-token-hash", cfg.APITokenHash, "bcrypt hash of the API bearer token (empty disables auth)")
	fs.IntVar(&cfg.ScanRateLimit, "scan-rate", cfg.ScanRateLimit, "Manual scans allowed per minute per client")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.MockMode {
		cfg.Scanner = "mock"
	} else if cfg.PcapPath != "" {
		cfg.Scanner = "pcap"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch c.Scanner {
	case "tinygo", "mock":
	case "pcap":
		if c.PcapPath == "" {
			return fmt.Errorf("scanner pcap requires -pcap")
		}
	default:
		return fmt.Errorf("unknown scanner %q", c.Scanner)
	}
	if c.ScanInterval <= 0 || c.ScanTimeout <= 0 {
		return fmt.Errorf("scan interval and timeout must be positive")
	}
	if c.MaxScanAttempts < 1 {
		return fmt.Errorf("max scan attempts must be at least 1")
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("connection timeout must be positive")
	}
	return nil
}

// LogLevel maps the debug flag to a slog level.
func (c *Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(envPrefix + key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getDefaultDataDir returns ~/.bluespeak, creating it if needed.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("Could not get user home directory, using current dir", "error", err)
		return "."
	}

	dir := filepath.Join(home, ".bluespeak")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("Could not create data directory, using current dir", "path", dir, "error", err)
		return "."
	}
	return dir
}
