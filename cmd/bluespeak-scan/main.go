package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/manufacturer"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/scanner"
	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/discovery"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/registry"
)

var (
	colorAccent = lipgloss.Color("#A8D8EA")
	colorMuted  = lipgloss.Color("#6c757d")
	colorAudio  = lipgloss.Color("#4ECDC4")

	styleTitle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleHeader = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
	styleAudio  = styleCell.Foreground(colorAudio).Bold(true)
	styleFooter = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Second, "Scan duration")
	pcapPath := flag.String("pcap", "", "Replay BLE advertisements from a pcap file instead of scanning")
	mockMode := flag.Bool("mock", false, "Use simulated advertisements")
	companyDB := flag.String("company-db", "", "Company identifier database (default: built-in table)")
	audioOnly := flag.Bool("audio", false, "Only list audio devices")
	asJSON := flag.Bool("json", false, "Print devices as JSON")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	var sc ports.Scanner
	switch {
	case *mockMode:
		sc = scanner.NewMockScanner("crowded", time.Now().UnixNano(), 0)
	case *pcapPath != "":
		p := scanner.NewPCAPScanner(*pcapPath, false)
		defer p.Close()
		sc = p
	default:
		sc = scanner.NewTinyGoScanner()
	}

	var source manufacturer.CompanyRepository = manufacturer.NewDefaultStaticRepository()
	if *companyDB != "" {
		db, err := manufacturer.NewCompanyDatabase(*companyDB, 1000, source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "company database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		source = db
	}
	loader := manufacturer.NewLoader(source, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := loader.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "manufacturer registry: %v\n", err)
	}

	svc := discovery.NewService(sc, registry.NewDeviceRegistry(), loader, nil, discovery.DefaultOptions())
	fmt.Fprintln(os.Stderr, styleTitle.Render(fmt.Sprintf("Scanning with %s for %s...", sc.Name(), *timeout)))

	summary, err := svc.Scan(ctx, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan: %v\n", err)
		if summary.Seen == 0 {
			os.Exit(1)
		}
	}

	devices := svc.Devices(domain.DeviceFilter{AudioOnly: *audioOnly})
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(devices); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(render(devices))
	fmt.Println(styleFooter.Render(fmt.Sprintf("%d devices (%d new) in %s", len(devices), summary.New, summary.Duration.Round(time.Millisecond))))
}

func render(devices []domain.SeenDevice) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rssi := "-"
		if d.RSSI != nil {
			rssi = strconv.Itoa(*d.RSSI)
		}
		rows = append(rows, []string{d.Address, d.DisplayName, string(d.DeviceType), d.ManufacturerName, rssi})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers("ADDRESS", "NAME", "TYPE", "MANUFACTURER", "RSSI").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case row >= 0 && row < len(devices) && devices[row].DeviceType.IsAudio():
				return styleAudio
			default:
				return styleCell
			}
		}).
		String()
}
