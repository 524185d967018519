package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// Format is an export output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Filename builds a timestamped download name.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("bluespeak_devices_%s.%s", now.Format("20060102_150405"), f)
}

// ExportJSON writes devices as a JSON array
func ExportJSON(w io.Writer, devices []domain.SeenDevice) error {
	if devices == nil {
		devices = []domain.SeenDevice{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(devices)
}

// ExportCSV writes devices as CSV with headers
func ExportCSV(w io.Writer, devices []domain.SeenDevice) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := []string{
		"Address", "Name", "NameSource", "Type", "Icon", "MatchedBy",
		"ManufacturerID", "Manufacturer", "RSSI", "TxPower",
		"Appearance", "ServiceUUIDs",
		"FirstSeen", "LastSeen", "SeenCount", "Source",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, d := range devices {
		row := []string{
			d.Address,
			d.DisplayName,
			string(d.NameSource),
			string(d.DeviceType),
			string(d.Icon),
			string(d.MatchedBy),
			optUint16(d.ManufacturerID),
			d.ManufacturerName,
			optInt(d.RSSI),
			optInt(d.TxPower),
			optUint16(d.Appearance),
			strings.Join(d.ServiceUUIDs, ";"),
			d.FirstSeen.Format(time.RFC3339),
			d.LastSeen.Format(time.RFC3339),
			strconv.Itoa(d.SeenCount),
			d.Source,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportEntriesCSV writes configured speaker entries as CSV
func ExportEntriesCSV(w io.Writer, entries []domain.SpeakerEntry) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"ID", "Address", "Name", "Type", "Manufacturer", "CreatedAt"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{e.ID, e.Address, e.Name, string(e.DeviceType), e.Manufacturer, e.CreatedAt.Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optUint16(v *uint16) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("0x%04X", *v)
}
