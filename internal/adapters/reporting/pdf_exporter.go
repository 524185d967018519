package reporting

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// maxTableRows keeps the inventory table to a few pages.
const maxTableRows = 200

// PDFExporter exports device inventories to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportInventory renders the inventory report to PDF bytes
func (e *PDFExporter) ExportInventory(report *domain.InventoryReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() { e.addFooter(pdf, report) })
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addStatistics(pdf, report)
	e.addTypeBreakdown(pdf, report)
	e.addEntries(pdf, report)
	e.addDeviceTable(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *domain.InventoryReport) {
	title := report.Title
	if title == "" {
		title = "Bluetooth Device Inventory"
	}
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 14, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (e *PDFExporter) sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *domain.InventoryReport) {
	e.sectionTitle(pdf, "Summary")

	stats := []struct {
		label string
		value int
	}{
		{"Devices Seen", report.Stats.TotalDevices},
		{"Audio Capable", report.Stats.AudioDevices},
		{"Named Devices", report.Stats.NamedDevices},
		{"Configured Speakers", report.Stats.ConfiguredDevices},
	}

	// two columns
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(35, 7, fmt.Sprintf("%d", stat.value), "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addTypeBreakdown(pdf *gofpdf.Fpdf, report *domain.InventoryReport) {
	e.sectionTitle(pdf, "Devices by Type")

	if len(report.Stats.ByType) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No devices discovered", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(60, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Count", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, ts := range report.Stats.ByType {
		pdf.CellFormat(60, 7, string(ts.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", ts.Count), "1", 1, "C", false, 0, "")
	}

	if len(report.Stats.TopManufacturers) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Top manufacturers:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, m := range report.Stats.TopManufacturers {
			pdf.CellFormat(0, 5, fmt.Sprintf("- %s (%d)", truncate(m.Name, 70), m.Count), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addEntries(pdf *gofpdf.Fpdf, report *domain.InventoryReport) {
	if len(report.Entries) == 0 {
		return
	}
	e.sectionTitle(pdf, "Configured Speakers")

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(55, 8, "Name", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Address", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Created", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, entry := range report.Entries {
		pdf.CellFormat(55, 7, truncate(entry.Name, 32), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, entry.Address, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, string(entry.DeviceType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, entry.CreatedAt.Format("2006-01-02 15:04"), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addDeviceTable(pdf *gofpdf.Fpdf, report *domain.InventoryReport) {
	if pdf.GetY() > 230 {
		pdf.AddPage()
	}
	e.sectionTitle(pdf, "Discovered Devices")

	header := func() {
		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 9)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(35, 8, "Address", "1", 0, "L", true, 0, "")
		pdf.CellFormat(55, 8, "Name", "1", 0, "L", true, 0, "")
		pdf.CellFormat(28, 8, "Type", "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 8, "Manufacturer", "1", 0, "L", true, 0, "")
		pdf.CellFormat(17, 8, "RSSI", "1", 1, "C", true, 0, "")
		pdf.SetFont("Arial", "", 8)
	}
	header()

	for i, d := range report.Devices {
		if i >= maxTableRows {
			pdf.SetFont("Arial", "I", 8)
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d more devices omitted", len(report.Devices)-maxTableRows), "", 1, "L", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}

		r, g, b := e.getTypeColor(d.DeviceType)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(35, 6, d.Address, "1", 0, "L", false, 0, "")
		pdf.CellFormat(55, 6, truncate(d.DisplayName, 34), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(28, 6, string(d.DeviceType), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(40, 6, truncate(d.ManufacturerName, 24), "1", 0, "L", false, 0, "")
		rssi := "-"
		if d.RSSI != nil {
			rssi = fmt.Sprintf("%d", *d.RSSI)
		}
		pdf.CellFormat(17, 6, rssi, "1", 1, "C", false, 0, "")
	}
}

// getTypeColor highlights audio devices
func (e *PDFExporter) getTypeColor(t domain.DeviceType) (r, g, b int) {
	switch {
	case t.IsAudio():
		return 0, 102, 204
	case t == domain.DeviceTypeUnknown:
		return 150, 150, 150
	default:
		return 60, 60, 60
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *domain.InventoryReport) {
	pdf.SetY(-15)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("bluespeak | %d devices | page %d", report.Stats.TotalDevices, pdf.PageNo()), "", 0, "C", false, 0, "")
}

// truncate cuts s to n runes; gofpdf core fonts are Latin-1 only.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
