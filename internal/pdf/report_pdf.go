package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator — interface so handlers can be tested without touching disk.
type Generator interface {
	GenerateConversionReport(data ConversionReportData) (string, error)
}

// ReportGenerator writes report PDFs under RootDir.
type ReportGenerator struct {
	RootDir string
}

type ConversionReportData struct {
	TenantName   string
	From, To     time.Time
	NewLeadCount int
	WonCount     int
	LostCount    int
	Rate         float64
	Filename     string // name only, no paths; generated when empty
}

func NewReportGenerator(rootDir string) *ReportGenerator {
	return &ReportGenerator{RootDir: filepath.Clean(rootDir)}
}

func (g *ReportGenerator) GenerateConversionReport(data ConversionReportData) (string, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("conversion_%s.pdf", data.To.Format("2006-01-02"))
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Conversion Report", false)
	pdf.SetAuthor("Leadflow", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "CONVERSION REPORT", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	sub := fmt.Sprintf("%s  —  %s to %s",
		data.TenantName,
		data.From.Format("02.01.2006"),
		data.To.Format("02.01.2006"),
	)
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)

	rows := []struct {
		label string
		value string
	}{
		{"New leads", fmt.Sprintf("%d", data.NewLeadCount)},
		{"Won", fmt.Sprintf("%d", data.WonCount)},
		{"Lost", fmt.Sprintf("%d", data.LostCount)},
		{"Conversion rate", fmt.Sprintf("%.1f%%", data.Rate*100)},
	}
	pdf.Ln(4)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(80, 9, row.label, "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 9, row.value, "B", 1, "R", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().Format("02.01.2006 15:04")), "", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return absPath, nil
}

func (g *ReportGenerator) ensureTarget(filename string) (string, error) {
	dir := filepath.Join(g.RootDir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	return filepath.Join(dir, filepath.Base(filename)), nil
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	pdf.Ln(2)
	x, y := pdf.GetXY()
	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(x, y, 190, y)
	pdf.Ln(4)
}
