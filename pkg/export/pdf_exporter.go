package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// Document describes the printed page around a dataset.
type Document struct {
	Title string
	// Lines are printed under the title as "label: value" pairs in order.
	Lines [][2]string
	// Weights sizes columns relative to each other; equal widths when empty.
	Weights []float64
}

// PDFExporter renders datasets into a tabular A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a heading block, the table body and an
// optional bold footer row.
func (e *PDFExporter) Render(data Dataset, doc Document) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	if len(doc.Weights) > 0 && len(doc.Weights) != len(data.Headers) {
		return nil, fmt.Errorf("pdf has %d column weights for %d headers", len(doc.Weights), len(data.Headers))
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	if len(doc.Lines) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, line := range doc.Lines {
			pdf.CellFormat(35, 6, line[0], "", 0, "", false, 0, "")
			pdf.CellFormat(0, 6, ": "+line[1], "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	widths := columnWidths(len(data.Headers), doc.Weights)

	pdf.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, value := range data.record(row) {
			pdf.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if data.Footer != nil {
		pdf.SetFont("Arial", "B", 9)
		for i, value := range data.record(data.Footer) {
			pdf.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(n int, weights []float64) []float64 {
	widths := make([]float64, n)
	var total float64
	for _, w := range weights {
		total += w
	}
	for i := range widths {
		if total <= 0 {
			widths[i] = pageWidth / float64(n)
			continue
		}
		widths[i] = pageWidth * weights[i] / total
	}
	return widths
}
