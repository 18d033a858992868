package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// KV is one labelled line on a receipt.
type KV struct {
	Key   string
	Value string
}

// PDFExporter renders submission receipts as two-column PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReceipt creates a PDF with a centered title and one row per entry,
// bold labels on the left and values on the right.
func (e *PDFExporter) RenderReceipt(title string, rows []KV) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("receipt requires at least one row")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	const labelWidth = 60.0
	const valueWidth = 120.0
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(labelWidth, 8, row.Key, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(valueWidth, 8, row.Value, "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
