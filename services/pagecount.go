package services

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCounter ist die externe Fähigkeit "Pfad rein, Seitenzahl raus".
// Implementations must fail with an error instead of hanging on corrupt
// input; the orchestrator degrades failures to zero-page records.
type PageCounter interface {
	CountPages(path string) (int, error)
}

// PDFPageCounter counts pages via pdfcpu.
type PDFPageCounter struct{}

// NewPageCounter returns the pdfcpu-backed counter.
func NewPageCounter() *PDFPageCounter {
	return &PDFPageCounter{}
}

// CountPages liefert die Seitenzahl der PDF-Datei.
func (p *PDFPageCounter) CountPages(path string) (int, error) {
	return api.PageCountFile(path)
}
