package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf/v2"

	"manifestrecon/internal/store"
)

// landscape A4 usable width with 10mm margins
const pageWidth = 277.0

type pdfColumn struct {
	title string
	width float64
	align string
}

var pdfColumns = []pdfColumn{
	{"Status", 30, "C"},
	{"Remetente", 28, "L"},
	{"Destinatário", 26, "L"},
	{"Volume", 50, "L"},
	{"Exp.", 15, "C"},
	{"Rec.", 15, "C"},
	{"Peso (kg)", 22, "R"},
	{"Cubagem", 20, "R"},
	{"Prior.", 14, "C"},
	{"Recebido por", 57, "L"},
}

// WritePDF renders the summary and the volume table.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	m := r.Summary.Manifest
	s := r.Summary.Statistics

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(pageWidth, 10, tr(fmt.Sprintf("Conferência do Manifesto %s", m.Number)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(pageWidth, 6, tr(fmt.Sprintf("Gerado em %s", r.GeneratedAt.Format(dateTimeLayout))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(pageWidth, 8, "Manifesto", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	half := pageWidth / 2
	pdf.CellFormat(half, 7, tr(fmt.Sprintf("Data: %s", formatDate(m.Date))), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(half, 7, tr(fmt.Sprintf("Status: %s", m.Status)), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(half, 7, tr(fmt.Sprintf("Origem: %s", m.Origin)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(half, 7, tr(fmt.Sprintf("Destino: %s", m.Destination)), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(half, 7, tr(fmt.Sprintf("Missão: %s", m.Mission)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(half, 7, tr(fmt.Sprintf("Aeronave: %s", m.Aircraft)), "RB", 1, "L", false, 0, "")
	pdf.Ln(4)

	third := pageWidth / 3
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(third, 8, fmt.Sprintf("Volumes: %d", s.Volumes), "1", 0, "C", false, 0, "")
	pdf.CellFormat(third, 8, fmt.Sprintf("Caixas: %d / %d", s.ReceivedBoxes, s.ExpectedBoxes), "1", 0, "C", false, 0, "")
	if r.Summary.Complete {
		pdf.SetFillColor(200, 255, 200)
	} else {
		pdf.SetFillColor(255, 200, 200)
	}
	pdf.CellFormat(third, 8, fmt.Sprintf("Recebido: %.1f%%", s.PercentReceived), "1", 1, "C", true, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	for i, col := range pdfColumns {
		ln := 0
		if i == len(pdfColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(col.width, 7, tr(col.title), "1", ln, "C", true, 0, "")
	}
	pdf.SetFont("Arial", "", 9)
	for _, v := range r.Volumes {
		fill := statusFill(pdf, v.Status)
		values := []string{
			string(v.Status),
			v.Sender,
			v.Recipient,
			v.Number,
			fmt.Sprintf("%d", v.Expected),
			fmt.Sprintf("%d", v.Received),
			formatDecimal(v.Weight, 2),
			formatDecimal(v.Cubage, 3),
			v.Priority,
			r.ReceivedBy[v.ID],
		}
		for i, col := range pdfColumns {
			ln := 0
			if i == len(pdfColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(col.width, 6, tr(values[i]), "1", ln, col.align, fill, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func statusFill(pdf *gofpdf.Fpdf, status store.VolumeStatus) bool {
	switch status {
	case store.VolumeComplete:
		pdf.SetFillColor(220, 245, 220)
	case store.VolumePartial:
		pdf.SetFillColor(255, 240, 200)
	case store.VolumeExtra:
		pdf.SetFillColor(220, 230, 255)
	default:
		return false
	}
	return true
}
