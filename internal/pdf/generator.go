package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/nurpe/energy-contracts/internal/model"
)

const fontName = "Helvetica"

type Generator struct {
	historyRows int
}

// NewGenerator returns a generator printing at most historyRows history
// entries; zero prints them all.
func NewGenerator(historyRows int) *Generator {
	return &Generator{historyRows: historyRows}
}

func (g *Generator) Generate(report model.ContractReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	contract := report.Contract

	pdf.SetFont(fontName, "B", 14)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Scheda contratto %s", contract.Commodity.Label())), "", 1, "C", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Generata il %s", formatDateTime(report.GeneratedAt))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section(pdf, tr, "Cliente")
	line(pdf, tr, report.Customer.DisplayName)
	pdf.Ln(2)

	section(pdf, tr, "Fornitura")
	rows := [][2]string{
		{contract.Commodity.IdentifierField(), contract.SupplyPoint},
		{"Fornitore", contract.Supplier},
		{"Procedura", contract.Procedure.Label()},
		{"Stato", contract.Status.Label()},
		{"Prezzo", formatDecimal(contract.Price)},
		{"Data stipula", formatDate(contract.StipulatedAt)},
		{"Data attivazione", formatDate(contract.ActivatedAt)},
		{"Data scadenza", formatDate(contract.ExpiresAt)},
	}
	for _, row := range rows {
		drawTableRow(pdf, tr, []string{row[0], safeValue(row[1])}, []float64{50, 130}, false)
	}
	pdf.Ln(2)

	section(pdf, tr, "Provvigione")
	if report.Commission == nil {
		line(pdf, tr, "Nessuna provvigione assegnata")
	} else {
		line(pdf, tr, fmt.Sprintf("Agente: %s", safeValue(report.AgentName)))
		line(pdf, tr, fmt.Sprintf("Importo: %s (%s)", report.Commission.Amount.StringFixed(2), report.Commission.Mode))
	}
	if strings.TrimSpace(contract.Note) != "" {
		pdf.Ln(2)
		section(pdf, tr, "Note")
		pdf.MultiCell(0, 5, tr(contract.Note), "", "L", false)
	}
	pdf.Ln(2)

	section(pdf, tr, "Storico")
	history := report.History
	if g.historyRows > 0 && len(history) > g.historyRows {
		history = history[:g.historyRows]
	}
	if len(history) == 0 {
		line(pdf, tr, "Nessuna variazione registrata")
	} else {
		widths := []float64{35, 36, 36, 36, 37}
		drawTableRow(pdf, tr, []string{"Data", "Da procedura", "A procedura", "Da stato", "A stato"}, widths, true)
		for _, record := range history {
			drawTableRow(pdf, tr, []string{
				formatDateTime(record.CreatedAt),
				record.PreviousProcedure.Label(),
				record.NewProcedure.Label(),
				record.PreviousStatus.Label(),
				record.NewStatus.Label(),
			}, widths, false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
}

func line(pdf *gofpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont(fontName, "", 10)
	pdf.MultiCell(0, 5, tr(text), "", "L", false)
}

func drawTableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 9)
	for i, col := range cols {
		pdf.CellFormat(widths[i], 7, tr(col), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDecimal(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return value.StringFixed(2)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}
