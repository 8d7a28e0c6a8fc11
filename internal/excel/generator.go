package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/energy-contracts/internal/model"
)

const (
	summarySheet = "Contratto"
	historySheet = "Storico"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the contract summary and its procedure history, most
// recent change first, as an xlsx workbook.
func (g *Generator) Generate(report model.ContractReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	g.writeSummary(file, report)

	if _, err := file.NewSheet(historySheet); err != nil {
		return nil, err
	}
	if err := g.writeHistory(file, report.History); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, report model.ContractReport) {
	contract := report.Contract
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	rows := [][2]interface{}{
		{"Cliente", report.Customer.DisplayName},
		{"Fornitura", contract.Commodity.Label()},
		{contract.Commodity.IdentifierField(), contract.SupplyPoint},
		{"Fornitore", contract.Supplier},
		{"Procedura", contract.Procedure.Label()},
		{"Stato", contract.Status.Label()},
		{"Prezzo", formatDecimal(contract.Price)},
		{"Data stipula", formatDatePtr(contract.StipulatedAt)},
		{"Data attivazione", formatDatePtr(contract.ActivatedAt)},
		{"Data scadenza", formatDatePtr(contract.ExpiresAt)},
		{"Agente", report.AgentName},
		{"Provvigione", formatCommission(report.Commission)},
		{"Generato il", formatDateTime(report.GeneratedAt)},
	}
	for i, row := range rows {
		set(fmt.Sprintf("A%d", i+1), row[0])
		set(fmt.Sprintf("B%d", i+1), row[1])
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 22)
	_ = file.SetColWidth(summarySheet, "B", "B", 45)
}

func (g *Generator) writeHistory(file *excelize.File, history []model.ProcedureHistoryRecord) error {
	headers := []string{
		"Data",
		"Procedura precedente",
		"Nuova procedura",
		"Stato precedente",
		"Nuovo stato",
		"Nota",
		"Allegato",
		"Operatore",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		_ = file.SetCellValue(historySheet, cell, header)
	}

	for i, record := range history {
		row := i + 2
		values := []interface{}{
			formatDateTime(record.CreatedAt),
			record.PreviousProcedure.Label(),
			record.NewProcedure.Label(),
			record.PreviousStatus.Label(),
			record.NewStatus.Label(),
			formatString(record.Note),
			formatID(record.AttachmentRef),
			record.ActorID.String(),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			_ = file.SetCellValue(historySheet, cell, value)
		}
	}

	_ = file.SetColWidth(historySheet, "A", "A", 20)
	_ = file.SetColWidth(historySheet, "B", "E", 24)
	_ = file.SetColWidth(historySheet, "F", "F", 40)
	_ = file.SetColWidth(historySheet, "G", "H", 38)
	return nil
}

// SanitizeFileName strips characters that are unsafe in a download name.
func SanitizeFileName(value string) string {
	value = strings.TrimSpace(value)
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
		"\"", "",
		" ", "_",
	)
	value = replacer.Replace(value)
	if value == "" {
		return "contratto"
	}
	return value
}

func formatDatePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func formatDecimal(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return value.StringFixed(2)
}

func formatCommission(assignment *model.CommissionAssignment) string {
	if assignment == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", assignment.Amount.StringFixed(2), assignment.Mode)
}
