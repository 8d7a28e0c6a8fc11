package model

import (
	"fmt"
	"strings"
)

type Commodity string

const (
	CommodityLuce Commodity = "luce"
	CommodityGas  Commodity = "gas"
)

var Commodities = []Commodity{CommodityLuce, CommodityGas}

// IdentifierField names the supply-point identifier used by the commodity.
func (c Commodity) IdentifierField() string {
	if c == CommodityGas {
		return "PDR"
	}
	return "POD"
}

func (c Commodity) Label() string {
	switch c {
	case CommodityLuce:
		return "Luce"
	case CommodityGas:
		return "Gas"
	default:
		return string(c)
	}
}

func (c Commodity) Valid() bool {
	return c == CommodityLuce || c == CommodityGas
}

func ParseCommodity(raw string) (Commodity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "luce", "electricity", "pod":
		return CommodityLuce, nil
	case "gas", "pdr":
		return CommodityGas, nil
	default:
		return "", fmt.Errorf("unknown commodity %q", raw)
	}
}

type Status string

const (
	StatusInCompilation       Status = "in_compilation"
	StatusDocumentsToValidate Status = "documents_to_validate"
	StatusDocumentsToCorrect  Status = "documents_to_correct"
	StatusPrecheckKO          Status = "precheck_ko"
	StatusCreditCheckKO       Status = "credit_check_ko"
	StatusToActivate          Status = "to_activate"
	StatusActive              Status = "active"
	StatusClosed              Status = "closed"
	StatusSuspended           Status = "suspended"
)

// statusLabels maps every status to the label shown by the legacy CRM screens.
// The labels are kept verbatim, including their inconsistent casing.
var statusLabels = map[Status]string{
	StatusInCompilation:       "In compilazione",
	StatusDocumentsToValidate: "Documenti da validare",
	StatusDocumentsToCorrect:  "Documenti da correggere",
	StatusPrecheckKO:          "KO Precheck",
	StatusCreditCheckKO:       "KO Credit check",
	StatusToActivate:          "Da attivare",
	StatusActive:              "Attivo",
	StatusClosed:              "Chiuso",
	StatusSuspended:           "Sospeso",
}

var Statuses = []Status{
	StatusInCompilation,
	StatusDocumentsToValidate,
	StatusDocumentsToCorrect,
	StatusPrecheckKO,
	StatusCreditCheckKO,
	StatusToActivate,
	StatusActive,
	StatusClosed,
	StatusSuspended,
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsKO reports whether the status is one of the failed pre-activation checks.
func (s Status) IsKO() bool {
	return s == StatusPrecheckKO || s == StatusCreditCheckKO
}

// RequiresCommission reports whether reaching s from a KO status needs a
// commission assignment for the contract's customer and commodity.
func (s Status) RequiresCommission() bool {
	return s == StatusToActivate || s == StatusClosed
}

// ParseStatus accepts canonical codes and legacy labels, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	key := normalizeKey(raw)
	if key == "" {
		return "", fmt.Errorf("status is empty")
	}
	for _, status := range Statuses {
		if key == string(status) || key == normalizeKey(statusLabels[status]) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

type Procedure string

const (
	ProcedureSwitch           Procedure = "switch"
	ProcedureVoltura          Procedure = "voltura"
	ProcedureSubentro         Procedure = "subentro"
	ProcedureAllaccio         Procedure = "allaccio"
	ProcedurePrimaAttivazione Procedure = "prima_attivazione"
	ProcedureSwitchVoltura    Procedure = "switch_con_voltura"
)

var procedureLabels = map[Procedure]string{
	ProcedureSwitch:           "Switch",
	ProcedureVoltura:          "Voltura",
	ProcedureSubentro:         "Subentro",
	ProcedureAllaccio:         "Allaccio",
	ProcedurePrimaAttivazione: "Prima attivazione",
	ProcedureSwitchVoltura:    "Switch con voltura",
}

var Procedures = []Procedure{
	ProcedureSwitch,
	ProcedureVoltura,
	ProcedureSubentro,
	ProcedureAllaccio,
	ProcedurePrimaAttivazione,
	ProcedureSwitchVoltura,
}

func (p Procedure) Valid() bool {
	_, ok := procedureLabels[p]
	return ok
}

func (p Procedure) Label() string {
	if label, ok := procedureLabels[p]; ok {
		return label
	}
	return string(p)
}

func ParseProcedure(raw string) (Procedure, error) {
	key := normalizeKey(raw)
	if key == "" {
		return "", fmt.Errorf("procedure is empty")
	}
	for _, procedure := range Procedures {
		if key == string(procedure) || key == normalizeKey(procedureLabels[procedure]) {
			return procedure, nil
		}
	}
	return "", fmt.Errorf("unknown procedure %q", raw)
}

func normalizeKey(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.NewReplacer(" ", "_", "-", "_").Replace(raw)
	return raw
}
