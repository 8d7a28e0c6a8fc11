package model

import "testing"

func TestStatusLabelsRoundTrip(t *testing.T) {
	cases := []struct {
		status Status
		label  string
	}{
		{StatusInCompilation, "In compilazione"},
		{StatusDocumentsToValidate, "Documenti da validare"},
		{StatusDocumentsToCorrect, "Documenti da correggere"},
		{StatusPrecheckKO, "KO Precheck"},
		{StatusCreditCheckKO, "KO Credit check"},
		{StatusToActivate, "Da attivare"},
		{StatusActive, "Attivo"},
		{StatusClosed, "Chiuso"},
		{StatusSuspended, "Sospeso"},
	}
	if len(cases) != len(Statuses) {
		t.Fatalf("label table covers %d statuses, enumeration has %d", len(cases), len(Statuses))
	}
	for _, tc := range cases {
		if got := tc.status.Label(); got != tc.label {
			t.Fatalf("label for %s: expected %q, got %q", tc.status, tc.label, got)
		}
		parsed, err := ParseStatus(tc.label)
		if err != nil {
			t.Fatalf("parse label %q: %v", tc.label, err)
		}
		if parsed != tc.status {
			t.Fatalf("parse label %q: expected %s, got %s", tc.label, tc.status, parsed)
		}
	}
}

func TestParseStatusAcceptsMixedCasing(t *testing.T) {
	inputs := map[string]Status{
		"credit_check_ko":       StatusCreditCheckKO,
		"CREDIT_CHECK_KO":       StatusCreditCheckKO,
		"ko credit CHECK":       StatusCreditCheckKO,
		"  to_activate  ":       StatusToActivate,
		"documenti-da-validare": StatusDocumentsToValidate,
	}
	for raw, expected := range inputs {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != expected {
			t.Fatalf("parse %q: expected %s, got %s", raw, expected, got)
		}
	}

	if _, err := ParseStatus("   "); err == nil {
		t.Fatalf("expected error for blank status")
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestStatusClasses(t *testing.T) {
	for _, status := range Statuses {
		ko := status == StatusPrecheckKO || status == StatusCreditCheckKO
		if status.IsKO() != ko {
			t.Fatalf("IsKO(%s) = %v", status, status.IsKO())
		}
		gated := status == StatusToActivate || status == StatusClosed
		if status.RequiresCommission() != gated {
			t.Fatalf("RequiresCommission(%s) = %v", status, status.RequiresCommission())
		}
	}
}

func TestProcedureLabels(t *testing.T) {
	for _, procedure := range Procedures {
		parsed, err := ParseProcedure(procedure.Label())
		if err != nil {
			t.Fatalf("parse label %q: %v", procedure.Label(), err)
		}
		if parsed != procedure {
			t.Fatalf("label %q parsed as %s", procedure.Label(), parsed)
		}
	}
	if got, _ := ParseProcedure("Switch con voltura"); got != ProcedureSwitchVoltura {
		t.Fatalf("expected switch_con_voltura, got %s", got)
	}
	if _, err := ParseProcedure("cessazione"); err == nil {
		t.Fatalf("expected error for unknown procedure")
	}
}

func TestCommodityIdentifierField(t *testing.T) {
	if CommodityLuce.IdentifierField() != "POD" {
		t.Fatalf("luce should use POD")
	}
	if CommodityGas.IdentifierField() != "PDR" {
		t.Fatalf("gas should use PDR")
	}
	if _, err := ParseCommodity("acqua"); err == nil {
		t.Fatalf("expected error for unknown commodity")
	}
}

func TestHeldCommoditiesSkipsSuperseded(t *testing.T) {
	now := Contract{}.CreatedAt
	contracts := []Contract{
		{Commodity: CommodityGas},
		{Commodity: CommodityLuce, SupersededAt: &now},
	}
	held := HeldCommodities(contracts)
	if len(held) != 1 || held[0] != CommodityGas {
		t.Fatalf("unexpected held commodities: %v", held)
	}
}
