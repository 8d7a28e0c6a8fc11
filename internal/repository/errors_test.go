package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateError(t *testing.T) {
	supplyPoint := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: ConstraintContractSupplyPoint}
	foreignKey := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "contracts_customer_id_fkey"}
	plain := errors.New("connection reset")

	tests := []struct {
		name       string
		err        error
		constraint string
		same       bool
	}{
		{name: "nil", err: nil, same: true},
		{name: "unique violation", err: supplyPoint, constraint: ConstraintContractSupplyPoint},
		{name: "wrapped unique violation", err: fmt.Errorf("insert contract: %w", supplyPoint), constraint: ConstraintContractSupplyPoint},
		{name: "other pg error", err: foreignKey, same: true},
		{name: "non pg error", err: plain, same: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if tt.same {
				if got != tt.err {
					t.Fatalf("translateError(%v) = %v, want the error unchanged", tt.err, got)
				}
				return
			}
			var unique *UniqueViolationError
			if !errors.As(got, &unique) {
				t.Fatalf("translateError(%v) = %T, want *UniqueViolationError", tt.err, got)
			}
			if unique.Constraint != tt.constraint {
				t.Errorf("constraint = %q, want %q", unique.Constraint, tt.constraint)
			}
			var pgErr *pgconn.PgError
			if !errors.As(got, &pgErr) {
				t.Errorf("translated error no longer unwraps to *pgconn.PgError")
			}
		})
	}
}
