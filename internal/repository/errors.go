package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	ConstraintContractSupplyPoint = "uq_contract_supply_point"
	ConstraintCommissionCustomer  = "uq_commission_customer_commodity"
)

var (
	ErrNotFound         = gorm.ErrRecordNotFound
	ErrDuplicateKey     = gorm.ErrDuplicatedKey
	ErrRevisionConflict = errors.New("revision conflict")
)

type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &UniqueViolationError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}
