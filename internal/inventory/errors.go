package inventory

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the inventory engine and stock service.
var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInvalidUnitCost    = errors.New("unit_cost must be >= 0")
	ErrNotSemiFinished    = errors.New("ingredient is not semi-finished")
	ErrNoComposition      = errors.New("semi-finished ingredient has no composition")
	ErrInvalidBatchYield  = errors.New("batch_yield must be > 0")
	ErrSelfComposition    = errors.New("ingredient cannot be a component of itself")
	ErrCompositionCycle   = errors.New("composition would create a cycle")
	ErrDuplicateComponent = errors.New("duplicate component ingredient")
	ErrEmptyComposition   = errors.New("components are required")
)

// InsufficientStockError reports the first ingredient whose stock could not
// cover a decrement. It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	IngredientID uuid.UUID
	Name         string
	Available    decimal.Decimal
	Required     decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, required %s",
		e.Name, e.Available.String(), e.Required.String())
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
