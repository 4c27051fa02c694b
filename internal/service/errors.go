package service

import (
	"errors"
	"net/http"

	"github.com/kedai-pos/api/internal/inventory"
)

// Errors returned by the order and report services.
var (
	ErrEmptyItems             = errors.New("items are required")
	ErrInvalidQuantity        = errors.New("quantity must be > 0")
	ErrInvalidMenuID          = errors.New("invalid menu_id")
	ErrInvalidModifierID      = errors.New("invalid modifier_id")
	ErrInvalidDiscountID      = errors.New("invalid discount_id")
	ErrDuplicateModifier      = errors.New("modifier selected more than once")
	ErrMenuNotFound           = errors.New("menu not found")
	ErrMenuInactive           = errors.New("menu is not active")
	ErrMenuUnavailable        = errors.New("menu is sold out")
	ErrModifierNotFound       = errors.New("modifier not found")
	ErrModifierMismatch       = errors.New("modifier does not belong to menu")
	ErrInvalidDiscount        = errors.New("discount is inactive or not an order discount")
	ErrInvalidPaymentMethod   = errors.New("invalid payment_method")
	ErrOrderNotFound          = errors.New("order not found")
	ErrAlreadyProcessed       = errors.New("order is not pending")
	ErrAlreadyCompleted       = errors.New("order is already completed")
	ErrNotYetPaid             = errors.New("order has not been paid")
	ErrCompletedOrderNotFound = errors.New("completed order not found")
	ErrInvalidDateRange       = errors.New("end_date must be after start_date")
)

// Kind is the machine-readable error class returned to API callers.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidDiscount   Kind = "INVALID_DISCOUNT"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindAlreadyProcessed  Kind = "ALREADY_PROCESSED"
	KindAlreadyCompleted  Kind = "ALREADY_COMPLETED"
	KindNotYetPaid        Kind = "NOT_YET_PAID"
	KindDuplicateRequest  Kind = "DUPLICATE_REQUEST"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidDiscount:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindAlreadyProcessed, KindAlreadyCompleted,
		KindNotYetPaid, KindDuplicateRequest:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindInsufficientStock, []error{inventory.ErrInsufficientStock, ErrMenuUnavailable}},
	{KindAlreadyCompleted, []error{ErrAlreadyCompleted}},
	{KindAlreadyProcessed, []error{ErrAlreadyProcessed}},
	{KindNotYetPaid, []error{ErrNotYetPaid}},
	{KindInvalidDiscount, []error{ErrInvalidDiscount}},
	{KindNotFound, []error{
		ErrMenuNotFound, ErrModifierNotFound, ErrOrderNotFound,
		ErrCompletedOrderNotFound, inventory.ErrIngredientNotFound,
	}},
	{KindValidation, []error{
		ErrEmptyItems, ErrInvalidQuantity, ErrInvalidMenuID, ErrInvalidModifierID,
		ErrInvalidDiscountID, ErrDuplicateModifier, ErrMenuInactive,
		ErrModifierMismatch, ErrInvalidPaymentMethod, ErrInvalidDateRange,
		inventory.ErrInvalidQuantity, inventory.ErrInvalidUnitCost,
		inventory.ErrNotSemiFinished, inventory.ErrNoComposition,
		inventory.ErrInvalidBatchYield, inventory.ErrSelfComposition,
		inventory.ErrCompositionCycle, inventory.ErrDuplicateComponent,
		inventory.ErrEmptyComposition,
	}},
}

// KindOf classifies err. Anything unrecognised is an internal error.
func KindOf(err error) Kind {
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}
