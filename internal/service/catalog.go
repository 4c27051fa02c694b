package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// CatalogStore defines the catalog reads needed to price an order.
type CatalogStore interface {
	GetMenuForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuForOrderRow, error)
	GetModifierForOrder(ctx context.Context, id uuid.UUID) (database.GetModifierForOrderRow, error)
	GetDiscount(ctx context.Context, id uuid.UUID) (database.Discount, error)
	GetActiveTax(ctx context.Context) (database.Tax, error)
	GetActiveGratuity(ctx context.Context) (database.Gratuity, error)
}

// MenuSnapshot is a menu as seen by one order transaction.
type MenuSnapshot struct {
	ID          uuid.UUID
	Name        string
	Category    string
	BasePrice   decimal.Decimal
	Hpp         decimal.Decimal
	IsActive    bool
	IsAvailable bool
	// Discount is the menu's active MENU-scoped discount, nil if none.
	Discount *pricing.Discount
}

// ModifierSnapshot is a modifier as seen by one order transaction.
type ModifierSnapshot struct {
	ID       uuid.UUID
	MenuID   uuid.UUID
	Name     string
	Price    decimal.Decimal
	UnitCost decimal.Decimal
	IsActive bool
}

// Catalog reads pricing facts through a transaction-bound store. Each fact is
// read at most once, so every line of an order is priced from the same
// snapshot. A Catalog must not outlive its transaction.
type Catalog struct {
	store     CatalogStore
	menus     map[uuid.UUID]MenuSnapshot
	modifiers map[uuid.UUID]ModifierSnapshot
	rates     *pricing.Rates
}

// NewCatalog creates a Catalog over store.
func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{
		store:     store,
		menus:     make(map[uuid.UUID]MenuSnapshot),
		modifiers: make(map[uuid.UUID]ModifierSnapshot),
	}
}

// Menu returns the snapshot of one menu.
func (c *Catalog) Menu(ctx context.Context, id uuid.UUID) (MenuSnapshot, error) {
	if m, ok := c.menus[id]; ok {
		return m, nil
	}
	row, err := c.store.GetMenuForOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MenuSnapshot{}, ErrMenuNotFound
		}
		return MenuSnapshot{}, fmt.Errorf("get menu: %w", err)
	}

	m := MenuSnapshot{
		ID:          row.ID,
		Name:        row.Name,
		Category:    row.Category,
		BasePrice:   numericToDecimal(row.BasePrice),
		Hpp:         numericToDecimal(row.Hpp),
		IsActive:    row.IsActive,
		IsAvailable: row.IsAvailable,
	}
	if row.DiscountID.Valid && row.DiscountKind.Valid {
		m.Discount = &pricing.Discount{
			ID:    row.DiscountID.Bytes,
			Scope: pricing.ScopeMenu,
			Kind:  pricing.Kind(row.DiscountKind.DiscountKind),
			Value: numericToDecimal(row.DiscountValue),
		}
	}
	c.menus[id] = m
	return m, nil
}

// Modifier returns the snapshot of one modifier.
func (c *Catalog) Modifier(ctx context.Context, id uuid.UUID) (ModifierSnapshot, error) {
	if m, ok := c.modifiers[id]; ok {
		return m, nil
	}
	row, err := c.store.GetModifierForOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ModifierSnapshot{}, ErrModifierNotFound
		}
		return ModifierSnapshot{}, fmt.Errorf("get modifier: %w", err)
	}
	m := ModifierSnapshot{
		ID:       row.ID,
		MenuID:   row.MenuID,
		Name:     row.Name,
		Price:    numericToDecimal(row.Price),
		UnitCost: numericToDecimal(row.UnitCost),
		IsActive: row.IsActive,
	}
	c.modifiers[id] = m
	return m, nil
}

// OrderDiscount re-validates an order-level discount inside the transaction.
// It returns ErrInvalidDiscount when the discount is unknown, inactive or not
// TOTAL-scoped; callers drop the discount and carry on.
func (c *Catalog) OrderDiscount(ctx context.Context, id uuid.UUID) (*pricing.Discount, error) {
	d, err := c.store.GetDiscount(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidDiscount
		}
		return nil, fmt.Errorf("get discount: %w", err)
	}
	if !d.IsActive || d.Scope != database.DiscountScopeTOTAL {
		return nil, ErrInvalidDiscount
	}
	return &pricing.Discount{
		ID:    d.ID,
		Scope: pricing.ScopeTotal,
		Kind:  pricing.Kind(d.Kind),
		Value: numericToDecimal(d.Value),
	}, nil
}

// Rates returns the active tax and gratuity rates. A missing active row
// means a zero rate.
func (c *Catalog) Rates(ctx context.Context) (pricing.Rates, error) {
	if c.rates != nil {
		return *c.rates, nil
	}

	var r pricing.Rates
	tax, err := c.store.GetActiveTax(ctx)
	switch {
	case err == nil:
		r.TaxRate = numericToDecimal(tax.Rate)
	case !errors.Is(err, pgx.ErrNoRows):
		return r, fmt.Errorf("get active tax: %w", err)
	}

	gratuity, err := c.store.GetActiveGratuity(ctx)
	switch {
	case err == nil:
		r.GratuityRate = numericToDecimal(gratuity.Rate)
	case !errors.Is(err, pgx.ErrNoRows):
		return r, fmt.Errorf("get active gratuity: %w", err)
	}

	c.rates = &r
	return r, nil
}
