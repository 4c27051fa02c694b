package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getMenuForOrder = `-- name: GetMenuForOrder :one
SELECT m.id, m.name, m.category, m.base_price, m.hpp, m.is_active, m.is_available,
       d.id AS discount_id, d.kind AS discount_kind, d.value AS discount_value
FROM menus m
LEFT JOIN discounts d
       ON d.id = m.discount_id AND d.is_active AND d.scope = 'MENU'
WHERE m.id = $1
`

type GetMenuForOrderRow struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	BasePrice     pgtype.Numeric   `json:"base_price"`
	Hpp           pgtype.Numeric   `json:"hpp"`
	IsActive      bool             `json:"is_active"`
	IsAvailable   bool             `json:"is_available"`
	DiscountID    pgtype.UUID      `json:"discount_id"`
	DiscountKind  NullDiscountKind `json:"discount_kind"`
	DiscountValue pgtype.Numeric   `json:"discount_value"`
}

// GetMenuForOrder returns the pricing snapshot of a menu. The joined discount
// is only present when it is active and MENU-scoped.
func (q *Queries) GetMenuForOrder(ctx context.Context, id uuid.UUID) (GetMenuForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuForOrder, id)
	var i GetMenuForOrderRow
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Category,
		&i.BasePrice,
		&i.Hpp,
		&i.IsActive,
		&i.IsAvailable,
		&i.DiscountID,
		&i.DiscountKind,
		&i.DiscountValue,
	)
	return i, err
}

const getModifierForOrder = `-- name: GetModifierForOrder :one
SELECT mo.id, mo.menu_id, mo.name, mo.price, mo.is_active,
       COALESCE(SUM(i.unit_cost * mi.amount), 0)::NUMERIC(12,2) AS unit_cost
FROM modifiers mo
LEFT JOIN modifier_ingredients mi ON mi.modifier_id = mo.id
LEFT JOIN ingredients i ON i.id = mi.ingredient_id
WHERE mo.id = $1
GROUP BY mo.id
`

type GetModifierForOrderRow struct {
	ID       uuid.UUID      `json:"id"`
	MenuID   uuid.UUID      `json:"menu_id"`
	Name     string         `json:"name"`
	Price    pgtype.Numeric `json:"price"`
	IsActive bool           `json:"is_active"`
	UnitCost pgtype.Numeric `json:"unit_cost"`
}

// GetModifierForOrder returns a modifier with its unit cost derived from its
// ingredient composition.
func (q *Queries) GetModifierForOrder(ctx context.Context, id uuid.UUID) (GetModifierForOrderRow, error) {
	row := q.db.QueryRow(ctx, getModifierForOrder, id)
	var i GetModifierForOrderRow
	err := row.Scan(
		&i.ID,
		&i.MenuID,
		&i.Name,
		&i.Price,
		&i.IsActive,
		&i.UnitCost,
	)
	return i, err
}

const getDiscount = `-- name: GetDiscount :one
SELECT id, name, scope, kind, value, is_active, created_at, updated_at
FROM discounts
WHERE id = $1
`

func (q *Queries) GetDiscount(ctx context.Context, id uuid.UUID) (Discount, error) {
	row := q.db.QueryRow(ctx, getDiscount, id)
	var i Discount
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Scope,
		&i.Kind,
		&i.Value,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getActiveTax = `-- name: GetActiveTax :one
SELECT id, name, rate, is_active, created_at
FROM taxes
WHERE is_active
LIMIT 1
`

func (q *Queries) GetActiveTax(ctx context.Context) (Tax, error) {
	row := q.db.QueryRow(ctx, getActiveTax)
	var i Tax
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Rate,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getActiveGratuity = `-- name: GetActiveGratuity :one
SELECT id, name, rate, is_active, created_at
FROM gratuities
WHERE is_active
LIMIT 1
`

func (q *Queries) GetActiveGratuity(ctx context.Context) (Gratuity, error) {
	row := q.db.QueryRow(ctx, getActiveGratuity)
	var i Gratuity
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Rate,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listMenuAvailability = `-- name: ListMenuAvailability :many
SELECT id, name, category, is_available, max_purchasable
FROM menus
WHERE is_active
ORDER BY category, name
`

type ListMenuAvailabilityRow struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	Category       string      `json:"category"`
	IsAvailable    bool        `json:"is_available"`
	MaxPurchasable pgtype.Int4 `json:"max_purchasable"`
}

func (q *Queries) ListMenuAvailability(ctx context.Context) ([]ListMenuAvailabilityRow, error) {
	rows, err := q.db.Query(ctx, listMenuAvailability)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListMenuAvailabilityRow
	for rows.Next() {
		var i ListMenuAvailabilityRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Category,
			&i.IsAvailable,
			&i.MaxPurchasable,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
