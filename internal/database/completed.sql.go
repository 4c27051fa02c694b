package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const completedOrderColumns = `id, order_id, order_number, table_number, payment_method, external_payment_id,
       discount_id, subtotal, total_discount, tax_amount, gratuity_amount, rounding_amount,
       total_amount, placed_at, paid_at, completed_at`

func scanCompletedOrder(row scanner) (CompletedOrder, error) {
	var i CompletedOrder
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.OrderNumber,
		&i.TableNumber,
		&i.PaymentMethod,
		&i.ExternalPaymentID,
		&i.DiscountID,
		&i.Subtotal,
		&i.TotalDiscount,
		&i.TaxAmount,
		&i.GratuityAmount,
		&i.RoundingAmount,
		&i.TotalAmount,
		&i.PlacedAt,
		&i.PaidAt,
		&i.CompletedAt,
	)
	return i, err
}

const createCompletedOrder = `-- name: CreateCompletedOrder :one
INSERT INTO completed_orders (
    order_id, order_number, table_number, payment_method, external_payment_id,
    discount_id, subtotal, total_discount, tax_amount, gratuity_amount,
    rounding_amount, total_amount, placed_at, paid_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
RETURNING ` + completedOrderColumns

type CreateCompletedOrderParams struct {
	OrderID           uuid.UUID          `json:"order_id"`
	OrderNumber       string             `json:"order_number"`
	TableNumber       pgtype.Text        `json:"table_number"`
	PaymentMethod     PaymentMethod      `json:"payment_method"`
	ExternalPaymentID pgtype.Text        `json:"external_payment_id"`
	DiscountID        pgtype.UUID        `json:"discount_id"`
	Subtotal          pgtype.Numeric     `json:"subtotal"`
	TotalDiscount     pgtype.Numeric     `json:"total_discount"`
	TaxAmount         pgtype.Numeric     `json:"tax_amount"`
	GratuityAmount    pgtype.Numeric     `json:"gratuity_amount"`
	RoundingAmount    pgtype.Numeric     `json:"rounding_amount"`
	TotalAmount       pgtype.Numeric     `json:"total_amount"`
	PlacedAt          time.Time          `json:"placed_at"`
	PaidAt            pgtype.Timestamptz `json:"paid_at"`
}

func (q *Queries) CreateCompletedOrder(ctx context.Context, arg CreateCompletedOrderParams) (CompletedOrder, error) {
	row := q.db.QueryRow(ctx, createCompletedOrder,
		arg.OrderID,
		arg.OrderNumber,
		arg.TableNumber,
		arg.PaymentMethod,
		arg.ExternalPaymentID,
		arg.DiscountID,
		arg.Subtotal,
		arg.TotalDiscount,
		arg.TaxAmount,
		arg.GratuityAmount,
		arg.RoundingAmount,
		arg.TotalAmount,
		arg.PlacedAt,
		arg.PaidAt,
	)
	return scanCompletedOrder(row)
}

const createCompletedOrderItem = `-- name: CreateCompletedOrderItem :one
INSERT INTO completed_order_items (
    completed_order_id, position, menu_id, menu_name, category, quantity,
    base_price, unit_price, hpp, discount_amount, subtotal, notes
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)
RETURNING id, completed_order_id, position, menu_id, menu_name, category, quantity,
          base_price, unit_price, hpp, discount_amount, subtotal, notes
`

type CreateCompletedOrderItemParams struct {
	CompletedOrderID uuid.UUID      `json:"completed_order_id"`
	Position         int32          `json:"position"`
	MenuID           uuid.UUID      `json:"menu_id"`
	MenuName         string         `json:"menu_name"`
	Category         string         `json:"category"`
	Quantity         int32          `json:"quantity"`
	BasePrice        pgtype.Numeric `json:"base_price"`
	UnitPrice        pgtype.Numeric `json:"unit_price"`
	Hpp              pgtype.Numeric `json:"hpp"`
	DiscountAmount   pgtype.Numeric `json:"discount_amount"`
	Subtotal         pgtype.Numeric `json:"subtotal"`
	Notes            pgtype.Text    `json:"notes"`
}

func scanCompletedOrderItem(row scanner) (CompletedOrderItem, error) {
	var i CompletedOrderItem
	err := row.Scan(
		&i.ID,
		&i.CompletedOrderID,
		&i.Position,
		&i.MenuID,
		&i.MenuName,
		&i.Category,
		&i.Quantity,
		&i.BasePrice,
		&i.UnitPrice,
		&i.Hpp,
		&i.DiscountAmount,
		&i.Subtotal,
		&i.Notes,
	)
	return i, err
}

func (q *Queries) CreateCompletedOrderItem(ctx context.Context, arg CreateCompletedOrderItemParams) (CompletedOrderItem, error) {
	row := q.db.QueryRow(ctx, createCompletedOrderItem,
		arg.CompletedOrderID,
		arg.Position,
		arg.MenuID,
		arg.MenuName,
		arg.Category,
		arg.Quantity,
		arg.BasePrice,
		arg.UnitPrice,
		arg.Hpp,
		arg.DiscountAmount,
		arg.Subtotal,
		arg.Notes,
	)
	return scanCompletedOrderItem(row)
}

const createCompletedOrderItemModifier = `-- name: CreateCompletedOrderItemModifier :exec
INSERT INTO completed_order_item_modifiers (completed_order_item_id, modifier_id, modifier_name, unit_price, unit_cost)
VALUES ($1, $2, $3, $4, $5)
`

type CreateCompletedOrderItemModifierParams struct {
	CompletedOrderItemID uuid.UUID      `json:"completed_order_item_id"`
	ModifierID           uuid.UUID      `json:"modifier_id"`
	ModifierName         string         `json:"modifier_name"`
	UnitPrice            pgtype.Numeric `json:"unit_price"`
	UnitCost             pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) CreateCompletedOrderItemModifier(ctx context.Context, arg CreateCompletedOrderItemModifierParams) error {
	_, err := q.db.Exec(ctx, createCompletedOrderItemModifier,
		arg.CompletedOrderItemID,
		arg.ModifierID,
		arg.ModifierName,
		arg.UnitPrice,
		arg.UnitCost,
	)
	return err
}

const getCompletedOrderByOrderID = `-- name: GetCompletedOrderByOrderID :one
SELECT ` + completedOrderColumns + `
FROM completed_orders
WHERE order_id = $1
`

func (q *Queries) GetCompletedOrderByOrderID(ctx context.Context, orderID uuid.UUID) (CompletedOrder, error) {
	return scanCompletedOrder(q.db.QueryRow(ctx, getCompletedOrderByOrderID, orderID))
}

const getCompletedOrder = `-- name: GetCompletedOrder :one
SELECT ` + completedOrderColumns + `
FROM completed_orders
WHERE id = $1
`

func (q *Queries) GetCompletedOrder(ctx context.Context, id uuid.UUID) (CompletedOrder, error) {
	return scanCompletedOrder(q.db.QueryRow(ctx, getCompletedOrder, id))
}

const listCompletedOrderItems = `-- name: ListCompletedOrderItems :many
SELECT id, completed_order_id, position, menu_id, menu_name, category, quantity,
       base_price, unit_price, hpp, discount_amount, subtotal, notes
FROM completed_order_items
WHERE completed_order_id = ANY($1::uuid[])
ORDER BY completed_order_id, position
`

// ListCompletedOrderItems returns the archived lines of every given completed order.
func (q *Queries) ListCompletedOrderItems(ctx context.Context, completedOrderIDs []uuid.UUID) ([]CompletedOrderItem, error) {
	rows, err := q.db.Query(ctx, listCompletedOrderItems, completedOrderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CompletedOrderItem
	for rows.Next() {
		i, err := scanCompletedOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCompletedOrders = `-- name: ListCompletedOrders :many
SELECT ` + completedOrderColumns + `
FROM completed_orders
WHERE completed_at >= $1 AND completed_at < $2
ORDER BY completed_at
`

type ListCompletedOrdersParams struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (q *Queries) ListCompletedOrders(ctx context.Context, arg ListCompletedOrdersParams) ([]CompletedOrder, error) {
	rows, err := q.db.Query(ctx, listCompletedOrders, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CompletedOrder
	for rows.Next() {
		i, err := scanCompletedOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
