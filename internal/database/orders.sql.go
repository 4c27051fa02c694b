package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, table_number, status, payment_status, payment_method,
       external_payment_id, discount_id, subtotal, item_discount_amount, order_discount_amount,
       total_discount, tax_rate, tax_amount, gratuity_rate, gratuity_amount, rounding_amount,
       total_amount, stock_consumed, notes, created_by, paid_at, completed_at, created_at, updated_at`

func scanOrder(row scanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableNumber,
		&i.Status,
		&i.PaymentStatus,
		&i.PaymentMethod,
		&i.ExternalPaymentID,
		&i.DiscountID,
		&i.Subtotal,
		&i.ItemDiscountAmount,
		&i.OrderDiscountAmount,
		&i.TotalDiscount,
		&i.TaxRate,
		&i.TaxAmount,
		&i.GratuityRate,
		&i.GratuityAmount,
		&i.RoundingAmount,
		&i.TotalAmount,
		&i.StockConsumed,
		&i.Notes,
		&i.CreatedBy,
		&i.PaidAt,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getNextOrderNumber = `-- name: GetNextOrderNumber :one
SELECT (COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INTEGER)), 0) + 1)::INTEGER
FROM orders
`

func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	row := q.db.QueryRow(ctx, getNextOrderNumber)
	var next int32
	err := row.Scan(&next)
	return next, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    order_number, table_number, discount_id, subtotal, item_discount_amount,
    order_discount_amount, total_discount, tax_rate, tax_amount, gratuity_rate,
    gratuity_amount, rounding_amount, total_amount, notes, created_by
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber         string         `json:"order_number"`
	TableNumber         pgtype.Text    `json:"table_number"`
	DiscountID          pgtype.UUID    `json:"discount_id"`
	Subtotal            pgtype.Numeric `json:"subtotal"`
	ItemDiscountAmount  pgtype.Numeric `json:"item_discount_amount"`
	OrderDiscountAmount pgtype.Numeric `json:"order_discount_amount"`
	TotalDiscount       pgtype.Numeric `json:"total_discount"`
	TaxRate             pgtype.Numeric `json:"tax_rate"`
	TaxAmount           pgtype.Numeric `json:"tax_amount"`
	GratuityRate        pgtype.Numeric `json:"gratuity_rate"`
	GratuityAmount      pgtype.Numeric `json:"gratuity_amount"`
	RoundingAmount      pgtype.Numeric `json:"rounding_amount"`
	TotalAmount         pgtype.Numeric `json:"total_amount"`
	Notes               pgtype.Text    `json:"notes"`
	CreatedBy           pgtype.UUID    `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.TableNumber,
		arg.DiscountID,
		arg.Subtotal,
		arg.ItemDiscountAmount,
		arg.OrderDiscountAmount,
		arg.TotalDiscount,
		arg.TaxRate,
		arg.TaxAmount,
		arg.GratuityRate,
		arg.GratuityAmount,
		arg.RoundingAmount,
		arg.TotalAmount,
		arg.Notes,
		arg.CreatedBy,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (
    order_id, position, menu_id, menu_name, category, quantity, base_price,
    unit_price, hpp, discount_id, discount_amount, subtotal, notes
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
RETURNING id, order_id, position, menu_id, menu_name, category, quantity, base_price,
          unit_price, hpp, discount_id, discount_amount, subtotal, notes
`

type CreateOrderItemParams struct {
	OrderID        uuid.UUID      `json:"order_id"`
	Position       int32          `json:"position"`
	MenuID         uuid.UUID      `json:"menu_id"`
	MenuName       string         `json:"menu_name"`
	Category       string         `json:"category"`
	Quantity       int32          `json:"quantity"`
	BasePrice      pgtype.Numeric `json:"base_price"`
	UnitPrice      pgtype.Numeric `json:"unit_price"`
	Hpp            pgtype.Numeric `json:"hpp"`
	DiscountID     pgtype.UUID    `json:"discount_id"`
	DiscountAmount pgtype.Numeric `json:"discount_amount"`
	Subtotal       pgtype.Numeric `json:"subtotal"`
	Notes          pgtype.Text    `json:"notes"`
}

func scanOrderItem(row scanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Position,
		&i.MenuID,
		&i.MenuName,
		&i.Category,
		&i.Quantity,
		&i.BasePrice,
		&i.UnitPrice,
		&i.Hpp,
		&i.DiscountID,
		&i.DiscountAmount,
		&i.Subtotal,
		&i.Notes,
	)
	return i, err
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.Position,
		arg.MenuID,
		arg.MenuName,
		arg.Category,
		arg.Quantity,
		arg.BasePrice,
		arg.UnitPrice,
		arg.Hpp,
		arg.DiscountID,
		arg.DiscountAmount,
		arg.Subtotal,
		arg.Notes,
	)
	return scanOrderItem(row)
}

const createOrderItemModifier = `-- name: CreateOrderItemModifier :one
INSERT INTO order_item_modifiers (order_item_id, modifier_id, modifier_name, unit_price, unit_cost)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_item_id, modifier_id, modifier_name, unit_price, unit_cost
`

type CreateOrderItemModifierParams struct {
	OrderItemID  uuid.UUID      `json:"order_item_id"`
	ModifierID   uuid.UUID      `json:"modifier_id"`
	ModifierName string         `json:"modifier_name"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
	UnitCost     pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	row := q.db.QueryRow(ctx, createOrderItemModifier,
		arg.OrderItemID,
		arg.ModifierID,
		arg.ModifierName,
		arg.UnitPrice,
		arg.UnitCost,
	)
	var i OrderItemModifier
	err := row.Scan(
		&i.ID,
		&i.OrderItemID,
		&i.ModifierID,
		&i.ModifierName,
		&i.UnitPrice,
		&i.UnitCost,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR UPDATE
`

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::order_status IS NULL OR status = $1)
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	Status    NullOrderStatus    `json:"status"`
	StartDate pgtype.Timestamptz `json:"start_date"`
	EndDate   pgtype.Timestamptz `json:"end_date"`
	Limit     int32              `json:"limit"`
	Offset    int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
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

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, position, menu_id, menu_name, category, quantity, base_price,
       unit_price, hpp, discount_id, discount_amount, subtotal, notes
FROM order_items
WHERE order_id = $1
ORDER BY position
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const listOrderItemModifiersByOrder = `-- name: ListOrderItemModifiersByOrder :many
SELECT oim.id, oim.order_item_id, oim.modifier_id, oim.modifier_name, oim.unit_price, oim.unit_cost
FROM order_item_modifiers oim
JOIN order_items oi ON oi.id = oim.order_item_id
WHERE oi.order_id = $1
ORDER BY oi.position, oim.modifier_name
`

// ListOrderItemModifiersByOrder loads every modifier link of an order in one
// round trip; callers group them by OrderItemID.
func (q *Queries) ListOrderItemModifiersByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx, listOrderItemModifiersByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItemModifier
	for rows.Next() {
		var i OrderItemModifier
		if err := rows.Scan(
			&i.ID,
			&i.OrderItemID,
			&i.ModifierID,
			&i.ModifierName,
			&i.UnitPrice,
			&i.UnitCost,
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

const updateOrderItemPricing = `-- name: UpdateOrderItemPricing :exec
UPDATE order_items
SET base_price = $2, unit_price = $3, hpp = $4, discount_id = $5, discount_amount = $6, subtotal = $7
WHERE id = $1
`

type UpdateOrderItemPricingParams struct {
	ID             uuid.UUID      `json:"id"`
	BasePrice      pgtype.Numeric `json:"base_price"`
	UnitPrice      pgtype.Numeric `json:"unit_price"`
	Hpp            pgtype.Numeric `json:"hpp"`
	DiscountID     pgtype.UUID    `json:"discount_id"`
	DiscountAmount pgtype.Numeric `json:"discount_amount"`
	Subtotal       pgtype.Numeric `json:"subtotal"`
}

func (q *Queries) UpdateOrderItemPricing(ctx context.Context, arg UpdateOrderItemPricingParams) error {
	_, err := q.db.Exec(ctx, updateOrderItemPricing,
		arg.ID,
		arg.BasePrice,
		arg.UnitPrice,
		arg.Hpp,
		arg.DiscountID,
		arg.DiscountAmount,
		arg.Subtotal,
	)
	return err
}

const updateOrderItemModifierPricing = `-- name: UpdateOrderItemModifierPricing :exec
UPDATE order_item_modifiers
SET unit_price = $2, unit_cost = $3
WHERE id = $1
`

type UpdateOrderItemModifierPricingParams struct {
	ID        uuid.UUID      `json:"id"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	UnitCost  pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) UpdateOrderItemModifierPricing(ctx context.Context, arg UpdateOrderItemModifierPricingParams) error {
	_, err := q.db.Exec(ctx, updateOrderItemModifierPricing, arg.ID, arg.UnitPrice, arg.UnitCost)
	return err
}

const confirmOrderPayment = `-- name: ConfirmOrderPayment :one
UPDATE orders
SET status = 'PROCESSING',
    payment_status = $2,
    payment_method = $3,
    external_payment_id = $4,
    discount_id = $5,
    subtotal = $6,
    item_discount_amount = $7,
    order_discount_amount = $8,
    total_discount = $9,
    tax_rate = $10,
    tax_amount = $11,
    gratuity_rate = $12,
    gratuity_amount = $13,
    rounding_amount = $14,
    total_amount = $15,
    paid_at = CASE WHEN $2 = 'PAID'::payment_status THEN now() ELSE NULL END,
    updated_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + orderColumns

type ConfirmOrderPaymentParams struct {
	ID                  uuid.UUID      `json:"id"`
	PaymentStatus       PaymentStatus  `json:"payment_status"`
	PaymentMethod       PaymentMethod  `json:"payment_method"`
	ExternalPaymentID   pgtype.Text    `json:"external_payment_id"`
	DiscountID          pgtype.UUID    `json:"discount_id"`
	Subtotal            pgtype.Numeric `json:"subtotal"`
	ItemDiscountAmount  pgtype.Numeric `json:"item_discount_amount"`
	OrderDiscountAmount pgtype.Numeric `json:"order_discount_amount"`
	TotalDiscount       pgtype.Numeric `json:"total_discount"`
	TaxRate             pgtype.Numeric `json:"tax_rate"`
	TaxAmount           pgtype.Numeric `json:"tax_amount"`
	GratuityRate        pgtype.Numeric `json:"gratuity_rate"`
	GratuityAmount      pgtype.Numeric `json:"gratuity_amount"`
	RoundingAmount      pgtype.Numeric `json:"rounding_amount"`
	TotalAmount         pgtype.Numeric `json:"total_amount"`
}

// ConfirmOrderPayment moves a PENDING order to PROCESSING with the
// server-recomputed totals. Returns pgx.ErrNoRows if the order is not PENDING.
func (q *Queries) ConfirmOrderPayment(ctx context.Context, arg ConfirmOrderPaymentParams) (Order, error) {
	row := q.db.QueryRow(ctx, confirmOrderPayment,
		arg.ID,
		arg.PaymentStatus,
		arg.PaymentMethod,
		arg.ExternalPaymentID,
		arg.DiscountID,
		arg.Subtotal,
		arg.ItemDiscountAmount,
		arg.OrderDiscountAmount,
		arg.TotalDiscount,
		arg.TaxRate,
		arg.TaxAmount,
		arg.GratuityRate,
		arg.GratuityAmount,
		arg.RoundingAmount,
		arg.TotalAmount,
	)
	return scanOrder(row)
}

const markOrderStockConsumed = `-- name: MarkOrderStockConsumed :exec
UPDATE orders SET stock_consumed = true, updated_at = now() WHERE id = $1
`

func (q *Queries) MarkOrderStockConsumed(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, markOrderStockConsumed, id)
	return err
}

const completeOrder = `-- name: CompleteOrder :one
UPDATE orders
SET status = 'COMPLETED',
    payment_status = 'PAID',
    paid_at = COALESCE(paid_at, now()),
    completed_at = now(),
    updated_at = now()
WHERE id = $1 AND status = 'PROCESSING'
RETURNING ` + orderColumns

// CompleteOrder closes a PROCESSING order. Returns pgx.ErrNoRows otherwise.
func (q *Queries) CompleteOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, completeOrder, id))
}
