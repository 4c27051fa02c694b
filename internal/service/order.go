package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/enum"
	"github.com/kedai-pos/api/internal/inventory"
	"github.com/kedai-pos/api/internal/pricing"
	"github.com/shopspring/decimal"
)

const maxTxAttempts = 3

// TxBeginner starts a new database transaction with explicit options.
// Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	inventory.Store
	CatalogStore
	GetNextOrderNumber(ctx context.Context) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemModifier, error)
	UpdateOrderItemPricing(ctx context.Context, arg database.UpdateOrderItemPricingParams) error
	UpdateOrderItemModifierPricing(ctx context.Context, arg database.UpdateOrderItemModifierPricingParams) error
	ConfirmOrderPayment(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error)
	MarkOrderStockConsumed(ctx context.Context, id uuid.UUID) error
	CompleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateCompletedOrder(ctx context.Context, arg database.CreateCompletedOrderParams) (database.CompletedOrder, error)
	CreateCompletedOrderItem(ctx context.Context, arg database.CreateCompletedOrderItemParams) (database.CompletedOrderItem, error)
	CreateCompletedOrderItemModifier(ctx context.Context, arg database.CreateCompletedOrderItemModifierParams) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// PlaceOrderRequest is the input for placing an order. IDs arrive as strings
// and are parsed here.
type PlaceOrderRequest struct {
	CreatedBy   uuid.UUID
	TableNumber string
	Notes       string
	DiscountID  string
	Items       []OrderItemRequest
}

// OrderItemRequest is a single line of the cart.
type OrderItemRequest struct {
	MenuID      string
	Quantity    int32
	Notes       string
	ModifierIDs []string
}

// OrderResult is an order with its items. Warnings lists recovered problems,
// such as a discount that was dropped.
type OrderResult struct {
	Order    database.Order
	Items    []OrderItemResult
	Warnings []string
}

// OrderItemResult is an item with its modifiers.
type OrderItemResult struct {
	Item      database.OrderItem
	Modifiers []database.OrderItemModifier
}

// QuoteLine is one priced cart line.
type QuoteLine struct {
	Menu      MenuSnapshot
	Modifiers []ModifierSnapshot
	Quantity  int32
	Priced    pricing.PricedLine
}

// Quote is a priced cart that was not persisted.
type Quote struct {
	Lines    []QuoteLine
	Totals   pricing.PricedOrder
	Warnings []string
}

// ConfirmPaymentRequest is the input for confirming payment of an order.
type ConfirmPaymentRequest struct {
	OrderID           uuid.UUID
	PaymentMethod     string
	ExternalPaymentID string
}

// CompletionResult is the closed order and its archived copy.
type CompletionResult struct {
	Order          database.Order
	CompletedOrder database.CompletedOrder
}

// OrderEvent is the payload of order.* live events.
type OrderEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	TableNumber   string    `json:"table_number,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   string    `json:"total_amount"`
}

// OrderService runs the order lifecycle: placement, payment confirmation and
// completion. Every operation is one REPEATABLE READ transaction.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	cache    inventory.Invalidator
	events   inventory.Publisher
}

// NewOrderService creates a new OrderService. cache and events may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, cache inventory.Invalidator, events inventory.Publisher) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, cache: cache, events: events}
}

// preparedLine holds a validated cart line and its catalog snapshot.
type preparedLine struct {
	menu      MenuSnapshot
	quantity  int32
	notes     pgtype.Text
	modifiers []ModifierSnapshot
}

func (l preparedLine) pricingLine() pricing.Line {
	prices := make([]decimal.Decimal, len(l.modifiers))
	for i, m := range l.modifiers {
		prices[i] = m.Price
	}
	return pricing.Line{
		MenuID:         l.menu.ID,
		BasePrice:      l.menu.BasePrice,
		ModifierPrices: prices,
		Quantity:       l.quantity,
		Discount:       l.menu.Discount,
	}
}

// unitCost is the per-unit cost basis: menu HPP plus modifier costs.
func (l preparedLine) unitCost() decimal.Decimal {
	cost := l.menu.Hpp
	for _, m := range l.modifiers {
		cost = cost.Add(m.UnitCost)
	}
	return cost
}

func (l preparedLine) soldLine() inventory.SoldLine {
	ids := make([]uuid.UUID, len(l.modifiers))
	for i, m := range l.modifiers {
		ids[i] = m.ID
	}
	return inventory.SoldLine{MenuID: l.menu.ID, ModifierIDs: ids, Quantity: l.quantity}
}

// PlaceOrder validates the cart, prices it from the current catalog and
// creates a PENDING order atomically. Retries the whole transaction on
// serialization failures and order_number collisions.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	discountID, err := parseOptionalID(req.DiscountID, ErrInvalidDiscountID)
	if err != nil {
		return nil, err
	}

	result, err := withRetry(ctx, func(ctx context.Context) (*OrderResult, error) {
		return s.placeOrderTx(ctx, req, discountID)
	})
	if err != nil {
		return nil, err
	}

	s.publishOrder(enum.EventOrderPlaced, result.Order)
	return result, nil
}

func (s *OrderService) placeOrderTx(ctx context.Context, req PlaceOrderRequest, discountID pgtype.UUID) (*OrderResult, error) {
	// --- Begin transaction ---
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	cat := NewCatalog(store)

	// --- Validate items against the catalog snapshot ---
	lines, err := prepareLines(ctx, cat, req.Items)
	if err != nil {
		return nil, err
	}

	// --- Price ---
	orderDiscount, warnings, err := resolveOrderDiscount(ctx, cat, discountID)
	if err != nil {
		return nil, err
	}
	rates, err := cat.Rates(ctx)
	if err != nil {
		return nil, err
	}
	priced := pricing.Price(pricingLines(lines), orderDiscount, rates)

	// --- Generate order number ---
	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:         fmt.Sprintf("ORD-%04d", nextNum),
		TableNumber:         optionalText(req.TableNumber),
		DiscountID:          discountRef(orderDiscount),
		Subtotal:            decimalToNumeric(priced.Subtotal),
		ItemDiscountAmount:  decimalToNumeric(priced.ItemDiscount),
		OrderDiscountAmount: decimalToNumeric(priced.OrderDiscount),
		TotalDiscount:       decimalToNumeric(priced.TotalDiscount),
		TaxRate:             decimalToNumeric(priced.TaxRate),
		TaxAmount:           decimalToNumeric(priced.TaxAmount),
		GratuityRate:        decimalToNumeric(priced.GratuityRate),
		GratuityAmount:      decimalToNumeric(priced.GratuityAmount),
		RoundingAmount:      decimalToNumeric(priced.RoundingAdjustment),
		TotalAmount:         decimalToNumeric(priced.FinalTotal),
		Notes:               optionalText(req.Notes),
		CreatedBy:           pgtype.UUID{Bytes: req.CreatedBy, Valid: req.CreatedBy != uuid.Nil},
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	var itemResults []OrderItemResult
	for i, l := range lines {
		pl := priced.Lines[i]
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:        order.ID,
			Position:       int32(i + 1),
			MenuID:         l.menu.ID,
			MenuName:       l.menu.Name,
			Category:       l.menu.Category,
			Quantity:       l.quantity,
			BasePrice:      decimalToNumeric(l.menu.BasePrice),
			UnitPrice:      decimalToNumeric(pl.UnitPrice),
			Hpp:            decimalToNumeric(l.unitCost()),
			DiscountID:     lineDiscountRef(l.menu.Discount, pl),
			DiscountAmount: decimalToNumeric(pl.Discount),
			Subtotal:       decimalToNumeric(pl.Net),
			Notes:          l.notes,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var modResults []database.OrderItemModifier
		for _, m := range l.modifiers {
			oim, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
				OrderItemID:  item.ID,
				ModifierID:   m.ID,
				ModifierName: m.Name,
				UnitPrice:    decimalToNumeric(m.Price),
				UnitCost:     decimalToNumeric(m.UnitCost),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item modifier: %w", err)
			}
			modResults = append(modResults, oim)
		}

		itemResults = append(itemResults, OrderItemResult{Item: item, Modifiers: modResults})
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	logDroppedDiscount(order.OrderNumber, warnings)
	return &OrderResult{Order: order, Items: itemResults, Warnings: warnings}, nil
}

// QuoteOrder prices a cart exactly as PlaceOrder would, without writing.
func (s *OrderService) QuoteOrder(ctx context.Context, req PlaceOrderRequest) (*Quote, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	discountID, err := parseOptionalID(req.DiscountID, ErrInvalidDiscountID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cat := NewCatalog(s.newStore(tx))
	lines, err := prepareLines(ctx, cat, req.Items)
	if err != nil {
		return nil, err
	}
	orderDiscount, warnings, err := resolveOrderDiscount(ctx, cat, discountID)
	if err != nil {
		return nil, err
	}
	rates, err := cat.Rates(ctx)
	if err != nil {
		return nil, err
	}
	priced := pricing.Price(pricingLines(lines), orderDiscount, rates)

	quote := &Quote{Totals: priced, Warnings: warnings}
	for i, l := range lines {
		quote.Lines = append(quote.Lines, QuoteLine{
			Menu:      l.menu,
			Modifiers: l.modifiers,
			Quantity:  l.quantity,
			Priced:    priced.Lines[i],
		})
	}
	return quote, nil
}

// ConfirmPayment re-prices a PENDING order from current catalog data, records
// the payment and moves it to PROCESSING. Methods paid at the counter consume
// stock in the same transaction.
func (s *OrderService) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*OrderResult, error) {
	method, err := validatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var stock *inventory.Result
	result, err := withRetry(ctx, func(ctx context.Context) (*OrderResult, error) {
		res, consumed, err := s.confirmPaymentTx(ctx, req, method)
		stock = consumed
		return res, err
	})
	if err != nil {
		return nil, err
	}

	inventory.Announce(ctx, s.cache, s.events, stock)
	s.publishOrder(enum.EventOrderPaid, result.Order)
	return result, nil
}

func (s *OrderService) confirmPaymentTx(ctx context.Context, req ConfirmPaymentRequest, method database.PaymentMethod) (*OrderResult, *inventory.Result, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOrder(ctx, store, req.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status != database.OrderStatusPENDING {
		return nil, nil, ErrAlreadyProcessed
	}

	items, mods, err := loadOrderItems(ctx, store, order.ID)
	if err != nil {
		return nil, nil, err
	}

	// --- Re-price from the current snapshot ---
	cat := NewCatalog(store)
	lines := make([]preparedLine, len(items))
	for i, it := range items {
		l, err := restoreLine(ctx, cat, it, mods[it.ID])
		if err != nil {
			return nil, nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		lines[i] = l
	}
	orderDiscount, warnings, err := resolveOrderDiscount(ctx, cat, order.DiscountID)
	if err != nil {
		return nil, nil, err
	}
	rates, err := cat.Rates(ctx)
	if err != nil {
		return nil, nil, err
	}
	priced := pricing.Price(pricingLines(lines), orderDiscount, rates)

	// --- Persist recomputed amounts ---
	for i, it := range items {
		l, pl := lines[i], priced.Lines[i]
		if err := store.UpdateOrderItemPricing(ctx, database.UpdateOrderItemPricingParams{
			ID:             it.ID,
			BasePrice:      decimalToNumeric(l.menu.BasePrice),
			UnitPrice:      decimalToNumeric(pl.UnitPrice),
			Hpp:            decimalToNumeric(l.unitCost()),
			DiscountID:     lineDiscountRef(l.menu.Discount, pl),
			DiscountAmount: decimalToNumeric(pl.Discount),
			Subtotal:       decimalToNumeric(pl.Net),
		}); err != nil {
			return nil, nil, fmt.Errorf("update order item pricing: %w", err)
		}
		for j, link := range mods[it.ID] {
			m := l.modifiers[j]
			if err := store.UpdateOrderItemModifierPricing(ctx, database.UpdateOrderItemModifierPricingParams{
				ID:        link.ID,
				UnitPrice: decimalToNumeric(m.Price),
				UnitCost:  decimalToNumeric(m.UnitCost),
			}); err != nil {
				return nil, nil, fmt.Errorf("update order item modifier pricing: %w", err)
			}
		}
	}

	paidNow := paidAtConfirmation(method)
	paymentStatus := database.PaymentStatusPENDING
	if paidNow {
		paymentStatus = database.PaymentStatusPAID
	}

	updated, err := store.ConfirmOrderPayment(ctx, database.ConfirmOrderPaymentParams{
		ID:                  order.ID,
		PaymentStatus:       paymentStatus,
		PaymentMethod:       method,
		ExternalPaymentID:   optionalText(req.ExternalPaymentID),
		DiscountID:          discountRef(orderDiscount),
		Subtotal:            decimalToNumeric(priced.Subtotal),
		ItemDiscountAmount:  decimalToNumeric(priced.ItemDiscount),
		OrderDiscountAmount: decimalToNumeric(priced.OrderDiscount),
		TotalDiscount:       decimalToNumeric(priced.TotalDiscount),
		TaxRate:             decimalToNumeric(priced.TaxRate),
		TaxAmount:           decimalToNumeric(priced.TaxAmount),
		GratuityRate:        decimalToNumeric(priced.GratuityRate),
		GratuityAmount:      decimalToNumeric(priced.GratuityAmount),
		RoundingAmount:      decimalToNumeric(priced.RoundingAdjustment),
		TotalAmount:         decimalToNumeric(priced.FinalTotal),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrAlreadyProcessed
		}
		return nil, nil, fmt.Errorf("confirm order payment: %w", err)
	}

	// --- Consume stock for methods paid at the counter ---
	stock := &inventory.Result{}
	if paidNow {
		stock, err = consumeOrder(ctx, store, lines)
		if err != nil {
			return nil, nil, err
		}
		if err := store.MarkOrderStockConsumed(ctx, order.ID); err != nil {
			return nil, nil, fmt.Errorf("mark stock consumed: %w", err)
		}
		updated.StockConsumed = true
	}

	items, mods, err = loadOrderItems(ctx, store, order.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	logDroppedDiscount(updated.OrderNumber, warnings)
	return &OrderResult{Order: updated, Items: groupItems(items, mods), Warnings: warnings}, stock, nil
}

// CompleteOrder closes a PROCESSING order and archives its full item graph.
// Orders whose stock was not consumed at confirmation (TRANSFER) are consumed
// here. Completing twice fails with ErrAlreadyCompleted.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID uuid.UUID) (*CompletionResult, error) {
	var stock *inventory.Result
	result, err := withRetry(ctx, func(ctx context.Context) (*CompletionResult, error) {
		res, consumed, err := s.completeOrderTx(ctx, orderID)
		stock = consumed
		return res, err
	})
	if err != nil {
		return nil, err
	}

	inventory.Announce(ctx, s.cache, s.events, stock)
	s.publishOrder(enum.EventOrderCompleted, result.Order)
	return result, nil
}

func (s *OrderService) completeOrderTx(ctx context.Context, orderID uuid.UUID) (*CompletionResult, *inventory.Result, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOrder(ctx, store, orderID)
	if err != nil {
		return nil, nil, err
	}
	switch order.Status {
	case database.OrderStatusCOMPLETED:
		return nil, nil, ErrAlreadyCompleted
	case database.OrderStatusPENDING:
		return nil, nil, ErrNotYetPaid
	}

	items, mods, err := loadOrderItems(ctx, store, order.ID)
	if err != nil {
		return nil, nil, err
	}

	stock := &inventory.Result{}
	if !order.StockConsumed {
		sold := make([]inventory.SoldLine, len(items))
		for i, it := range items {
			sold[i] = soldLineOf(it, mods[it.ID])
		}
		stock, err = inventory.Consume(ctx, store, sold)
		if err != nil {
			return nil, nil, err
		}
		if err := store.MarkOrderStockConsumed(ctx, order.ID); err != nil {
			return nil, nil, fmt.Errorf("mark stock consumed: %w", err)
		}
	}

	closed, err := store.CompleteOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotYetPaid
		}
		return nil, nil, fmt.Errorf("complete order: %w", err)
	}
	closed.StockConsumed = true

	// --- Archive ---
	archived, err := store.CreateCompletedOrder(ctx, database.CreateCompletedOrderParams{
		OrderID:           closed.ID,
		OrderNumber:       closed.OrderNumber,
		TableNumber:       closed.TableNumber,
		PaymentMethod:     closed.PaymentMethod.PaymentMethod,
		ExternalPaymentID: closed.ExternalPaymentID,
		DiscountID:        closed.DiscountID,
		Subtotal:          closed.Subtotal,
		TotalDiscount:     closed.TotalDiscount,
		TaxAmount:         closed.TaxAmount,
		GratuityAmount:    closed.GratuityAmount,
		RoundingAmount:    closed.RoundingAmount,
		TotalAmount:       closed.TotalAmount,
		PlacedAt:          closed.CreatedAt,
		PaidAt:            closed.PaidAt,
	})
	if err != nil {
		if isUniqueViolation(err, "completed_orders_order_id_key") {
			return nil, nil, ErrAlreadyCompleted
		}
		return nil, nil, fmt.Errorf("create completed order: %w", err)
	}

	menuIDs := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		archivedItem, err := store.CreateCompletedOrderItem(ctx, database.CreateCompletedOrderItemParams{
			CompletedOrderID: archived.ID,
			Position:         it.Position,
			MenuID:           it.MenuID,
			MenuName:         it.MenuName,
			Category:         it.Category,
			Quantity:         it.Quantity,
			BasePrice:        it.BasePrice,
			UnitPrice:        it.UnitPrice,
			Hpp:              it.Hpp,
			DiscountAmount:   it.DiscountAmount,
			Subtotal:         it.Subtotal,
			Notes:            it.Notes,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create completed order item: %w", err)
		}
		for _, m := range mods[it.ID] {
			if err := store.CreateCompletedOrderItemModifier(ctx, database.CreateCompletedOrderItemModifierParams{
				CompletedOrderItemID: archivedItem.ID,
				ModifierID:           m.ModifierID,
				ModifierName:         m.ModifierName,
				UnitPrice:            m.UnitPrice,
				UnitCost:             m.UnitCost,
			}); err != nil {
				return nil, nil, fmt.Errorf("create completed order item modifier: %w", err)
			}
		}
		if !seen[it.MenuID] {
			seen[it.MenuID] = true
			menuIDs = append(menuIDs, it.MenuID)
		}
	}

	// --- Second availability pass ---
	avail, err := inventory.RecomputeMenus(ctx, store, menuIDs)
	if err != nil {
		return nil, nil, err
	}
	stock.Availability = mergeAvailability(stock.Availability, avail)

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CompletionResult{Order: closed, CompletedOrder: archived}, stock, nil
}

// withRetry runs fn up to maxTxAttempts times while it fails with a
// transient conflict.
func withRetry[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return result, err
		}
		lastErr = err
	}
	var zero T
	return zero, lastErr
}

// isRetryable reports serialization failures, deadlocks and order_number
// collisions between concurrent placements.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	case "23505":
		return pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

// --- Helpers ---

// prepareLines validates every cart line against the catalog snapshot.
func prepareLines(ctx context.Context, cat *Catalog, items []OrderItemRequest) ([]preparedLine, error) {
	lines := make([]preparedLine, 0, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		menuID, err := uuid.Parse(item.MenuID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuID)
		}
		menu, err := cat.Menu(ctx, menuID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		if !menu.IsActive {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuInactive)
		}
		if !menu.IsAvailable {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuUnavailable)
		}

		line := preparedLine{menu: menu, quantity: item.Quantity, notes: optionalText(item.Notes)}
		chosen := make(map[uuid.UUID]bool, len(item.ModifierIDs))
		for j, raw := range item.ModifierIDs {
			modID, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrInvalidModifierID)
			}
			if chosen[modID] {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrDuplicateModifier)
			}
			chosen[modID] = true

			mod, err := cat.Modifier(ctx, modID)
			if err != nil {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, err)
			}
			if !mod.IsActive {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrModifierNotFound)
			}
			if mod.MenuID != menuID {
				return nil, fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrModifierMismatch)
			}
			line.modifiers = append(line.modifiers, mod)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// restoreLine rebuilds a persisted line against the current catalog. Menus
// deactivated since placement are still priced; the sale already happened.
func restoreLine(ctx context.Context, cat *Catalog, item database.OrderItem, links []database.OrderItemModifier) (preparedLine, error) {
	menu, err := cat.Menu(ctx, item.MenuID)
	if err != nil {
		return preparedLine{}, err
	}
	line := preparedLine{menu: menu, quantity: item.Quantity, notes: item.Notes}
	for _, link := range links {
		mod, err := cat.Modifier(ctx, link.ModifierID)
		if err != nil {
			return preparedLine{}, err
		}
		line.modifiers = append(line.modifiers, mod)
	}
	return line, nil
}

// resolveOrderDiscount looks up the selected order discount. An unusable
// discount is dropped and reported as a warning instead of failing the order.
func resolveOrderDiscount(ctx context.Context, cat *Catalog, id pgtype.UUID) (*pricing.Discount, []string, error) {
	if !id.Valid {
		return nil, nil, nil
	}
	d, err := cat.OrderDiscount(ctx, id.Bytes)
	if err != nil {
		if errors.Is(err, ErrInvalidDiscount) {
			return nil, []string{fmt.Sprintf("discount %s dropped: %v", uuid.UUID(id.Bytes), err)}, nil
		}
		return nil, nil, err
	}
	return d, nil, nil
}

func consumeOrder(ctx context.Context, store OrderStore, lines []preparedLine) (*inventory.Result, error) {
	sold := make([]inventory.SoldLine, len(lines))
	for i, l := range lines {
		sold[i] = l.soldLine()
	}
	return inventory.Consume(ctx, store, sold)
}

func lockOrder(ctx context.Context, store OrderStore, id uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// loadOrderItems returns the items of an order and its modifier links
// grouped by order item ID.
func loadOrderItems(ctx context.Context, store OrderStore, orderID uuid.UUID) ([]database.OrderItem, map[uuid.UUID][]database.OrderItemModifier, error) {
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("list order items: %w", err)
	}
	links, err := store.ListOrderItemModifiersByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("list order item modifiers: %w", err)
	}
	mods := make(map[uuid.UUID][]database.OrderItemModifier)
	for _, m := range links {
		mods[m.OrderItemID] = append(mods[m.OrderItemID], m)
	}
	return items, mods, nil
}

func groupItems(items []database.OrderItem, mods map[uuid.UUID][]database.OrderItemModifier) []OrderItemResult {
	out := make([]OrderItemResult, len(items))
	for i, it := range items {
		out[i] = OrderItemResult{Item: it, Modifiers: mods[it.ID]}
	}
	return out
}

func soldLineOf(item database.OrderItem, links []database.OrderItemModifier) inventory.SoldLine {
	ids := make([]uuid.UUID, len(links))
	for i, m := range links {
		ids[i] = m.ModifierID
	}
	return inventory.SoldLine{MenuID: item.MenuID, ModifierIDs: ids, Quantity: item.Quantity}
}

// mergeAvailability overlays later recomputes on earlier ones, keyed by menu.
func mergeAvailability(earlier, later []inventory.MenuAvailability) []inventory.MenuAvailability {
	out := make([]inventory.MenuAvailability, 0, len(earlier)+len(later))
	pos := make(map[uuid.UUID]int, len(earlier)+len(later))
	for _, list := range [][]inventory.MenuAvailability{earlier, later} {
		for _, a := range list {
			if i, ok := pos[a.MenuID]; ok {
				out[i] = a
				continue
			}
			pos[a.MenuID] = len(out)
			out = append(out, a)
		}
	}
	return out
}

func (s *OrderService) publishOrder(eventType string, o database.Order) {
	if s.events == nil {
		return
	}
	s.events.Publish(enum.RoomOrders, eventType, OrderEvent{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		TableNumber:   o.TableNumber.String,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   numericToDecimal(o.TotalAmount).StringFixed(2),
	})
}

func logDroppedDiscount(orderNumber string, warnings []string) {
	for _, w := range warnings {
		log.Printf("WARN: order %s: %s", orderNumber, w)
	}
}

func pricingLines(lines []preparedLine) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = l.pricingLine()
	}
	return out
}

func validatePaymentMethod(s string) (database.PaymentMethod, error) {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard,
		enum.PaymentMethodQRIS, enum.PaymentMethodTransfer:
		return database.PaymentMethod(s), nil
	}
	return "", ErrInvalidPaymentMethod
}

// paidAtConfirmation reports whether money changes hands when payment is
// confirmed. Transfers are verified at completion.
func paidAtConfirmation(m database.PaymentMethod) bool {
	return m != database.PaymentMethodTRANSFER
}

func parseOptionalID(s string, invalid error) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, invalid
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func discountRef(d *pricing.Discount) pgtype.UUID {
	if d == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: d.ID, Valid: true}
}

// lineDiscountRef records the menu discount only when it reduced the line.
func lineDiscountRef(d *pricing.Discount, pl pricing.PricedLine) pgtype.UUID {
	if d == nil || !pl.Discount.IsPositive() {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: d.ID, Valid: true}
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
