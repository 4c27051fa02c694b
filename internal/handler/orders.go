package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kedai-pos/api/internal/cache"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/middleware"
	"github.com/kedai-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// IdempotencyHeader carries the client's retry key for order placement.
const IdempotencyHeader = "Idempotency-Key"

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)
	QuoteOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.Quote, error)
	ConfirmPayment(ctx context.Context, req service.ConfirmPaymentRequest) (*service.OrderResult, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID) (*service.CompletionResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemModifier, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	guard cache.RequestGuard
}

// NewOrderHandler creates a new OrderHandler. guard may be nil.
func NewOrderHandler(svc OrderServicer, store OrderStore, guard cache.RequestGuard) *OrderHandler {
	if guard == nil {
		guard = cache.NoopRequestGuard{}
	}
	return &OrderHandler{svc: svc, store: store, guard: guard}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Place)
	r.Post("/quote", h.Quote)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/payment", h.ConfirmPayment)
	r.Post("/{id}/complete", h.Complete)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	TableNumber string                  `json:"table_number"`
	Notes       string                  `json:"notes"`
	DiscountID  string                  `json:"discount_id"`
	Items       []placeOrderItemRequest `json:"items"`
}

type placeOrderItemRequest struct {
	MenuID      string   `json:"menu_id"`
	Quantity    int32    `json:"quantity"`
	Notes       string   `json:"notes"`
	ModifierIDs []string `json:"modifier_ids"`
}

type confirmPaymentRequest struct {
	PaymentMethod     string `json:"payment_method"`
	ExternalPaymentID string `json:"external_payment_id"`
}

type orderResponse struct {
	ID                  uuid.UUID           `json:"id"`
	OrderNumber         string              `json:"order_number"`
	TableNumber         *string             `json:"table_number"`
	Status              string              `json:"status"`
	PaymentStatus       string              `json:"payment_status"`
	PaymentMethod       *string             `json:"payment_method"`
	ExternalPaymentID   *string             `json:"external_payment_id"`
	DiscountID          *string             `json:"discount_id"`
	Subtotal            string              `json:"subtotal"`
	ItemDiscountAmount  string              `json:"item_discount_amount"`
	OrderDiscountAmount string              `json:"order_discount_amount"`
	TotalDiscount       string              `json:"total_discount"`
	TaxRate             string              `json:"tax_rate"`
	TaxAmount           string              `json:"tax_amount"`
	GratuityRate        string              `json:"gratuity_rate"`
	GratuityAmount      string              `json:"gratuity_amount"`
	RoundingAmount      string              `json:"rounding_amount"`
	TotalAmount         string              `json:"total_amount"`
	StockConsumed       bool                `json:"stock_consumed"`
	Notes               *string             `json:"notes"`
	CreatedBy           *string             `json:"created_by"`
	PaidAt              *time.Time          `json:"paid_at"`
	CompletedAt         *time.Time          `json:"completed_at"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	Items               []orderItemResponse `json:"items,omitempty"`
	Warnings            []string            `json:"warnings,omitempty"`
}

type orderItemResponse struct {
	ID             uuid.UUID                   `json:"id"`
	Position       int32                       `json:"position"`
	MenuID         uuid.UUID                   `json:"menu_id"`
	MenuName       string                      `json:"menu_name"`
	Category       string                      `json:"category"`
	Quantity       int32                       `json:"quantity"`
	BasePrice      string                      `json:"base_price"`
	UnitPrice      string                      `json:"unit_price"`
	Hpp            string                      `json:"hpp"`
	DiscountID     *string                     `json:"discount_id"`
	DiscountAmount string                      `json:"discount_amount"`
	Subtotal       string                      `json:"subtotal"`
	Notes          *string                     `json:"notes"`
	Modifiers      []orderItemModifierResponse `json:"modifiers"`
}

type orderItemModifierResponse struct {
	ID           uuid.UUID `json:"id"`
	ModifierID   uuid.UUID `json:"modifier_id"`
	ModifierName string    `json:"modifier_name"`
	UnitPrice    string    `json:"unit_price"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type quoteLineResponse struct {
	MenuID    uuid.UUID `json:"menu_id"`
	MenuName  string    `json:"menu_name"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Gross     string    `json:"gross"`
	Discount  string    `json:"discount"`
	Net       string    `json:"net"`
}

type quoteResponse struct {
	Lines          []quoteLineResponse `json:"lines"`
	Subtotal       string              `json:"subtotal"`
	ItemDiscount   string              `json:"item_discount"`
	OrderDiscount  string              `json:"order_discount"`
	TotalDiscount  string              `json:"total_discount"`
	TaxableBase    string              `json:"taxable_base"`
	TaxRate        string              `json:"tax_rate"`
	TaxAmount      string              `json:"tax_amount"`
	GratuityRate   string              `json:"gratuity_rate"`
	GratuityAmount string              `json:"gratuity_amount"`
	RawTotal       string              `json:"raw_total"`
	RoundingAmount string              `json:"rounding_amount"`
	TotalAmount    string              `json:"total_amount"`
	Warnings       []string            `json:"warnings,omitempty"`
}

type completionResponse struct {
	orderResponse
	CompletedOrderID uuid.UUID `json:"completed_order_id"`
}

// --- Handlers ---

// Place handles POST /orders.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated", Kind: "UNAUTHORIZED"})
		return
	}

	req, ok := decodePlaceRequest(w, r)
	if !ok {
		return
	}

	var guardKey string
	if key := r.Header.Get(IdempotencyHeader); key != "" {
		guardKey = claims.UserID.String() + ":" + key
		seen, err := h.guard.Seen(r.Context(), guardKey)
		if err != nil {
			log.Printf("WARN: idempotency check: %v", err)
		} else if seen {
			writeJSON(w, http.StatusConflict, errorResponse{
				Error: "duplicate request",
				Kind:  service.KindDuplicateRequest,
			})
			return
		}
	}

	svcReq := toPlaceOrderRequest(req)
	svcReq.CreatedBy = claims.UserID
	result, err := h.svc.PlaceOrder(r.Context(), svcReq)
	if err != nil {
		// Nothing was placed, so the same key stays usable for the retry.
		if guardKey != "" {
			if rerr := h.guard.Release(context.WithoutCancel(r.Context()), guardKey); rerr != nil {
				log.Printf("WARN: idempotency release: %v", rerr)
			}
		}
		writeError(w, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// Quote handles POST /orders/quote.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePlaceRequest(w, r)
	if !ok {
		return
	}

	q, err := h.svc.QuoteOrder(r.Context(), toPlaceOrderRequest(req))
	if err != nil {
		writeError(w, "quote order", err)
		return
	}

	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := database.OrderStatus(s)
		switch status {
		case database.OrderStatusPENDING, database.OrderStatusPROCESSING, database.OrderStatusCOMPLETED:
		default:
			writeBadRequest(w, "invalid status")
			return
		}
		params.Status = database.NullOrderStatus{OrderStatus: status, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeBadRequest(w, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeBadRequest(w, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, "get order", service.ErrOrderNotFound)
			return
		}
		writeError(w, "get order", err)
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, "list order items", err)
		return
	}
	mods, err := h.store.ListOrderItemModifiersByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, "list order item modifiers", err)
		return
	}

	byItem := make(map[uuid.UUID][]database.OrderItemModifier, len(items))
	for _, m := range mods {
		byItem[m.OrderItemID] = append(byItem[m.OrderItemID], m)
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item, byItem[item.ID])
	}

	writeJSON(w, http.StatusOK, resp)
}

// ConfirmPayment handles POST /orders/{id}/payment.
func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid order ID")
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.PaymentMethod == "" {
		writeBadRequest(w, "payment_method is required")
		return
	}

	result, err := h.svc.ConfirmPayment(r.Context(), service.ConfirmPaymentRequest{
		OrderID:           orderID,
		PaymentMethod:     req.PaymentMethod,
		ExternalPaymentID: req.ExternalPaymentID,
	})
	if err != nil {
		writeError(w, "confirm payment", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// Complete handles POST /orders/{id}/complete.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid order ID")
		return
	}

	result, err := h.svc.CompleteOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, "complete order", err)
		return
	}

	writeJSON(w, http.StatusOK, completionResponse{
		orderResponse:    dbOrderToResponse(result.Order),
		CompletedOrderID: result.CompletedOrder.ID,
	})
}

// --- Helpers ---

func decodePlaceRequest(w http.ResponseWriter, r *http.Request) (placeOrderRequest, bool) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return req, false
	}
	if len(req.Items) == 0 {
		writeBadRequest(w, "items are required")
		return req, false
	}
	return req, true
}

func toPlaceOrderRequest(req placeOrderRequest) service.PlaceOrderRequest {
	items := make([]service.OrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.OrderItemRequest{
			MenuID:      item.MenuID,
			Quantity:    item.Quantity,
			Notes:       item.Notes,
			ModifierIDs: item.ModifierIDs,
		}
	}
	return service.PlaceOrderRequest{
		TableNumber: req.TableNumber,
		Notes:       req.Notes,
		DiscountID:  req.DiscountID,
		Items:       items,
	}
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, ir := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(ir.Item, ir.Modifiers)
	}
	resp.Warnings = result.Warnings
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	var method *string
	if o.PaymentMethod.Valid {
		s := string(o.PaymentMethod.PaymentMethod)
		method = &s
	}
	return orderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		TableNumber:         textPtr(o.TableNumber),
		Status:              string(o.Status),
		PaymentStatus:       string(o.PaymentStatus),
		PaymentMethod:       method,
		ExternalPaymentID:   textPtr(o.ExternalPaymentID),
		DiscountID:          uuidPtr(o.DiscountID),
		Subtotal:            numericToString(o.Subtotal),
		ItemDiscountAmount:  numericToString(o.ItemDiscountAmount),
		OrderDiscountAmount: numericToString(o.OrderDiscountAmount),
		TotalDiscount:       numericToString(o.TotalDiscount),
		TaxRate:             numericToString(o.TaxRate),
		TaxAmount:           numericToString(o.TaxAmount),
		GratuityRate:        numericToString(o.GratuityRate),
		GratuityAmount:      numericToString(o.GratuityAmount),
		RoundingAmount:      numericToString(o.RoundingAmount),
		TotalAmount:         numericToString(o.TotalAmount),
		StockConsumed:       o.StockConsumed,
		Notes:               textPtr(o.Notes),
		CreatedBy:           uuidPtr(o.CreatedBy),
		PaidAt:              timePtr(o.PaidAt),
		CompletedAt:         timePtr(o.CompletedAt),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func dbOrderItemToResponse(item database.OrderItem, mods []database.OrderItemModifier) orderItemResponse {
	modResp := make([]orderItemModifierResponse, len(mods))
	for i, m := range mods {
		modResp[i] = orderItemModifierResponse{
			ID:           m.ID,
			ModifierID:   m.ModifierID,
			ModifierName: m.ModifierName,
			UnitPrice:    numericToString(m.UnitPrice),
		}
	}
	return orderItemResponse{
		ID:             item.ID,
		Position:       item.Position,
		MenuID:         item.MenuID,
		MenuName:       item.MenuName,
		Category:       item.Category,
		Quantity:       item.Quantity,
		BasePrice:      numericToString(item.BasePrice),
		UnitPrice:      numericToString(item.UnitPrice),
		Hpp:            numericToString(item.Hpp),
		DiscountID:     uuidPtr(item.DiscountID),
		DiscountAmount: numericToString(item.DiscountAmount),
		Subtotal:       numericToString(item.Subtotal),
		Notes:          textPtr(item.Notes),
		Modifiers:      modResp,
	}
}

func toQuoteResponse(q *service.Quote) quoteResponse {
	money := func(d decimal.Decimal) string { return d.StringFixed(2) }

	lines := make([]quoteLineResponse, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = quoteLineResponse{
			MenuID:    l.Menu.ID,
			MenuName:  l.Menu.Name,
			Quantity:  l.Quantity,
			UnitPrice: money(l.Priced.UnitPrice),
			Gross:     money(l.Priced.Gross),
			Discount:  money(l.Priced.Discount),
			Net:       money(l.Priced.Net),
		}
	}
	t := q.Totals
	return quoteResponse{
		Lines:          lines,
		Subtotal:       money(t.Subtotal),
		ItemDiscount:   money(t.ItemDiscount),
		OrderDiscount:  money(t.OrderDiscount),
		TotalDiscount:  money(t.TotalDiscount),
		TaxableBase:    money(t.TaxableBase),
		TaxRate:        money(t.TaxRate),
		TaxAmount:      money(t.TaxAmount),
		GratuityRate:   money(t.GratuityRate),
		GratuityAmount: money(t.GratuityAmount),
		RawTotal:       money(t.RawTotal),
		RoundingAmount: money(t.RoundingAdjustment),
		TotalAmount:    money(t.FinalTotal),
		Warnings:       q.Warnings,
	}
}
