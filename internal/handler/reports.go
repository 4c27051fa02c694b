package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kedai-pos/api/internal/service"
)

// ReportServicer defines the report queries used by report handlers.
// Satisfied by *service.ReportService.
type ReportServicer interface {
	OrderAllocation(ctx context.Context, orderID uuid.UUID) (*service.OrderAllocation, error)
	MenuSales(ctx context.Context, start, end time.Time) ([]service.MenuSales, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	svc ReportServicer
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(svc ReportServicer) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu-sales", h.MenuSales)
	r.Get("/orders/{id}/allocation", h.OrderAllocation)
}

// --- Response types ---

type allocatedLineResponse struct {
	MenuID   uuid.UUID `json:"menu_id"`
	MenuName string    `json:"menu_name"`
	Quantity int32     `json:"quantity"`
	Gross    string    `json:"gross"`
	Discount string    `json:"discount"`
	Tax      string    `json:"tax"`
	Gratuity string    `json:"gratuity"`
	Net      string    `json:"net"`
}

type orderAllocationResponse struct {
	OrderID        uuid.UUID               `json:"order_id"`
	OrderNumber    string                  `json:"order_number"`
	PaymentMethod  string                  `json:"payment_method"`
	TotalDiscount  string                  `json:"total_discount"`
	TaxAmount      string                  `json:"tax_amount"`
	GratuityAmount string                  `json:"gratuity_amount"`
	TotalAmount    string                  `json:"total_amount"`
	CompletedAt    time.Time               `json:"completed_at"`
	Lines          []allocatedLineResponse `json:"lines"`
}

type menuSalesResponse struct {
	MenuID      uuid.UUID `json:"menu_id"`
	MenuName    string    `json:"menu_name"`
	Category    string    `json:"category"`
	Quantity    int64     `json:"quantity"`
	Gross       string    `json:"gross"`
	Discount    string    `json:"discount"`
	Tax         string    `json:"tax"`
	Gratuity    string    `json:"gratuity"`
	NetSales    string    `json:"net_sales"`
	Cost        string    `json:"cost"`
	GrossProfit string    `json:"gross_profit"`
}

// --- Handlers ---

// OrderAllocation returns the pro-rata breakdown of one completed order.
func (h *ReportsHandler) OrderAllocation(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid order ID")
		return
	}

	rep, err := h.svc.OrderAllocation(r.Context(), orderID)
	if err != nil {
		writeError(w, "order allocation", err)
		return
	}

	o := rep.Order
	resp := orderAllocationResponse{
		OrderID:        o.OrderID,
		OrderNumber:    o.OrderNumber,
		PaymentMethod:  string(o.PaymentMethod),
		TotalDiscount:  numericToString(o.TotalDiscount),
		TaxAmount:      numericToString(o.TaxAmount),
		GratuityAmount: numericToString(o.GratuityAmount),
		TotalAmount:    numericToString(o.TotalAmount),
		CompletedAt:    o.CompletedAt,
		Lines:          make([]allocatedLineResponse, len(rep.Lines)),
	}
	for i, l := range rep.Lines {
		a := l.Allocation
		resp.Lines[i] = allocatedLineResponse{
			MenuID:   l.Item.MenuID,
			MenuName: l.Item.MenuName,
			Quantity: l.Item.Quantity,
			Gross:    a.Gross.StringFixed(2),
			Discount: a.Discount.StringFixed(2),
			Tax:      a.Tax.StringFixed(2),
			Gratuity: a.Gratuity.StringFixed(2),
			Net:      a.Net.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// MenuSales returns per-menu sales for a given date range.
func (h *ReportsHandler) MenuSales(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	rows, err := h.svc.MenuSales(r.Context(), startDate, endDate)
	if err != nil {
		writeError(w, "menu sales", err)
		return
	}

	resp := make([]menuSalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = menuSalesResponse{
			MenuID:      row.MenuID,
			MenuName:    row.MenuName,
			Category:    row.Category,
			Quantity:    row.Quantity,
			Gross:       row.Gross.StringFixed(2),
			Discount:    row.Discount.StringFixed(2),
			Tax:         row.Tax.StringFixed(2),
			Gratuity:    row.Gratuity.StringFixed(2),
			NetSales:    row.NetSales.StringFixed(2),
			Cost:        row.Cost.StringFixed(2),
			GrossProfit: row.GrossProfit.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
