package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// ReportStore defines the read-only queries over archived orders.
type ReportStore interface {
	GetCompletedOrderByOrderID(ctx context.Context, orderID uuid.UUID) (database.CompletedOrder, error)
	ListCompletedOrderItems(ctx context.Context, completedOrderIDs []uuid.UUID) ([]database.CompletedOrderItem, error)
	ListCompletedOrders(ctx context.Context, arg database.ListCompletedOrdersParams) ([]database.CompletedOrder, error)
}

// AllocatedLine is one archived line with its share of the order aggregates.
type AllocatedLine struct {
	Item       database.CompletedOrderItem
	Allocation pricing.Allocation
}

// OrderAllocation is the pro-rata breakdown of one completed order.
type OrderAllocation struct {
	Order database.CompletedOrder
	Lines []AllocatedLine
}

// MenuSales is the per-menu sales summary over a period.
type MenuSales struct {
	MenuID      uuid.UUID
	MenuName    string
	Category    string
	Quantity    int64
	Gross       decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	Gratuity    decimal.Decimal
	NetSales    decimal.Decimal
	Cost        decimal.Decimal
	GrossProfit decimal.Decimal
}

// ReportService builds read-side reports from completed orders.
type ReportService struct {
	store ReportStore
}

// NewReportService creates a new ReportService.
func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// OrderAllocation spreads the discount, tax and gratuity of the completed
// order archived for orderID over its lines.
func (s *ReportService) OrderAllocation(ctx context.Context, orderID uuid.UUID) (*OrderAllocation, error) {
	order, err := s.store.GetCompletedOrderByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompletedOrderNotFound
		}
		return nil, fmt.Errorf("get completed order: %w", err)
	}
	items, err := s.store.ListCompletedOrderItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, fmt.Errorf("list completed order items: %w", err)
	}
	return &OrderAllocation{Order: order, Lines: allocate(order, items)}, nil
}

// MenuSales aggregates allocated sales per menu for orders completed in
// [start, end).
func (s *ReportService) MenuSales(ctx context.Context, start, end time.Time) ([]MenuSales, error) {
	if !end.After(start) {
		return nil, ErrInvalidDateRange
	}
	orders, err := s.store.ListCompletedOrders(ctx, database.ListCompletedOrdersParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("list completed orders: %w", err)
	}
	if len(orders) == 0 {
		return []MenuSales{}, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.store.ListCompletedOrderItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list completed order items: %w", err)
	}
	byOrder := make(map[uuid.UUID][]database.CompletedOrderItem, len(orders))
	for _, it := range items {
		byOrder[it.CompletedOrderID] = append(byOrder[it.CompletedOrderID], it)
	}

	sales := make(map[uuid.UUID]*MenuSales)
	for _, o := range orders {
		for _, line := range allocate(o, byOrder[o.ID]) {
			it := line.Item
			row, ok := sales[it.MenuID]
			if !ok {
				row = &MenuSales{MenuID: it.MenuID, MenuName: it.MenuName, Category: it.Category}
				sales[it.MenuID] = row
			}
			a := line.Allocation
			cost := numericToDecimal(it.Hpp).Mul(decimal.NewFromInt32(it.Quantity))
			row.Quantity += int64(it.Quantity)
			row.Gross = row.Gross.Add(a.Gross)
			row.Discount = row.Discount.Add(a.Discount)
			row.Tax = row.Tax.Add(a.Tax)
			row.Gratuity = row.Gratuity.Add(a.Gratuity)
			row.NetSales = row.NetSales.Add(a.Net)
			row.Cost = row.Cost.Add(cost)
		}
	}

	out := make([]MenuSales, 0, len(sales))
	for _, row := range sales {
		row.Cost = row.Cost.Round(2)
		row.GrossProfit = row.NetSales.Sub(row.Cost)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NetSales.Equal(out[j].NetSales) {
			return out[i].NetSales.GreaterThan(out[j].NetSales)
		}
		return out[i].MenuName < out[j].MenuName
	})
	return out, nil
}

func allocate(order database.CompletedOrder, items []database.CompletedOrderItem) []AllocatedLine {
	gross := make([]decimal.Decimal, len(items))
	for i, it := range items {
		gross[i] = numericToDecimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity)).Round(2)
	}
	allocs := pricing.Allocate(gross, pricing.Aggregates{
		Discount: numericToDecimal(order.TotalDiscount),
		Tax:      numericToDecimal(order.TaxAmount),
		Gratuity: numericToDecimal(order.GratuityAmount),
	})
	out := make([]AllocatedLine, len(items))
	for i, it := range items {
		out[i] = AllocatedLine{Item: it, Allocation: allocs[i]}
	}
	return out
}
