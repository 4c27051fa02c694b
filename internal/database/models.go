package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type DiscountScope string

const (
	DiscountScopeMENU  DiscountScope = "MENU"
	DiscountScopeTOTAL DiscountScope = "TOTAL"
)

func (e *DiscountScope) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = DiscountScope(s)
	case string:
		*e = DiscountScope(s)
	default:
		return fmt.Errorf("unsupported scan type for DiscountScope: %T", src)
	}
	return nil
}

type DiscountKind string

const (
	DiscountKindPERCENTAGE DiscountKind = "PERCENTAGE"
	DiscountKindFIXED      DiscountKind = "FIXED"
)

func (e *DiscountKind) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = DiscountKind(s)
	case string:
		*e = DiscountKind(s)
	default:
		return fmt.Errorf("unsupported scan type for DiscountKind: %T", src)
	}
	return nil
}

type NullDiscountKind struct {
	DiscountKind DiscountKind
	Valid        bool
}

func (ns *NullDiscountKind) Scan(value interface{}) error {
	if value == nil {
		ns.DiscountKind, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.DiscountKind.Scan(value)
}

func (ns NullDiscountKind) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.DiscountKind), nil
}

type OrderStatus string

const (
	OrderStatusPENDING    OrderStatus = "PENDING"
	OrderStatusPROCESSING OrderStatus = "PROCESSING"
	OrderStatusCOMPLETED  OrderStatus = "COMPLETED"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool
}

func (ns *NullOrderStatus) Scan(value interface{}) error {
	if value == nil {
		ns.OrderStatus, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.OrderStatus.Scan(value)
}

func (ns NullOrderStatus) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.OrderStatus), nil
}

type PaymentStatus string

const (
	PaymentStatusPENDING PaymentStatus = "PENDING"
	PaymentStatusPAID    PaymentStatus = "PAID"
)

func (e *PaymentStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentStatus(s)
	case string:
		*e = PaymentStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentStatus: %T", src)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodCASH     PaymentMethod = "CASH"
	PaymentMethodCARD     PaymentMethod = "CARD"
	PaymentMethodQRIS     PaymentMethod = "QRIS"
	PaymentMethodTRANSFER PaymentMethod = "TRANSFER"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

type NullPaymentMethod struct {
	PaymentMethod PaymentMethod
	Valid         bool
}

func (ns *NullPaymentMethod) Scan(value interface{}) error {
	if value == nil {
		ns.PaymentMethod, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.PaymentMethod.Scan(value)
}

func (ns NullPaymentMethod) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.PaymentMethod), nil
}

type Discount struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Scope     DiscountScope  `json:"scope"`
	Kind      DiscountKind   `json:"kind"`
	Value     pgtype.Numeric `json:"value"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Tax struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Rate      pgtype.Numeric `json:"rate"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
}

type Gratuity struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Rate      pgtype.Numeric `json:"rate"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
}

type Ingredient struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Unit              string         `json:"unit"`
	StartQuantity     pgtype.Numeric `json:"start_quantity"`
	StockInQuantity   pgtype.Numeric `json:"stock_in_quantity"`
	UsedQuantity      pgtype.Numeric `json:"used_quantity"`
	WastedQuantity    pgtype.Numeric `json:"wasted_quantity"`
	Stock             pgtype.Numeric `json:"stock"`
	StockMinThreshold pgtype.Numeric `json:"stock_min_threshold"`
	UnitCost          pgtype.Numeric `json:"unit_cost"`
	IsSemiFinished    bool           `json:"is_semi_finished"`
	BatchYield        pgtype.Numeric `json:"batch_yield"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type SemiFinishedComposition struct {
	SemiFinishedID uuid.UUID      `json:"semi_finished_id"`
	IngredientID   uuid.UUID      `json:"ingredient_id"`
	Amount         pgtype.Numeric `json:"amount"`
}

type IngredientWasteEntry struct {
	ID           uuid.UUID      `json:"id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Quantity     pgtype.Numeric `json:"quantity"`
	Reason       pgtype.Text    `json:"reason"`
	RecordedBy   pgtype.UUID    `json:"recorded_by"`
	CreatedAt    time.Time      `json:"created_at"`
}

type Order struct {
	ID                  uuid.UUID          `json:"id"`
	OrderNumber         string             `json:"order_number"`
	TableNumber         pgtype.Text        `json:"table_number"`
	Status              OrderStatus        `json:"status"`
	PaymentStatus       PaymentStatus      `json:"payment_status"`
	PaymentMethod       NullPaymentMethod  `json:"payment_method"`
	ExternalPaymentID   pgtype.Text        `json:"external_payment_id"`
	DiscountID          pgtype.UUID        `json:"discount_id"`
	Subtotal            pgtype.Numeric     `json:"subtotal"`
	ItemDiscountAmount  pgtype.Numeric     `json:"item_discount_amount"`
	OrderDiscountAmount pgtype.Numeric     `json:"order_discount_amount"`
	TotalDiscount       pgtype.Numeric     `json:"total_discount"`
	TaxRate             pgtype.Numeric     `json:"tax_rate"`
	TaxAmount           pgtype.Numeric     `json:"tax_amount"`
	GratuityRate        pgtype.Numeric     `json:"gratuity_rate"`
	GratuityAmount      pgtype.Numeric     `json:"gratuity_amount"`
	RoundingAmount      pgtype.Numeric     `json:"rounding_amount"`
	TotalAmount         pgtype.Numeric     `json:"total_amount"`
	StockConsumed       bool               `json:"stock_consumed"`
	Notes               pgtype.Text        `json:"notes"`
	CreatedBy           pgtype.UUID        `json:"created_by"`
	PaidAt              pgtype.Timestamptz `json:"paid_at"`
	CompletedAt         pgtype.Timestamptz `json:"completed_at"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

type OrderItem struct {
	ID             uuid.UUID      `json:"id"`
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

type OrderItemModifier struct {
	ID           uuid.UUID      `json:"id"`
	OrderItemID  uuid.UUID      `json:"order_item_id"`
	ModifierID   uuid.UUID      `json:"modifier_id"`
	ModifierName string         `json:"modifier_name"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
	UnitCost     pgtype.Numeric `json:"unit_cost"`
}

type CompletedOrder struct {
	ID                uuid.UUID          `json:"id"`
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
	CompletedAt       time.Time          `json:"completed_at"`
}

type CompletedOrderItem struct {
	ID               uuid.UUID      `json:"id"`
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

type CompletedOrderItemModifier struct {
	ID                   uuid.UUID      `json:"id"`
	CompletedOrderItemID uuid.UUID      `json:"completed_order_item_id"`
	ModifierID           uuid.UUID      `json:"modifier_id"`
	ModifierName         string         `json:"modifier_name"`
	UnitPrice            pgtype.Numeric `json:"unit_price"`
	UnitCost             pgtype.Numeric `json:"unit_cost"`
}
