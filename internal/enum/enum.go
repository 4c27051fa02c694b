package enum

// ── Group A: State machines (enum types in DB) ──

const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusCompleted  = "COMPLETED"
)

const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	DiscountScopeMenu  = "MENU"
	DiscountScopeTotal = "TOTAL"
)

const (
	DiscountKindPercentage = "PERCENTAGE"
	DiscountKindFixed      = "FIXED"
)

// ── Group C: Borderline (carried in JWT claims, no DB constraint here) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Group B: Live feed labels (no DB constraint) ──

const (
	RoomOrders    = "orders"
	RoomInventory = "inventory"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderPaid          = "order.paid"
	EventOrderCompleted     = "order.completed"
	EventMenuAvailability   = "menu.availability"
	EventIngredientLowStock = "ingredient.low_stock"
)
