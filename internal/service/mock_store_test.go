package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kedai-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner hands out a fresh mockTx per transaction and records the
// options each was started with.
type mockTxBeginner struct {
	txs  []*mockTx
	opts []pgx.TxOptions
	err  error
}

func (m *mockTxBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	tx := &mockTx{}
	m.txs = append(m.txs, tx)
	m.opts = append(m.opts, opts)
	return tx, nil
}

func (m *mockTxBeginner) committed() int {
	n := 0
	for _, tx := range m.txs {
		if tx.committed {
			n++
		}
	}
	return n
}

type recipeLine struct {
	ingredientID uuid.UUID
	amount       decimal.Decimal
}

// mockOrderStore is an in-memory OrderStore. Writes are not rolled back when
// a transaction fails; tests assert on commits instead.
type mockOrderStore struct {
	menus        map[uuid.UUID]database.GetMenuForOrderRow
	modifiers    map[uuid.UUID]database.GetModifierForOrderRow
	discounts    map[uuid.UUID]database.Discount
	taxRate      string
	gratuityRate string

	nextNumber int32
	orders     map[uuid.UUID]*database.Order
	items      map[uuid.UUID][]database.OrderItem
	links      map[uuid.UUID][]database.OrderItemModifier
	itemOrder  map[uuid.UUID]uuid.UUID

	completed      []database.CompletedOrder
	completedItems []database.CompletedOrderItem
	completedMods  int

	stock        map[uuid.UUID]decimal.Decimal
	names        map[uuid.UUID]string
	menuRecipes  map[uuid.UUID][]recipeLine
	modRecipes   map[uuid.UUID][]recipeLine
	availability map[uuid.UUID]database.UpdateMenuAvailabilityParams
	usageWrites  int

	// createOrderErrs are returned by successive CreateOrder calls.
	createOrderErrs  []error
	createOrderCalls int
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		menus:        make(map[uuid.UUID]database.GetMenuForOrderRow),
		modifiers:    make(map[uuid.UUID]database.GetModifierForOrderRow),
		discounts:    make(map[uuid.UUID]database.Discount),
		nextNumber:   1,
		orders:       make(map[uuid.UUID]*database.Order),
		items:        make(map[uuid.UUID][]database.OrderItem),
		links:        make(map[uuid.UUID][]database.OrderItemModifier),
		itemOrder:    make(map[uuid.UUID]uuid.UUID),
		stock:        make(map[uuid.UUID]decimal.Decimal),
		names:        make(map[uuid.UUID]string),
		menuRecipes:  make(map[uuid.UUID][]recipeLine),
		modRecipes:   make(map[uuid.UUID][]recipeLine),
		availability: make(map[uuid.UUID]database.UpdateMenuAvailabilityParams),
	}
}

// --- Fixture builders ---

func (s *mockOrderStore) addMenu(name, price string) uuid.UUID {
	id := uuid.New()
	s.menus[id] = database.GetMenuForOrderRow{
		ID:          id,
		Name:        name,
		Category:    "Coffee",
		BasePrice:   makeNumeric(price),
		Hpp:         makeNumeric("5000"),
		IsActive:    true,
		IsAvailable: true,
	}
	return id
}

func (s *mockOrderStore) attachMenuDiscount(menuID uuid.UUID, kind database.DiscountKind, value string) uuid.UUID {
	id := uuid.New()
	m := s.menus[menuID]
	m.DiscountID = pgtype.UUID{Bytes: id, Valid: true}
	m.DiscountKind = database.NullDiscountKind{DiscountKind: kind, Valid: true}
	m.DiscountValue = makeNumeric(value)
	s.menus[menuID] = m
	return id
}

func (s *mockOrderStore) addModifier(menuID uuid.UUID, name, price, cost string) uuid.UUID {
	id := uuid.New()
	s.modifiers[id] = database.GetModifierForOrderRow{
		ID:       id,
		MenuID:   menuID,
		Name:     name,
		Price:    makeNumeric(price),
		IsActive: true,
		UnitCost: makeNumeric(cost),
	}
	return id
}

func (s *mockOrderStore) addDiscount(scope database.DiscountScope, kind database.DiscountKind, value string, active bool) uuid.UUID {
	id := uuid.New()
	s.discounts[id] = database.Discount{
		ID:       id,
		Name:     "promo",
		Scope:    scope,
		Kind:     kind,
		Value:    makeNumeric(value),
		IsActive: active,
	}
	return id
}

func (s *mockOrderStore) addIngredient(name, stock string) uuid.UUID {
	id := uuid.New()
	s.stock[id] = decimal.RequireFromString(stock)
	s.names[id] = name
	return id
}

func (s *mockOrderStore) useInMenu(menuID, ingredientID uuid.UUID, amount string) {
	s.menuRecipes[menuID] = append(s.menuRecipes[menuID], recipeLine{ingredientID, decimal.RequireFromString(amount)})
}

func (s *mockOrderStore) useInModifier(modID, ingredientID uuid.UUID, amount string) {
	s.modRecipes[modID] = append(s.modRecipes[modID], recipeLine{ingredientID, decimal.RequireFromString(amount)})
}

// --- CatalogStore ---

func (s *mockOrderStore) GetMenuForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuForOrderRow, error) {
	m, ok := s.menus[id]
	if !ok {
		return database.GetMenuForOrderRow{}, pgx.ErrNoRows
	}
	return m, nil
}

func (s *mockOrderStore) GetModifierForOrder(ctx context.Context, id uuid.UUID) (database.GetModifierForOrderRow, error) {
	m, ok := s.modifiers[id]
	if !ok {
		return database.GetModifierForOrderRow{}, pgx.ErrNoRows
	}
	return m, nil
}

func (s *mockOrderStore) GetDiscount(ctx context.Context, id uuid.UUID) (database.Discount, error) {
	d, ok := s.discounts[id]
	if !ok {
		return database.Discount{}, pgx.ErrNoRows
	}
	return d, nil
}

func (s *mockOrderStore) GetActiveTax(ctx context.Context) (database.Tax, error) {
	if s.taxRate == "" {
		return database.Tax{}, pgx.ErrNoRows
	}
	return database.Tax{ID: uuid.New(), Name: "PB1", Rate: makeNumeric(s.taxRate), IsActive: true}, nil
}

func (s *mockOrderStore) GetActiveGratuity(ctx context.Context) (database.Gratuity, error) {
	if s.gratuityRate == "" {
		return database.Gratuity{}, pgx.ErrNoRows
	}
	return database.Gratuity{ID: uuid.New(), Name: "Service", Rate: makeNumeric(s.gratuityRate), IsActive: true}, nil
}

// --- Orders ---

func (s *mockOrderStore) GetNextOrderNumber(ctx context.Context) (int32, error) {
	return s.nextNumber, nil
}

func (s *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	s.createOrderCalls++
	if len(s.createOrderErrs) > 0 {
		err := s.createOrderErrs[0]
		s.createOrderErrs = s.createOrderErrs[1:]
		if err != nil {
			return database.Order{}, err
		}
	}
	o := database.Order{
		ID:                  uuid.New(),
		OrderNumber:         arg.OrderNumber,
		TableNumber:         arg.TableNumber,
		Status:              database.OrderStatusPENDING,
		PaymentStatus:       database.PaymentStatusPENDING,
		DiscountID:          arg.DiscountID,
		Subtotal:            arg.Subtotal,
		ItemDiscountAmount:  arg.ItemDiscountAmount,
		OrderDiscountAmount: arg.OrderDiscountAmount,
		TotalDiscount:       arg.TotalDiscount,
		TaxRate:             arg.TaxRate,
		TaxAmount:           arg.TaxAmount,
		GratuityRate:        arg.GratuityRate,
		GratuityAmount:      arg.GratuityAmount,
		RoundingAmount:      arg.RoundingAmount,
		TotalAmount:         arg.TotalAmount,
		Notes:               arg.Notes,
		CreatedBy:           arg.CreatedBy,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	s.orders[o.ID] = &o
	s.nextNumber++
	return o, nil
}

func (s *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	it := database.OrderItem{
		ID:             uuid.New(),
		OrderID:        arg.OrderID,
		Position:       arg.Position,
		MenuID:         arg.MenuID,
		MenuName:       arg.MenuName,
		Category:       arg.Category,
		Quantity:       arg.Quantity,
		BasePrice:      arg.BasePrice,
		UnitPrice:      arg.UnitPrice,
		Hpp:            arg.Hpp,
		DiscountID:     arg.DiscountID,
		DiscountAmount: arg.DiscountAmount,
		Subtotal:       arg.Subtotal,
		Notes:          arg.Notes,
	}
	s.items[arg.OrderID] = append(s.items[arg.OrderID], it)
	s.itemOrder[it.ID] = arg.OrderID
	return it, nil
}

func (s *mockOrderStore) CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error) {
	m := database.OrderItemModifier{
		ID:           uuid.New(),
		OrderItemID:  arg.OrderItemID,
		ModifierID:   arg.ModifierID,
		ModifierName: arg.ModifierName,
		UnitPrice:    arg.UnitPrice,
		UnitCost:     arg.UnitCost,
	}
	orderID := s.itemOrder[arg.OrderItemID]
	s.links[orderID] = append(s.links[orderID], m)
	return m, nil
}

func (s *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return *o, nil
}

func (s *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return append([]database.OrderItem(nil), s.items[orderID]...), nil
}

func (s *mockOrderStore) ListOrderItemModifiersByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemModifier, error) {
	return append([]database.OrderItemModifier(nil), s.links[orderID]...), nil
}

func (s *mockOrderStore) UpdateOrderItemPricing(ctx context.Context, arg database.UpdateOrderItemPricingParams) error {
	orderID := s.itemOrder[arg.ID]
	for i, it := range s.items[orderID] {
		if it.ID == arg.ID {
			it.BasePrice = arg.BasePrice
			it.UnitPrice = arg.UnitPrice
			it.Hpp = arg.Hpp
			it.DiscountID = arg.DiscountID
			it.DiscountAmount = arg.DiscountAmount
			it.Subtotal = arg.Subtotal
			s.items[orderID][i] = it
		}
	}
	return nil
}

func (s *mockOrderStore) UpdateOrderItemModifierPricing(ctx context.Context, arg database.UpdateOrderItemModifierPricingParams) error {
	for orderID, links := range s.links {
		for i, m := range links {
			if m.ID == arg.ID {
				m.UnitPrice = arg.UnitPrice
				m.UnitCost = arg.UnitCost
				s.links[orderID][i] = m
			}
		}
	}
	return nil
}

func (s *mockOrderStore) ConfirmOrderPayment(ctx context.Context, arg database.ConfirmOrderPaymentParams) (database.Order, error) {
	o, ok := s.orders[arg.ID]
	if !ok || o.Status != database.OrderStatusPENDING {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = database.OrderStatusPROCESSING
	o.PaymentStatus = arg.PaymentStatus
	o.PaymentMethod = database.NullPaymentMethod{PaymentMethod: arg.PaymentMethod, Valid: true}
	o.ExternalPaymentID = arg.ExternalPaymentID
	o.DiscountID = arg.DiscountID
	o.Subtotal = arg.Subtotal
	o.ItemDiscountAmount = arg.ItemDiscountAmount
	o.OrderDiscountAmount = arg.OrderDiscountAmount
	o.TotalDiscount = arg.TotalDiscount
	o.TaxRate = arg.TaxRate
	o.TaxAmount = arg.TaxAmount
	o.GratuityRate = arg.GratuityRate
	o.GratuityAmount = arg.GratuityAmount
	o.RoundingAmount = arg.RoundingAmount
	o.TotalAmount = arg.TotalAmount
	if arg.PaymentStatus == database.PaymentStatusPAID {
		o.PaidAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}
	return *o, nil
}

func (s *mockOrderStore) MarkOrderStockConsumed(ctx context.Context, id uuid.UUID) error {
	s.orders[id].StockConsumed = true
	return nil
}

func (s *mockOrderStore) CompleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := s.orders[id]
	if !ok || o.Status != database.OrderStatusPROCESSING {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = database.OrderStatusCOMPLETED
	o.PaymentStatus = database.PaymentStatusPAID
	if !o.PaidAt.Valid {
		o.PaidAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}
	o.CompletedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	return *o, nil
}

func (s *mockOrderStore) CreateCompletedOrder(ctx context.Context, arg database.CreateCompletedOrderParams) (database.CompletedOrder, error) {
	for _, c := range s.completed {
		if c.OrderID == arg.OrderID {
			return database.CompletedOrder{}, &pgconn.PgError{Code: "23505", ConstraintName: "completed_orders_order_id_key"}
		}
	}
	c := database.CompletedOrder{
		ID:                uuid.New(),
		OrderID:           arg.OrderID,
		OrderNumber:       arg.OrderNumber,
		TableNumber:       arg.TableNumber,
		PaymentMethod:     arg.PaymentMethod,
		ExternalPaymentID: arg.ExternalPaymentID,
		DiscountID:        arg.DiscountID,
		Subtotal:          arg.Subtotal,
		TotalDiscount:     arg.TotalDiscount,
		TaxAmount:         arg.TaxAmount,
		GratuityAmount:    arg.GratuityAmount,
		RoundingAmount:    arg.RoundingAmount,
		TotalAmount:       arg.TotalAmount,
		PlacedAt:          arg.PlacedAt,
		PaidAt:            arg.PaidAt,
		CompletedAt:       time.Now(),
	}
	s.completed = append(s.completed, c)
	return c, nil
}

func (s *mockOrderStore) CreateCompletedOrderItem(ctx context.Context, arg database.CreateCompletedOrderItemParams) (database.CompletedOrderItem, error) {
	it := database.CompletedOrderItem{
		ID:               uuid.New(),
		CompletedOrderID: arg.CompletedOrderID,
		Position:         arg.Position,
		MenuID:           arg.MenuID,
		MenuName:         arg.MenuName,
		Category:         arg.Category,
		Quantity:         arg.Quantity,
		BasePrice:        arg.BasePrice,
		UnitPrice:        arg.UnitPrice,
		Hpp:              arg.Hpp,
		DiscountAmount:   arg.DiscountAmount,
		Subtotal:         arg.Subtotal,
		Notes:            arg.Notes,
	}
	s.completedItems = append(s.completedItems, it)
	return it, nil
}

func (s *mockOrderStore) CreateCompletedOrderItemModifier(ctx context.Context, arg database.CreateCompletedOrderItemModifierParams) error {
	s.completedMods++
	return nil
}

// --- inventory.Store ---

func (s *mockOrderStore) ingredientRow(id uuid.UUID) database.Ingredient {
	return database.Ingredient{
		ID:                id,
		Name:              s.names[id],
		Unit:              "gr",
		Stock:             makeNumeric(s.stock[id].String()),
		StockMinThreshold: makeNumeric("0"),
	}
}

func (s *mockOrderStore) LockIngredients(ctx context.Context, ids []uuid.UUID) ([]database.Ingredient, error) {
	var out []database.Ingredient
	for _, id := range ids {
		if _, ok := s.stock[id]; ok {
			out = append(out, s.ingredientRow(id))
		}
	}
	return out, nil
}

func (s *mockOrderStore) AddIngredientUsage(ctx context.Context, arg database.AddIngredientUsageParams) (database.Ingredient, error) {
	s.usageWrites++
	s.stock[arg.ID] = s.stock[arg.ID].Sub(numericToDecimal(arg.Amount))
	return s.ingredientRow(arg.ID), nil
}

func (s *mockOrderStore) ListMenuRequirements(ctx context.Context, menuIDs []uuid.UUID) ([]database.ListMenuRequirementsRow, error) {
	var out []database.ListMenuRequirementsRow
	for _, id := range menuIDs {
		for _, r := range s.menuRecipes[id] {
			out = append(out, database.ListMenuRequirementsRow{MenuID: id, IngredientID: r.ingredientID, Amount: makeNumeric(r.amount.String())})
		}
	}
	return out, nil
}

func (s *mockOrderStore) ListModifierRequirements(ctx context.Context, modifierIDs []uuid.UUID) ([]database.ListModifierRequirementsRow, error) {
	var out []database.ListModifierRequirementsRow
	for _, id := range modifierIDs {
		for _, r := range s.modRecipes[id] {
			out = append(out, database.ListModifierRequirementsRow{ModifierID: id, IngredientID: r.ingredientID, Amount: makeNumeric(r.amount.String())})
		}
	}
	return out, nil
}

func (s *mockOrderStore) ListMenusByIngredients(ctx context.Context, ingredientIDs []uuid.UUID) ([]uuid.UUID, error) {
	want := make(map[uuid.UUID]bool)
	for _, id := range ingredientIDs {
		want[id] = true
	}
	var out []uuid.UUID
	for menuID, recipe := range s.menuRecipes {
		for _, r := range recipe {
			if want[r.ingredientID] {
				out = append(out, menuID)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *mockOrderStore) ListMenuRecipeStock(ctx context.Context, menuIDs []uuid.UUID) ([]database.ListMenuRecipeStockRow, error) {
	var out []database.ListMenuRecipeStockRow
	for _, id := range menuIDs {
		for _, r := range s.menuRecipes[id] {
			out = append(out, database.ListMenuRecipeStockRow{
				MenuID:       id,
				IngredientID: r.ingredientID,
				Amount:       makeNumeric(r.amount.String()),
				Stock:        makeNumeric(s.stock[r.ingredientID].String()),
			})
		}
	}
	return out, nil
}

func (s *mockOrderStore) UpdateMenuAvailability(ctx context.Context, arg database.UpdateMenuAvailabilityParams) error {
	s.availability[arg.ID] = arg
	return nil
}

// --- Collaborators ---

type mockInvalidator struct{ calls int }

func (m *mockInvalidator) Invalidate(ctx context.Context) error {
	m.calls++
	return nil
}

type publishedEvent struct {
	room      string
	eventType string
	payload   any
}

type mockPublisher struct{ events []publishedEvent }

func (m *mockPublisher) Publish(room, eventType string, payload any) {
	m.events = append(m.events, publishedEvent{room: room, eventType: eventType, payload: payload})
}

func (m *mockPublisher) count(eventType string) int {
	n := 0
	for _, e := range m.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

type testEnv struct {
	svc    *OrderService
	store  *mockOrderStore
	pool   *mockTxBeginner
	cache  *mockInvalidator
	events *mockPublisher
}

// newTestEnv wires an OrderService to a fresh mock store. The store is
// returned by the NewOrderStore factory for every transaction.
func newTestEnv() *testEnv {
	store := newMockOrderStore()
	pool := &mockTxBeginner{}
	cache := &mockInvalidator{}
	events := &mockPublisher{}
	newStore := func(db database.DBTX) OrderStore { return store }
	return &testEnv{
		svc:    NewOrderService(pool, newStore, cache, events),
		store:  store,
		pool:   pool,
		cache:  cache,
		events: events,
	}
}
