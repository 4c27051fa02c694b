package inventory

import (
	"context"
	"sort"

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

type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// fakeIngredient keeps quantities as decimals; toRow renders the DB view.
type fakeIngredient struct {
	id        uuid.UUID
	name      string
	start     decimal.Decimal
	stockIn   decimal.Decimal
	used      decimal.Decimal
	wasted    decimal.Decimal
	threshold decimal.Decimal
	unitCost  decimal.Decimal
	semi      bool
	yield     decimal.Decimal
}

func (f *fakeIngredient) stock() decimal.Decimal {
	return f.start.Add(f.stockIn).Sub(f.used).Sub(f.wasted)
}

func (f *fakeIngredient) toRow() database.Ingredient {
	return database.Ingredient{
		ID:                f.id,
		Name:              f.name,
		Unit:              "gr",
		StartQuantity:     num(f.start),
		StockInQuantity:   num(f.stockIn),
		UsedQuantity:      num(f.used),
		WastedQuantity:    num(f.wasted),
		Stock:             num(f.stock()),
		StockMinThreshold: num(f.threshold),
		UnitCost:          num(f.unitCost),
		IsSemiFinished:    f.semi,
		BatchYield:        num(f.yield),
	}
}

// fakeStore is an in-memory StockStore.
type fakeStore struct {
	ingredients  map[uuid.UUID]*fakeIngredient
	menuRecipes  map[uuid.UUID][]Requirement
	modRecipes   map[uuid.UUID][]Requirement
	compositions map[uuid.UUID][]Component

	availability map[uuid.UUID]database.UpdateMenuAvailabilityParams
	wasteEntries []database.CreateWasteEntryParams
	lockCalls    [][]uuid.UUID
	usageWrites  int

	compositionLocked bool
	// edgeReads records whether the composition lock was held at each read.
	edgeReads []bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ingredients:  make(map[uuid.UUID]*fakeIngredient),
		menuRecipes:  make(map[uuid.UUID][]Requirement),
		modRecipes:   make(map[uuid.UUID][]Requirement),
		compositions: make(map[uuid.UUID][]Component),
		availability: make(map[uuid.UUID]database.UpdateMenuAvailabilityParams),
	}
}

func (s *fakeStore) addIngredient(name, stock string) uuid.UUID {
	id := uuid.New()
	s.ingredients[id] = &fakeIngredient{
		id:       id,
		name:     name,
		start:    dec(stock),
		unitCost: decimal.Zero,
		yield:    decimal.NewFromInt(1),
	}
	return id
}

func (s *fakeStore) addMenu(reqs ...Requirement) uuid.UUID {
	id := uuid.New()
	s.menuRecipes[id] = reqs
	return id
}

func (s *fakeStore) LockIngredients(ctx context.Context, ids []uuid.UUID) ([]database.Ingredient, error) {
	s.lockCalls = append(s.lockCalls, append([]uuid.UUID(nil), ids...))
	var out []database.Ingredient
	for _, id := range ids {
		if ing, ok := s.ingredients[id]; ok {
			out = append(out, ing.toRow())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *fakeStore) AddIngredientUsage(ctx context.Context, arg database.AddIngredientUsageParams) (database.Ingredient, error) {
	s.usageWrites++
	ing := s.ingredients[arg.ID]
	ing.used = ing.used.Add(numericToDecimal(arg.Amount))
	return ing.toRow(), nil
}

func (s *fakeStore) ListMenuRequirements(ctx context.Context, menuIDs []uuid.UUID) ([]database.ListMenuRequirementsRow, error) {
	var out []database.ListMenuRequirementsRow
	for _, id := range menuIDs {
		for _, r := range s.menuRecipes[id] {
			out = append(out, database.ListMenuRequirementsRow{MenuID: id, IngredientID: r.IngredientID, Amount: num(r.Amount)})
		}
	}
	return out, nil
}

func (s *fakeStore) ListModifierRequirements(ctx context.Context, modifierIDs []uuid.UUID) ([]database.ListModifierRequirementsRow, error) {
	var out []database.ListModifierRequirementsRow
	for _, id := range modifierIDs {
		for _, r := range s.modRecipes[id] {
			out = append(out, database.ListModifierRequirementsRow{ModifierID: id, IngredientID: r.IngredientID, Amount: num(r.Amount)})
		}
	}
	return out, nil
}

func (s *fakeStore) ListMenusByIngredients(ctx context.Context, ingredientIDs []uuid.UUID) ([]uuid.UUID, error) {
	want := make(map[uuid.UUID]bool)
	for _, id := range ingredientIDs {
		want[id] = true
	}
	var out []uuid.UUID
	for menuID, reqs := range s.menuRecipes {
		for _, r := range reqs {
			if want[r.IngredientID] {
				out = append(out, menuID)
				break
			}
		}
	}
	sortIDs(out)
	return out, nil
}

func (s *fakeStore) ListMenuRecipeStock(ctx context.Context, menuIDs []uuid.UUID) ([]database.ListMenuRecipeStockRow, error) {
	var out []database.ListMenuRecipeStockRow
	for _, id := range menuIDs {
		for _, r := range s.menuRecipes[id] {
			out = append(out, database.ListMenuRecipeStockRow{
				MenuID:       id,
				IngredientID: r.IngredientID,
				Amount:       num(r.Amount),
				Stock:        num(s.ingredients[r.IngredientID].stock()),
			})
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateMenuAvailability(ctx context.Context, arg database.UpdateMenuAvailabilityParams) error {
	s.availability[arg.ID] = arg
	return nil
}

func (s *fakeStore) GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error) {
	ing, ok := s.ingredients[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return ing.toRow(), nil
}

func (s *fakeStore) ListIngredients(ctx context.Context) ([]database.Ingredient, error) {
	var out []database.Ingredient
	for _, ing := range s.ingredients {
		out = append(out, ing.toRow())
	}
	return out, nil
}

func (s *fakeStore) AddIngredientStockIn(ctx context.Context, arg database.AddIngredientStockInParams) (database.Ingredient, error) {
	ing := s.ingredients[arg.ID]
	ing.stockIn = ing.stockIn.Add(numericToDecimal(arg.Amount))
	ing.unitCost = numericToDecimal(arg.UnitCost)
	return ing.toRow(), nil
}

func (s *fakeStore) AddIngredientWaste(ctx context.Context, arg database.AddIngredientWasteParams) (database.Ingredient, error) {
	ing := s.ingredients[arg.ID]
	ing.wasted = ing.wasted.Add(numericToDecimal(arg.Amount))
	return ing.toRow(), nil
}

func (s *fakeStore) CreateWasteEntry(ctx context.Context, arg database.CreateWasteEntryParams) (database.IngredientWasteEntry, error) {
	s.wasteEntries = append(s.wasteEntries, arg)
	return database.IngredientWasteEntry{
		ID:           uuid.New(),
		IngredientID: arg.IngredientID,
		Quantity:     arg.Quantity,
		Reason:       arg.Reason,
		RecordedBy:   arg.RecordedBy,
	}, nil
}

func (s *fakeStore) UpdateIngredientUnitCost(ctx context.Context, arg database.UpdateIngredientUnitCostParams) error {
	s.ingredients[arg.ID].unitCost = numericToDecimal(arg.UnitCost)
	return nil
}

func (s *fakeStore) LockCompositions(ctx context.Context) error {
	s.compositionLocked = true
	return nil
}

func (s *fakeStore) ListCompositionEdges(ctx context.Context) ([]database.SemiFinishedComposition, error) {
	s.edgeReads = append(s.edgeReads, s.compositionLocked)
	var out []database.SemiFinishedComposition
	for semi, comps := range s.compositions {
		for _, c := range comps {
			out = append(out, database.SemiFinishedComposition{SemiFinishedID: semi, IngredientID: c.IngredientID, Amount: num(c.Amount)})
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteComposition(ctx context.Context, semiFinishedID uuid.UUID) error {
	delete(s.compositions, semiFinishedID)
	return nil
}

func (s *fakeStore) CreateCompositionEdge(ctx context.Context, arg database.CreateCompositionEdgeParams) error {
	s.compositions[arg.SemiFinishedID] = append(s.compositions[arg.SemiFinishedID], Component{
		IngredientID: arg.IngredientID,
		Amount:       numericToDecimal(arg.Amount),
	})
	return nil
}

func (s *fakeStore) MarkSemiFinished(ctx context.Context, id uuid.UUID) error {
	s.ingredients[id].semi = true
	return nil
}

func (s *fakeStore) ListRecipeMenuIDs(ctx context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id := range s.menuRecipes {
		out = append(out, id)
	}
	sortIDs(out)
	return out, nil
}

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) error {
	f.calls++
	return f.err
}

type publishedEvent struct {
	room      string
	eventType string
	payload   any
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) Publish(room, eventType string, payload any) {
	f.events = append(f.events, publishedEvent{room: room, eventType: eventType, payload: payload})
}

func (f *fakePublisher) count(eventType string) int {
	n := 0
	for _, e := range f.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

// --- Test helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func num(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}

func need(id uuid.UUID, amount string) Requirement {
	return Requirement{IngredientID: id, Amount: dec(amount)}
}
