package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// StockStore defines the DB methods needed by the stock operations.
// Satisfied by *database.Queries (and its WithTx variant).
type StockStore interface {
	Store
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	AddIngredientStockIn(ctx context.Context, arg database.AddIngredientStockInParams) (database.Ingredient, error)
	AddIngredientWaste(ctx context.Context, arg database.AddIngredientWasteParams) (database.Ingredient, error)
	CreateWasteEntry(ctx context.Context, arg database.CreateWasteEntryParams) (database.IngredientWasteEntry, error)
	UpdateIngredientUnitCost(ctx context.Context, arg database.UpdateIngredientUnitCostParams) error
	LockCompositions(ctx context.Context) error
	ListCompositionEdges(ctx context.Context) ([]database.SemiFinishedComposition, error)
	DeleteComposition(ctx context.Context, semiFinishedID uuid.UUID) error
	CreateCompositionEdge(ctx context.Context, arg database.CreateCompositionEdgeParams) error
	MarkSemiFinished(ctx context.Context, id uuid.UUID) error
	ListRecipeMenuIDs(ctx context.Context) ([]uuid.UUID, error)
}

// NewStockStore creates a StockStore from a DBTX (pool or tx).
type NewStockStore func(db database.DBTX) StockStore

// Invalidator drops cached availability after stock changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Publisher pushes live events to connected clients.
type Publisher interface {
	Publish(room, eventType string, payload any)
}

// LowStockPayload is the body of an ingredient.low_stock event.
type LowStockPayload struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Name         string    `json:"name"`
	Stock        string    `json:"stock"`
	Threshold    string    `json:"threshold"`
	Unit         string    `json:"unit"`
}

// Announce invalidates the availability cache and publishes availability and
// low-stock events for a committed Result. Call it only after commit.
func Announce(ctx context.Context, cache Invalidator, events Publisher, res *Result) {
	if res.Empty() {
		return
	}
	if cache != nil {
		if err := cache.Invalidate(ctx); err != nil {
			log.Printf("WARN: invalidate availability cache: %v", err)
		}
	}
	if events == nil {
		return
	}
	for _, a := range res.Availability {
		events.Publish(enum.RoomInventory, enum.EventMenuAvailability, a)
	}
	for _, ing := range res.LowStock {
		events.Publish(enum.RoomInventory, enum.EventIngredientLowStock, LowStockPayload{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Stock:        numericToDecimal(ing.Stock).String(),
			Threshold:    numericToDecimal(ing.StockMinThreshold).String(),
			Unit:         ing.Unit,
		})
	}
}

// Service runs back-office stock operations. Every operation that changes
// stock goes through the same lock, check and recompute path as order
// consumption.
type Service struct {
	pool     TxBeginner
	newStore NewStockStore
	cache    Invalidator
	events   Publisher
}

// NewService creates a new Service.
func NewService(pool TxBeginner, newStore NewStockStore, cache Invalidator, events Publisher) *Service {
	return &Service{pool: pool, newStore: newStore, cache: cache, events: events}
}

// ReceiveStockRequest is a purchase receipt.
type ReceiveStockRequest struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
	// UnitCost, when set, is averaged into the ingredient's unit cost.
	UnitCost *decimal.Decimal
}

// ReceiveStock adds a purchase receipt to stock_in, optionally updates the
// weighted unit cost, rolls that cost up into dependent semi-finished
// ingredients and recomputes availability.
func (s *Service) ReceiveStock(ctx context.Context, req ReceiveStockRequest) (*database.Ingredient, error) {
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if req.UnitCost != nil && req.UnitCost.IsNegative() {
		return nil, ErrInvalidUnitCost
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := lockOne(ctx, store, req.IngredientID)
	if err != nil {
		return nil, err
	}

	cost := numericToDecimal(current.UnitCost)
	if req.UnitCost != nil {
		cost = WeightedUnitCost(numericToDecimal(current.Stock), cost, req.Quantity, *req.UnitCost)
	}

	updated, err := store.AddIngredientStockIn(ctx, database.AddIngredientStockInParams{
		ID:       req.IngredientID,
		Amount:   quantityToNumeric(req.Quantity),
		UnitCost: costToNumeric(cost),
	})
	if err != nil {
		return nil, fmt.Errorf("add stock in: %w", err)
	}

	if req.UnitCost != nil {
		if err := rollUpCosts(ctx, store, []uuid.UUID{req.IngredientID}); err != nil {
			return nil, err
		}
	}

	res := &Result{Ingredients: []database.Ingredient{updated}}
	if IsLowStock(updated) {
		res.LowStock = append(res.LowStock, updated)
	}
	res.Availability, err = RecomputeAvailability(ctx, store, []uuid.UUID{req.IngredientID})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	Announce(ctx, s.cache, s.events, res)
	return &updated, nil
}

// RecordWasteRequest records spoiled or discarded stock.
type RecordWasteRequest struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
	Reason       string
	RecordedBy   uuid.UUID
}

// RecordWaste adds to wasted_quantity and logs a waste entry. Waste larger
// than the current stock fails with an *InsufficientStockError.
func (s *Service) RecordWaste(ctx context.Context, req RecordWasteRequest) (*database.IngredientWasteEntry, error) {
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := lockOne(ctx, store, req.IngredientID)
	if err != nil {
		return nil, err
	}
	available := numericToDecimal(current.Stock)
	if available.LessThan(req.Quantity) {
		return nil, &InsufficientStockError{
			IngredientID: current.ID,
			Name:         current.Name,
			Available:    available,
			Required:     req.Quantity,
		}
	}

	updated, err := store.AddIngredientWaste(ctx, database.AddIngredientWasteParams{
		ID:     req.IngredientID,
		Amount: quantityToNumeric(req.Quantity),
	})
	if err != nil {
		return nil, fmt.Errorf("add waste: %w", err)
	}

	reason := pgtype.Text{}
	if req.Reason != "" {
		reason = pgtype.Text{String: req.Reason, Valid: true}
	}
	recordedBy := pgtype.UUID{}
	if req.RecordedBy != uuid.Nil {
		recordedBy = pgtype.UUID{Bytes: req.RecordedBy, Valid: true}
	}
	entry, err := store.CreateWasteEntry(ctx, database.CreateWasteEntryParams{
		IngredientID: req.IngredientID,
		Quantity:     quantityToNumeric(req.Quantity),
		Reason:       reason,
		RecordedBy:   recordedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create waste entry: %w", err)
	}

	res := &Result{Ingredients: []database.Ingredient{updated}}
	if IsLowStock(updated) {
		res.LowStock = append(res.LowStock, updated)
	}
	res.Availability, err = RecomputeAvailability(ctx, store, []uuid.UUID{req.IngredientID})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	Announce(ctx, s.cache, s.events, res)
	return &entry, nil
}

// ProduceBatchRequest makes batches of a semi-finished ingredient.
type ProduceBatchRequest struct {
	SemiFinishedID uuid.UUID
	Batches        decimal.Decimal
}

// ProduceBatch consumes the composition components for the requested number
// of batches and adds batch_yield × batches to the semi-finished stock. The
// produced units are costed from the components and averaged into the
// ingredient's unit cost.
func (s *Service) ProduceBatch(ctx context.Context, req ProduceBatchRequest) (*database.Ingredient, error) {
	if !req.Batches.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	semi, err := getIngredient(ctx, store, req.SemiFinishedID)
	if err != nil {
		return nil, err
	}
	if !semi.IsSemiFinished {
		return nil, ErrNotSemiFinished
	}

	comp, err := loadComposition(ctx, store)
	if err != nil {
		return nil, err
	}
	components := comp[semi.ID]
	if len(components) == 0 {
		return nil, ErrNoComposition
	}

	usage := make(Usage)
	for _, c := range components {
		usage.add(c.IngredientID, c.Amount.Mul(req.Batches))
	}

	// Lock the product together with its components so the lock order stays
	// sorted across the whole transaction.
	lockIDs := append(usage.IDs(), semi.ID)
	sortIDs(lockIDs)
	locked, err := store.LockIngredients(ctx, lockIDs)
	if err != nil {
		return nil, fmt.Errorf("lock ingredients: %w", err)
	}
	costs := make(map[uuid.UUID]decimal.Decimal, len(locked))
	for _, ing := range locked {
		costs[ing.ID] = numericToDecimal(ing.UnitCost)
		if ing.ID == semi.ID {
			semi = ing
		}
	}

	res, err := Decrement(ctx, store, usage)
	if err != nil {
		return nil, err
	}

	yield := numericToDecimal(semi.BatchYield)
	if !yield.IsPositive() {
		return nil, ErrInvalidBatchYield
	}
	produced := yield.Mul(req.Batches)
	batchCost := BatchUnitCost(components, costs, yield)
	cost := WeightedUnitCost(numericToDecimal(semi.Stock), numericToDecimal(semi.UnitCost), produced, batchCost)

	updated, err := store.AddIngredientStockIn(ctx, database.AddIngredientStockInParams{
		ID:       semi.ID,
		Amount:   quantityToNumeric(produced),
		UnitCost: costToNumeric(cost),
	})
	if err != nil {
		return nil, fmt.Errorf("add produced stock: %w", err)
	}
	if err := rollUpCosts(ctx, store, []uuid.UUID{semi.ID}); err != nil {
		return nil, err
	}

	res.Ingredients = append(res.Ingredients, updated)
	avail, err := RecomputeAvailability(ctx, store, []uuid.UUID{semi.ID})
	if err != nil {
		return nil, err
	}
	res.Availability = append(res.Availability, avail...)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	Announce(ctx, s.cache, s.events, res)
	return &updated, nil
}

// SetCompositionRequest replaces the recipe of a semi-finished ingredient.
type SetCompositionRequest struct {
	SemiFinishedID uuid.UUID
	Components     []Component
}

// SetComposition replaces the composition edges of an ingredient, marks it
// semi-finished and recomputes its unit cost and the cost of everything built
// from it. Self references and cycles are rejected.
func (s *Service) SetComposition(ctx context.Context, req SetCompositionRequest) (*database.Ingredient, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	semi, err := getIngredient(ctx, store, req.SemiFinishedID)
	if err != nil {
		return nil, err
	}

	// Two writers checking against the same snapshot could each close half
	// of a cycle, so the graph is read only after taking the writer lock.
	if err := store.LockCompositions(ctx); err != nil {
		return nil, fmt.Errorf("lock compositions: %w", err)
	}
	comp, err := loadComposition(ctx, store)
	if err != nil {
		return nil, err
	}
	delete(comp, semi.ID)
	if err := comp.CheckComponents(semi.ID, req.Components); err != nil {
		return nil, err
	}

	all, err := store.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	costs := make(map[uuid.UUID]decimal.Decimal, len(all))
	for _, ing := range all {
		costs[ing.ID] = numericToDecimal(ing.UnitCost)
	}
	for i, c := range req.Components {
		if _, ok := costs[c.IngredientID]; !ok {
			return nil, fmt.Errorf("components[%d]: %w", i, ErrIngredientNotFound)
		}
	}

	if err := store.DeleteComposition(ctx, semi.ID); err != nil {
		return nil, fmt.Errorf("delete composition: %w", err)
	}
	for i, c := range req.Components {
		if err := store.CreateCompositionEdge(ctx, database.CreateCompositionEdgeParams{
			SemiFinishedID: semi.ID,
			IngredientID:   c.IngredientID,
			Amount:         quantityToNumeric(c.Amount),
		}); err != nil {
			return nil, fmt.Errorf("components[%d]: create edge: %w", i, err)
		}
	}
	if !semi.IsSemiFinished {
		if err := store.MarkSemiFinished(ctx, semi.ID); err != nil {
			return nil, fmt.Errorf("mark semi-finished: %w", err)
		}
	}

	cost := BatchUnitCost(req.Components, costs, numericToDecimal(semi.BatchYield))
	if err := store.UpdateIngredientUnitCost(ctx, database.UpdateIngredientUnitCostParams{
		ID:       semi.ID,
		UnitCost: costToNumeric(cost),
	}); err != nil {
		return nil, fmt.Errorf("update unit cost: %w", err)
	}
	if err := rollUpCosts(ctx, store, []uuid.UUID{semi.ID}); err != nil {
		return nil, err
	}

	updated, err := store.GetIngredient(ctx, semi.ID)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// RecomputeAll runs the availability recompute over every menu with a recipe.
func (s *Service) RecomputeAll(ctx context.Context) ([]MenuAvailability, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	menuIDs, err := store.ListRecipeMenuIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipe menus: %w", err)
	}
	avail, err := RecomputeMenus(ctx, store, menuIDs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	Announce(ctx, s.cache, s.events, &Result{Availability: avail})
	return avail, nil
}

// --- Helpers ---

func lockOne(ctx context.Context, store Store, id uuid.UUID) (database.Ingredient, error) {
	locked, err := store.LockIngredients(ctx, []uuid.UUID{id})
	if err != nil {
		return database.Ingredient{}, fmt.Errorf("lock ingredient: %w", err)
	}
	if len(locked) == 0 {
		return database.Ingredient{}, ErrIngredientNotFound
	}
	return locked[0], nil
}

func getIngredient(ctx context.Context, store StockStore, id uuid.UUID) (database.Ingredient, error) {
	ing, err := store.GetIngredient(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Ingredient{}, ErrIngredientNotFound
		}
		return database.Ingredient{}, fmt.Errorf("get ingredient: %w", err)
	}
	return ing, nil
}

func loadComposition(ctx context.Context, store StockStore) (Composition, error) {
	edges, err := store.ListCompositionEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list composition edges: %w", err)
	}
	comp := make(Composition)
	for _, e := range edges {
		comp[e.SemiFinishedID] = append(comp[e.SemiFinishedID], Component{
			IngredientID: e.IngredientID,
			Amount:       numericToDecimal(e.Amount),
		})
	}
	return comp, nil
}

// rollUpCosts recomputes the unit cost of every semi-finished ingredient built
// (directly or transitively) from changed. Reads see this transaction's writes.
func rollUpCosts(ctx context.Context, store StockStore, changed []uuid.UUID) error {
	comp, err := loadComposition(ctx, store)
	if err != nil {
		return err
	}
	all, err := store.ListIngredients(ctx)
	if err != nil {
		return fmt.Errorf("list ingredients: %w", err)
	}
	costs := make(map[uuid.UUID]decimal.Decimal, len(all))
	yields := make(map[uuid.UUID]decimal.Decimal, len(all))
	for _, ing := range all {
		costs[ing.ID] = numericToDecimal(ing.UnitCost)
		yields[ing.ID] = numericToDecimal(ing.BatchYield)
	}

	for _, id := range RollUpCosts(comp, changed, costs, yields) {
		if err := store.UpdateIngredientUnitCost(ctx, database.UpdateIngredientUnitCostParams{
			ID:       id,
			UnitCost: costToNumeric(costs[id]),
		}); err != nil {
			return fmt.Errorf("roll up unit cost %s: %w", id, err)
		}
	}
	return nil
}
