package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, name, unit, start_quantity, stock_in_quantity, used_quantity, wasted_quantity,
       stock, stock_min_threshold, unit_cost, is_semi_finished, batch_yield, updated_at`

func scanIngredient(row scanner) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Unit,
		&i.StartQuantity,
		&i.StockInQuantity,
		&i.UsedQuantity,
		&i.WastedQuantity,
		&i.Stock,
		&i.StockMinThreshold,
		&i.UnitCost,
		&i.IsSemiFinished,
		&i.BatchYield,
		&i.UpdatedAt,
	)
	return i, err
}

func collectIngredients(rows interface {
	scanner
	Next() bool
	Err() error
	Close()
}) ([]Ingredient, error) {
	defer rows.Close()
	var items []Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
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

const getIngredient = `-- name: GetIngredient :one
SELECT ` + ingredientColumns + `
FROM ingredients
WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredient, id))
}

const listIngredients = `-- name: ListIngredients :many
SELECT ` + ingredientColumns + `
FROM ingredients
ORDER BY name
`

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients)
	if err != nil {
		return nil, err
	}
	return collectIngredients(rows)
}

const lockIngredients = `-- name: LockIngredients :many
SELECT ` + ingredientColumns + `
FROM ingredients
WHERE id = ANY($1::uuid[])
ORDER BY id
FOR UPDATE
`

// LockIngredients row-locks the given ingredients in id order so concurrent
// transactions always acquire them in the same sequence.
func (q *Queries) LockIngredients(ctx context.Context, ids []uuid.UUID) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, lockIngredients, ids)
	if err != nil {
		return nil, err
	}
	return collectIngredients(rows)
}

const addIngredientUsage = `-- name: AddIngredientUsage :one
UPDATE ingredients
SET used_quantity = used_quantity + $2, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type AddIngredientUsageParams struct {
	ID     uuid.UUID      `json:"id"`
	Amount pgtype.Numeric `json:"amount"`
}

func (q *Queries) AddIngredientUsage(ctx context.Context, arg AddIngredientUsageParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, addIngredientUsage, arg.ID, arg.Amount))
}

const addIngredientStockIn = `-- name: AddIngredientStockIn :one
UPDATE ingredients
SET stock_in_quantity = stock_in_quantity + $2, unit_cost = $3, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type AddIngredientStockInParams struct {
	ID       uuid.UUID      `json:"id"`
	Amount   pgtype.Numeric `json:"amount"`
	UnitCost pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) AddIngredientStockIn(ctx context.Context, arg AddIngredientStockInParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, addIngredientStockIn, arg.ID, arg.Amount, arg.UnitCost))
}

const addIngredientWaste = `-- name: AddIngredientWaste :one
UPDATE ingredients
SET wasted_quantity = wasted_quantity + $2, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type AddIngredientWasteParams struct {
	ID     uuid.UUID      `json:"id"`
	Amount pgtype.Numeric `json:"amount"`
}

func (q *Queries) AddIngredientWaste(ctx context.Context, arg AddIngredientWasteParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, addIngredientWaste, arg.ID, arg.Amount))
}

const createWasteEntry = `-- name: CreateWasteEntry :one
INSERT INTO ingredient_waste_entries (ingredient_id, quantity, reason, recorded_by)
VALUES ($1, $2, $3, $4)
RETURNING id, ingredient_id, quantity, reason, recorded_by, created_at
`

type CreateWasteEntryParams struct {
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Quantity     pgtype.Numeric `json:"quantity"`
	Reason       pgtype.Text    `json:"reason"`
	RecordedBy   pgtype.UUID    `json:"recorded_by"`
}

func (q *Queries) CreateWasteEntry(ctx context.Context, arg CreateWasteEntryParams) (IngredientWasteEntry, error) {
	row := q.db.QueryRow(ctx, createWasteEntry, arg.IngredientID, arg.Quantity, arg.Reason, arg.RecordedBy)
	var i IngredientWasteEntry
	err := row.Scan(
		&i.ID,
		&i.IngredientID,
		&i.Quantity,
		&i.Reason,
		&i.RecordedBy,
		&i.CreatedAt,
	)
	return i, err
}

const updateIngredientUnitCost = `-- name: UpdateIngredientUnitCost :exec
UPDATE ingredients SET unit_cost = $2, updated_at = now() WHERE id = $1
`

type UpdateIngredientUnitCostParams struct {
	ID       uuid.UUID      `json:"id"`
	UnitCost pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) UpdateIngredientUnitCost(ctx context.Context, arg UpdateIngredientUnitCostParams) error {
	_, err := q.db.Exec(ctx, updateIngredientUnitCost, arg.ID, arg.UnitCost)
	return err
}

const listMenuRequirements = `-- name: ListMenuRequirements :many
SELECT menu_id, ingredient_id, amount
FROM menu_ingredients
WHERE menu_id = ANY($1::uuid[])
`

type ListMenuRequirementsRow struct {
	MenuID       uuid.UUID      `json:"menu_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Amount       pgtype.Numeric `json:"amount"`
}

func (q *Queries) ListMenuRequirements(ctx context.Context, menuIDs []uuid.UUID) ([]ListMenuRequirementsRow, error) {
	rows, err := q.db.Query(ctx, listMenuRequirements, menuIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListMenuRequirementsRow
	for rows.Next() {
		var i ListMenuRequirementsRow
		if err := rows.Scan(&i.MenuID, &i.IngredientID, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listModifierRequirements = `-- name: ListModifierRequirements :many
SELECT modifier_id, ingredient_id, amount
FROM modifier_ingredients
WHERE modifier_id = ANY($1::uuid[])
`

type ListModifierRequirementsRow struct {
	ModifierID   uuid.UUID      `json:"modifier_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Amount       pgtype.Numeric `json:"amount"`
}

func (q *Queries) ListModifierRequirements(ctx context.Context, modifierIDs []uuid.UUID) ([]ListModifierRequirementsRow, error) {
	rows, err := q.db.Query(ctx, listModifierRequirements, modifierIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListModifierRequirementsRow
	for rows.Next() {
		var i ListModifierRequirementsRow
		if err := rows.Scan(&i.ModifierID, &i.IngredientID, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMenusByIngredients = `-- name: ListMenusByIngredients :many
SELECT DISTINCT menu_id
FROM menu_ingredients
WHERE ingredient_id = ANY($1::uuid[])
ORDER BY menu_id
`

func (q *Queries) ListMenusByIngredients(ctx context.Context, ingredientIDs []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listMenusByIngredients, ingredientIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecipeMenuIDs = `-- name: ListRecipeMenuIDs :many
SELECT DISTINCT menu_id FROM menu_ingredients ORDER BY menu_id
`

func (q *Queries) ListRecipeMenuIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listRecipeMenuIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listMenuRecipeStock = `-- name: ListMenuRecipeStock :many
SELECT mi.menu_id, mi.ingredient_id, mi.amount, i.stock
FROM menu_ingredients mi
JOIN ingredients i ON i.id = mi.ingredient_id
WHERE mi.menu_id = ANY($1::uuid[])
ORDER BY mi.menu_id
`

type ListMenuRecipeStockRow struct {
	MenuID       uuid.UUID      `json:"menu_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Amount       pgtype.Numeric `json:"amount"`
	Stock        pgtype.Numeric `json:"stock"`
}

func (q *Queries) ListMenuRecipeStock(ctx context.Context, menuIDs []uuid.UUID) ([]ListMenuRecipeStockRow, error) {
	rows, err := q.db.Query(ctx, listMenuRecipeStock, menuIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListMenuRecipeStockRow
	for rows.Next() {
		var i ListMenuRecipeStockRow
		if err := rows.Scan(&i.MenuID, &i.IngredientID, &i.Amount, &i.Stock); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateMenuAvailability = `-- name: UpdateMenuAvailability :exec
UPDATE menus
SET max_purchasable = $2, is_available = $3, updated_at = now()
WHERE id = $1
`

type UpdateMenuAvailabilityParams struct {
	ID             uuid.UUID   `json:"id"`
	MaxPurchasable pgtype.Int4 `json:"max_purchasable"`
	IsAvailable    bool        `json:"is_available"`
}

func (q *Queries) UpdateMenuAvailability(ctx context.Context, arg UpdateMenuAvailabilityParams) error {
	_, err := q.db.Exec(ctx, updateMenuAvailability, arg.ID, arg.MaxPurchasable, arg.IsAvailable)
	return err
}

const lockCompositions = `-- name: LockCompositions :exec
LOCK TABLE semi_finished_compositions IN SHARE ROW EXCLUSIVE MODE
`

// LockCompositions serializes composition writers until the transaction ends.
// Plain reads of the table are not blocked.
func (q *Queries) LockCompositions(ctx context.Context) error {
	_, err := q.db.Exec(ctx, lockCompositions)
	return err
}

const listCompositionEdges = `-- name: ListCompositionEdges :many
SELECT semi_finished_id, ingredient_id, amount
FROM semi_finished_compositions
ORDER BY semi_finished_id, ingredient_id
`

func (q *Queries) ListCompositionEdges(ctx context.Context) ([]SemiFinishedComposition, error) {
	rows, err := q.db.Query(ctx, listCompositionEdges)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SemiFinishedComposition
	for rows.Next() {
		var i SemiFinishedComposition
		if err := rows.Scan(&i.SemiFinishedID, &i.IngredientID, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteComposition = `-- name: DeleteComposition :exec
DELETE FROM semi_finished_compositions WHERE semi_finished_id = $1
`

func (q *Queries) DeleteComposition(ctx context.Context, semiFinishedID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteComposition, semiFinishedID)
	return err
}

const createCompositionEdge = `-- name: CreateCompositionEdge :exec
INSERT INTO semi_finished_compositions (semi_finished_id, ingredient_id, amount)
VALUES ($1, $2, $3)
`

type CreateCompositionEdgeParams struct {
	SemiFinishedID uuid.UUID      `json:"semi_finished_id"`
	IngredientID   uuid.UUID      `json:"ingredient_id"`
	Amount         pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreateCompositionEdge(ctx context.Context, arg CreateCompositionEdgeParams) error {
	_, err := q.db.Exec(ctx, createCompositionEdge, arg.SemiFinishedID, arg.IngredientID, arg.Amount)
	return err
}

const markSemiFinished = `-- name: MarkSemiFinished :exec
UPDATE ingredients SET is_semi_finished = true, updated_at = now() WHERE id = $1
`

func (q *Queries) MarkSemiFinished(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, markSemiFinished, id)
	return err
}
