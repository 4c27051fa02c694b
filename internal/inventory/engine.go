package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kedai-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// Store defines the DB methods the consumption step and availability
// recompute need. Satisfied by *database.Queries bound to a transaction.
type Store interface {
	LockIngredients(ctx context.Context, ids []uuid.UUID) ([]database.Ingredient, error)
	AddIngredientUsage(ctx context.Context, arg database.AddIngredientUsageParams) (database.Ingredient, error)
	ListMenuRequirements(ctx context.Context, menuIDs []uuid.UUID) ([]database.ListMenuRequirementsRow, error)
	ListModifierRequirements(ctx context.Context, modifierIDs []uuid.UUID) ([]database.ListModifierRequirementsRow, error)
	ListMenusByIngredients(ctx context.Context, ingredientIDs []uuid.UUID) ([]uuid.UUID, error)
	ListMenuRecipeStock(ctx context.Context, menuIDs []uuid.UUID) ([]database.ListMenuRecipeStockRow, error)
	UpdateMenuAvailability(ctx context.Context, arg database.UpdateMenuAvailabilityParams) error
}

// MenuAvailability is the recomputed sellable state of one menu.
type MenuAvailability struct {
	MenuID         uuid.UUID `json:"menu_id"`
	MaxPurchasable int32     `json:"max_purchasable"`
	IsAvailable    bool      `json:"is_available"`
}

// Result describes what a stock mutation changed. Callers publish it after
// their transaction commits.
type Result struct {
	Ingredients  []database.Ingredient
	Availability []MenuAvailability
	LowStock     []database.Ingredient
}

// Empty reports whether nothing was touched.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Ingredients) == 0 && len(r.Availability) == 0)
}

// Merge appends other's changes to r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Ingredients = append(r.Ingredients, other.Ingredients...)
	r.Availability = append(r.Availability, other.Availability...)
	r.LowStock = append(r.LowStock, other.LowStock...)
}

// Consume decrements stock for every sold line and modifier, then recomputes
// availability for every menu sharing a touched ingredient. It must run inside
// the caller's transaction: ingredient rows are locked in ID order and the
// whole decrement fails with an *InsufficientStockError if any ingredient
// would go negative. Semi-finished ingredients are consumed from their own
// stock only.
func Consume(ctx context.Context, store Store, lines []SoldLine) (*Result, error) {
	usage, err := resolveUsage(ctx, store, lines)
	if err != nil {
		return nil, err
	}
	if len(usage) == 0 {
		return &Result{}, nil
	}
	return Decrement(ctx, store, usage)
}

// Decrement locks the ingredients in usage, checks each has enough stock, adds
// the amounts to used_quantity and recomputes affected menus.
func Decrement(ctx context.Context, store Store, usage Usage) (*Result, error) {
	ids := usage.IDs()
	locked, err := store.LockIngredients(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock ingredients: %w", err)
	}
	byID := make(map[uuid.UUID]database.Ingredient, len(locked))
	for _, ing := range locked {
		byID[ing.ID] = ing
	}

	// Check everything before writing so the first shortage is reported
	// deterministically.
	for _, id := range ids {
		ing, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("ingredient %s: %w", id, ErrIngredientNotFound)
		}
		available := numericToDecimal(ing.Stock)
		if available.LessThan(usage[id]) {
			return nil, &InsufficientStockError{
				IngredientID: id,
				Name:         ing.Name,
				Available:    available,
				Required:     usage[id],
			}
		}
	}

	res := &Result{}
	for _, id := range ids {
		updated, err := store.AddIngredientUsage(ctx, database.AddIngredientUsageParams{
			ID:     id,
			Amount: quantityToNumeric(usage[id]),
		})
		if err != nil {
			return nil, fmt.Errorf("add usage for %s: %w", id, err)
		}
		res.Ingredients = append(res.Ingredients, updated)
		if IsLowStock(updated) {
			res.LowStock = append(res.LowStock, updated)
		}
	}

	avail, err := RecomputeAvailability(ctx, store, ids)
	if err != nil {
		return nil, err
	}
	res.Availability = avail
	return res, nil
}

// RecomputeAvailability recomputes every menu whose recipe uses any of the
// given ingredients.
func RecomputeAvailability(ctx context.Context, store Store, ingredientIDs []uuid.UUID) ([]MenuAvailability, error) {
	if len(ingredientIDs) == 0 {
		return nil, nil
	}
	menuIDs, err := store.ListMenusByIngredients(ctx, ingredientIDs)
	if err != nil {
		return nil, fmt.Errorf("list menus by ingredients: %w", err)
	}
	return RecomputeMenus(ctx, store, menuIDs)
}

// RecomputeMenus sets max_purchasable and is_available on each menu from the
// current stock of its recipe ingredients.
func RecomputeMenus(ctx context.Context, store Store, menuIDs []uuid.UUID) ([]MenuAvailability, error) {
	if len(menuIDs) == 0 {
		return nil, nil
	}
	rows, err := store.ListMenuRecipeStock(ctx, menuIDs)
	if err != nil {
		return nil, fmt.Errorf("list menu recipe stock: %w", err)
	}
	recipes := make(map[uuid.UUID][]StockedAmount)
	for _, r := range rows {
		recipes[r.MenuID] = append(recipes[r.MenuID], StockedAmount{
			Amount: numericToDecimal(r.Amount),
			Stock:  numericToDecimal(r.Stock),
		})
	}

	var out []MenuAvailability
	for _, menuID := range menuIDs {
		n, ok := MaxPurchasable(recipes[menuID])
		if !ok {
			continue
		}
		a := MenuAvailability{MenuID: menuID, MaxPurchasable: n, IsAvailable: n > 0}
		if err := store.UpdateMenuAvailability(ctx, database.UpdateMenuAvailabilityParams{
			ID:             menuID,
			MaxPurchasable: pgtype.Int4{Int32: n, Valid: true},
			IsAvailable:    a.IsAvailable,
		}); err != nil {
			return nil, fmt.Errorf("update menu availability %s: %w", menuID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func resolveUsage(ctx context.Context, store Store, lines []SoldLine) (Usage, error) {
	menuSet := make(map[uuid.UUID]bool)
	modSet := make(map[uuid.UUID]bool)
	for _, l := range lines {
		menuSet[l.MenuID] = true
		for _, m := range l.ModifierIDs {
			modSet[m] = true
		}
	}

	menuReqs := make(map[uuid.UUID][]Requirement)
	if len(menuSet) > 0 {
		rows, err := store.ListMenuRequirements(ctx, setToSlice(menuSet))
		if err != nil {
			return nil, fmt.Errorf("list menu requirements: %w", err)
		}
		for _, r := range rows {
			menuReqs[r.MenuID] = append(menuReqs[r.MenuID], Requirement{
				IngredientID: r.IngredientID,
				Amount:       numericToDecimal(r.Amount),
			})
		}
	}

	modReqs := make(map[uuid.UUID][]Requirement)
	if len(modSet) > 0 {
		rows, err := store.ListModifierRequirements(ctx, setToSlice(modSet))
		if err != nil {
			return nil, fmt.Errorf("list modifier requirements: %w", err)
		}
		for _, r := range rows {
			modReqs[r.ModifierID] = append(modReqs[r.ModifierID], Requirement{
				IngredientID: r.IngredientID,
				Amount:       numericToDecimal(r.Amount),
			})
		}
	}

	return Aggregate(lines, menuReqs, modReqs), nil
}

// IsLowStock reports whether stock is at or below the reorder threshold.
func IsLowStock(ing database.Ingredient) bool {
	return numericToDecimal(ing.Stock).LessThanOrEqual(numericToDecimal(ing.StockMinThreshold))
}

func setToSlice(set map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out
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

// quantityToNumeric keeps three decimals, matching NUMERIC(14,3) columns.
func quantityToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(3))
	return n
}

func costToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(4))
	return n
}
