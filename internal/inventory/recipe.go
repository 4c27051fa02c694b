// Package inventory owns ingredient stock: the decrement-and-check step run
// inside order transactions, the menu availability recompute, and the
// back-office stock operations (receipt, waste, production, composition).
package inventory

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SoldLine is one order line as seen by the consumption step.
type SoldLine struct {
	MenuID      uuid.UUID
	ModifierIDs []uuid.UUID
	Quantity    int32
}

// Requirement is an amount of one ingredient needed per sold unit.
type Requirement struct {
	IngredientID uuid.UUID
	Amount       decimal.Decimal
}

// Usage maps ingredient IDs to the total amount a set of lines consumes.
type Usage map[uuid.UUID]decimal.Decimal

func (u Usage) add(id uuid.UUID, amount decimal.Decimal) {
	u[id] = u[id].Add(amount)
}

// IDs returns the ingredient IDs in ascending order. Locks are always taken
// in this order.
func (u Usage) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(u))
	for id := range u {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Aggregate folds per-unit menu and modifier requirements into the total usage
// of the given lines. Menus or modifiers without a recipe contribute nothing.
func Aggregate(lines []SoldLine, menuReqs, modifierReqs map[uuid.UUID][]Requirement) Usage {
	usage := make(Usage)
	for _, l := range lines {
		qty := decimal.NewFromInt32(l.Quantity)
		for _, r := range menuReqs[l.MenuID] {
			usage.add(r.IngredientID, r.Amount.Mul(qty))
		}
		for _, modID := range l.ModifierIDs {
			for _, r := range modifierReqs[modID] {
				usage.add(r.IngredientID, r.Amount.Mul(qty))
			}
		}
	}
	return usage
}

// StockedAmount pairs a recipe amount with the ingredient's current stock.
type StockedAmount struct {
	Amount decimal.Decimal
	Stock  decimal.Decimal
}

// MaxPurchasable returns min(floor(stock / amount)) over a menu's recipe.
// Recipe rows with a non-positive amount are ignored. ok is false when no row
// constrains the menu.
func MaxPurchasable(recipe []StockedAmount) (int32, bool) {
	best := decimal.Zero
	ok := false
	for _, r := range recipe {
		if !r.Amount.IsPositive() {
			continue
		}
		n := decimal.Zero
		if r.Stock.IsPositive() {
			n = r.Stock.Div(r.Amount).Floor()
		}
		if !ok || n.LessThan(best) {
			best = n
			ok = true
		}
	}
	if !ok {
		return 0, false
	}
	if best.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return math.MaxInt32, true
	}
	return int32(best.IntPart()), true
}

// Component is one edge of a semi-finished composition.
type Component struct {
	IngredientID uuid.UUID
	Amount       decimal.Decimal
}

// Composition maps a semi-finished ingredient to the components consumed to
// make one batch of it.
type Composition map[uuid.UUID][]Component

// Reaches reports whether target can be reached from start by following
// composition edges. start itself counts.
func (c Composition) Reaches(start, target uuid.UUID) bool {
	seen := make(map[uuid.UUID]bool)
	var walk func(id uuid.UUID) bool
	walk = func(id uuid.UUID) bool {
		if id == target {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		for _, comp := range c[id] {
			if walk(comp.IngredientID) {
				return true
			}
		}
		return false
	}
	return walk(start)
}

// CheckComponents validates a replacement composition for semiID against the
// rest of the graph.
func (c Composition) CheckComponents(semiID uuid.UUID, components []Component) error {
	if len(components) == 0 {
		return ErrEmptyComposition
	}
	seen := make(map[uuid.UUID]bool, len(components))
	for _, comp := range components {
		if comp.IngredientID == semiID {
			return ErrSelfComposition
		}
		if seen[comp.IngredientID] {
			return ErrDuplicateComponent
		}
		seen[comp.IngredientID] = true
		if !comp.Amount.IsPositive() {
			return ErrInvalidQuantity
		}
		if c.Reaches(comp.IngredientID, semiID) {
			return ErrCompositionCycle
		}
	}
	return nil
}

// Dependents returns every semi-finished ingredient whose composition uses any
// of ids, directly or through other semi-finished ingredients, ordered so each
// ingredient comes after all of its own semi-finished components.
func (c Composition) Dependents(ids []uuid.UUID) []uuid.UUID {
	usedBy := make(map[uuid.UUID][]uuid.UUID)
	for semi, comps := range c {
		for _, comp := range comps {
			usedBy[comp.IngredientID] = append(usedBy[comp.IngredientID], semi)
		}
	}

	affected := make(map[uuid.UUID]bool)
	queue := append([]uuid.UUID(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, semi := range usedBy[id] {
			if !affected[semi] {
				affected[semi] = true
				queue = append(queue, semi)
			}
		}
	}

	var ordered []uuid.UUID
	done := make(map[uuid.UUID]bool)
	var visit func(id uuid.UUID)
	visit = func(id uuid.UUID) {
		if done[id] {
			return
		}
		done[id] = true
		for _, comp := range c[id] {
			if affected[comp.IngredientID] {
				visit(comp.IngredientID)
			}
		}
		ordered = append(ordered, id)
	}

	roots := make([]uuid.UUID, 0, len(affected))
	for id := range affected {
		roots = append(roots, id)
	}
	sortIDs(roots)
	for _, id := range roots {
		visit(id)
	}
	return ordered
}

// BatchUnitCost is the cost of one unit of a semi-finished ingredient:
// Σ component amount × component unit cost, divided by the batch yield.
func BatchUnitCost(components []Component, unitCosts map[uuid.UUID]decimal.Decimal, batchYield decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, comp := range components {
		total = total.Add(comp.Amount.Mul(unitCosts[comp.IngredientID]))
	}
	if !batchYield.IsPositive() {
		return total.Round(4)
	}
	return total.Div(batchYield).Round(4)
}

// RollUpCosts recomputes the unit cost of every semi-finished ingredient that
// depends on changed, writing results into unitCosts. It returns the IDs whose
// cost was recomputed, in dependency order.
func RollUpCosts(c Composition, changed []uuid.UUID, unitCosts, batchYields map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	deps := c.Dependents(changed)
	for _, id := range deps {
		unitCosts[id] = BatchUnitCost(c[id], unitCosts, batchYields[id])
	}
	return deps
}

// WeightedUnitCost averages the current unit cost with the cost of a new
// receipt, weighted by quantity. A non-positive current stock takes the new
// cost outright.
func WeightedUnitCost(stock, currentCost, qty, newCost decimal.Decimal) decimal.Decimal {
	if !stock.IsPositive() {
		return newCost.Round(4)
	}
	total := stock.Mul(currentCost).Add(qty.Mul(newCost))
	return total.Div(stock.Add(qty)).Round(4)
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
