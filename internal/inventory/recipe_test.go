package inventory

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestAggregate_SumsMenusAndModifiers(t *testing.T) {
	coffee, milk, syrup := uuid.New(), uuid.New(), uuid.New()
	latte, extraShot, vanilla := uuid.New(), uuid.New(), uuid.New()

	menuReqs := map[uuid.UUID][]Requirement{
		latte: {need(coffee, "18"), need(milk, "150")},
	}
	modReqs := map[uuid.UUID][]Requirement{
		extraShot: {need(coffee, "9")},
		vanilla:   {need(syrup, "15")},
	}

	usage := Aggregate([]SoldLine{
		{MenuID: latte, ModifierIDs: []uuid.UUID{extraShot}, Quantity: 2},
		{MenuID: latte, ModifierIDs: []uuid.UUID{vanilla}, Quantity: 1},
	}, menuReqs, modReqs)

	if !usage[coffee].Equal(dec("72")) {
		t.Errorf("coffee: expected 72, got %s", usage[coffee])
	}
	if !usage[milk].Equal(dec("450")) {
		t.Errorf("milk: expected 450, got %s", usage[milk])
	}
	if !usage[syrup].Equal(dec("15")) {
		t.Errorf("syrup: expected 15, got %s", usage[syrup])
	}
}

func TestAggregate_NoRecipe(t *testing.T) {
	usage := Aggregate([]SoldLine{{MenuID: uuid.New(), Quantity: 3}}, nil, nil)
	if len(usage) != 0 {
		t.Fatalf("expected empty usage, got %d entries", len(usage))
	}
}

func TestUsageIDs_Sorted(t *testing.T) {
	usage := make(Usage)
	for i := 0; i < 20; i++ {
		usage[uuid.New()] = decimal.NewFromInt(1)
	}
	ids := usage.IDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1].String() >= ids[i].String() {
			t.Fatalf("ids not sorted at %d: %s >= %s", i, ids[i-1], ids[i])
		}
	}
}

func TestMaxPurchasable(t *testing.T) {
	tests := []struct {
		name   string
		recipe []StockedAmount
		want   int32
		wantOK bool
	}{
		{"no recipe", nil, 0, false},
		{"single", []StockedAmount{{Amount: dec("18"), Stock: dec("100")}}, 5, true},
		{"minimum wins", []StockedAmount{
			{Amount: dec("18"), Stock: dec("100")},
			{Amount: dec("150"), Stock: dec("400")},
		}, 2, true},
		{"exact", []StockedAmount{{Amount: dec("0.5"), Stock: dec("2")}}, 4, true},
		{"empty stock", []StockedAmount{{Amount: dec("1"), Stock: dec("0")}}, 0, true},
		{"zero amount ignored", []StockedAmount{
			{Amount: dec("0"), Stock: dec("0")},
			{Amount: dec("2"), Stock: dec("7")},
		}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MaxPurchasable(tt.recipe)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("expected (%d, %v), got (%d, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestCheckComponents(t *testing.T) {
	sugar, water, syrup, sauce := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	// syrup <- sugar, water ; sauce <- syrup
	comp := Composition{
		syrup: {{IngredientID: sugar, Amount: dec("500")}, {IngredientID: water, Amount: dec("500")}},
		sauce: {{IngredientID: syrup, Amount: dec("200")}},
	}

	tests := []struct {
		name    string
		semi    uuid.UUID
		comps   []Component
		wantErr error
	}{
		{"valid", sauce, []Component{{IngredientID: syrup, Amount: dec("100")}, {IngredientID: water, Amount: dec("50")}}, nil},
		{"empty", sauce, nil, ErrEmptyComposition},
		{"self", syrup, []Component{{IngredientID: syrup, Amount: dec("1")}}, ErrSelfComposition},
		{"direct cycle", syrup, []Component{{IngredientID: sauce, Amount: dec("1")}}, ErrCompositionCycle},
		{"duplicate", sauce, []Component{{IngredientID: syrup, Amount: dec("1")}, {IngredientID: syrup, Amount: dec("2")}}, ErrDuplicateComponent},
		{"non-positive amount", sauce, []Component{{IngredientID: syrup, Amount: dec("0")}}, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := comp.CheckComponents(tt.semi, tt.comps)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheckComponents_IndirectCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	// a <- b <- c ; making c depend on a closes the loop
	comp := Composition{
		a: {{IngredientID: b, Amount: dec("1")}},
		b: {{IngredientID: c, Amount: dec("1")}},
	}
	err := comp.CheckComponents(c, []Component{{IngredientID: a, Amount: dec("1")}})
	if !errors.Is(err, ErrCompositionCycle) {
		t.Fatalf("expected ErrCompositionCycle, got %v", err)
	}
}

func TestDependents_Order(t *testing.T) {
	sugar, syrup, sauce, other := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	comp := Composition{
		sauce: {{IngredientID: syrup, Amount: dec("1")}, {IngredientID: sugar, Amount: dec("1")}},
		syrup: {{IngredientID: sugar, Amount: dec("1")}},
		other: {{IngredientID: uuid.New(), Amount: dec("1")}},
	}

	deps := comp.Dependents([]uuid.UUID{sugar})
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents, got %d", len(deps))
	}
	if deps[0] != syrup || deps[1] != sauce {
		t.Fatalf("expected syrup before sauce, got %v", deps)
	}
}

func TestRollUpCosts_Transitive(t *testing.T) {
	sugar, water, syrup, sauce := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	comp := Composition{
		syrup: {{IngredientID: sugar, Amount: dec("500")}, {IngredientID: water, Amount: dec("500")}},
		sauce: {{IngredientID: syrup, Amount: dec("200")}},
	}
	costs := map[uuid.UUID]decimal.Decimal{
		sugar: dec("20"),
		water: dec("0"),
		syrup: dec("0"),
		sauce: dec("0"),
	}
	yields := map[uuid.UUID]decimal.Decimal{
		syrup: dec("1000"),
		sauce: dec("100"),
	}

	changed := RollUpCosts(comp, []uuid.UUID{sugar}, costs, yields)

	if len(changed) != 2 {
		t.Fatalf("expected 2 recomputed, got %d", len(changed))
	}
	// syrup: 500 × 20 / 1000 = 10 per unit
	if !costs[syrup].Equal(dec("10")) {
		t.Errorf("syrup cost: expected 10, got %s", costs[syrup])
	}
	// sauce: 200 × 10 / 100 = 20 per unit
	if !costs[sauce].Equal(dec("20")) {
		t.Errorf("sauce cost: expected 20, got %s", costs[sauce])
	}
}

func TestWeightedUnitCost(t *testing.T) {
	tests := []struct {
		stock, cost, qty, newCost, want string
	}{
		{"100", "10", "100", "20", "15"},
		{"0", "10", "50", "12", "12"},
		{"-1", "10", "50", "12", "12"},
		{"300", "10", "100", "14", "11"},
	}
	for _, tt := range tests {
		got := WeightedUnitCost(dec(tt.stock), dec(tt.cost), dec(tt.qty), dec(tt.newCost))
		if !got.Equal(dec(tt.want)) {
			t.Errorf("WeightedUnitCost(%s, %s, %s, %s) = %s, want %s",
				tt.stock, tt.cost, tt.qty, tt.newCost, got, tt.want)
		}
	}
}
