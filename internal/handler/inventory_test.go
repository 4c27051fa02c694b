package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/handler"
	"github.com/kedai-pos/api/internal/inventory"
	"github.com/kedai-pos/api/internal/middleware"
	"github.com/shopspring/decimal"
)

// --- Mock InventoryServicer ---

type mockInventoryService struct {
	receiveFn     func(ctx context.Context, req inventory.ReceiveStockRequest) (*database.Ingredient, error)
	wasteFn       func(ctx context.Context, req inventory.RecordWasteRequest) (*database.IngredientWasteEntry, error)
	produceFn     func(ctx context.Context, req inventory.ProduceBatchRequest) (*database.Ingredient, error)
	compositionFn func(ctx context.Context, req inventory.SetCompositionRequest) (*database.Ingredient, error)
	recomputeFn   func(ctx context.Context) ([]inventory.MenuAvailability, error)
}

func (m *mockInventoryService) ReceiveStock(ctx context.Context, req inventory.ReceiveStockRequest) (*database.Ingredient, error) {
	return m.receiveFn(ctx, req)
}

func (m *mockInventoryService) RecordWaste(ctx context.Context, req inventory.RecordWasteRequest) (*database.IngredientWasteEntry, error) {
	return m.wasteFn(ctx, req)
}

func (m *mockInventoryService) ProduceBatch(ctx context.Context, req inventory.ProduceBatchRequest) (*database.Ingredient, error) {
	return m.produceFn(ctx, req)
}

func (m *mockInventoryService) SetComposition(ctx context.Context, req inventory.SetCompositionRequest) (*database.Ingredient, error) {
	return m.compositionFn(ctx, req)
}

func (m *mockInventoryService) RecomputeAll(ctx context.Context) ([]inventory.MenuAvailability, error) {
	return m.recomputeFn(ctx)
}

// --- Mock IngredientStore ---

type mockIngredientStore struct {
	ingredients []database.Ingredient
}

func (m *mockIngredientStore) ListIngredients(ctx context.Context) ([]database.Ingredient, error) {
	return m.ingredients, nil
}

func (m *mockIngredientStore) GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error) {
	for _, ing := range m.ingredients {
		if ing.ID == id {
			return ing, nil
		}
	}
	return database.Ingredient{}, pgx.ErrNoRows
}

func setupInventoryRouter(svc *mockInventoryService, store *mockIngredientStore) *chi.Mux {
	if store == nil {
		store = &mockIngredientStore{}
	}
	h := handler.NewInventoryHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/inventory/ingredients", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterManageRoutes(r)
	})
	return r
}

func testIngredient(name, stock, threshold string) database.Ingredient {
	return database.Ingredient{
		ID:                uuid.New(),
		Name:              name,
		Unit:              "g",
		Stock:             testNumeric(stock),
		StockMinThreshold: testNumeric(threshold),
		UnitCost:          testNumeric("12.5"),
		BatchYield:        testNumeric("1"),
		UpdatedAt:         time.Now(),
	}
}

// --- Tests ---

func TestInventoryList_FlagsLowStock(t *testing.T) {
	store := &mockIngredientStore{ingredients: []database.Ingredient{
		testIngredient("Beans", "1500", "500"),
		testIngredient("Milk", "200", "500"),
	}}
	rr := doAuthRequest(t, setupInventoryRouter(&mockInventoryService{}, store), "GET", "/inventory/ingredients", nil, testClaims("CASHIER"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("ingredients: got %d, want 2", len(resp))
	}
	if resp[0]["low_stock"] != false || resp[1]["low_stock"] != true {
		t.Errorf("low_stock flags: got %v / %v", resp[0]["low_stock"], resp[1]["low_stock"])
	}
	if resp[0]["stock"] != "1500.000" {
		t.Errorf("stock: got %v, want 1500.000", resp[0]["stock"])
	}
}

func TestInventoryGet_NotFound(t *testing.T) {
	rr := doAuthRequest(t, setupInventoryRouter(&mockInventoryService{}, nil), "GET", "/inventory/ingredients/"+uuid.New().String(), nil, testClaims("MANAGER"))
	expectError(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestInventoryReceiveStock_PassesUnitCost(t *testing.T) {
	ing := testIngredient("Beans", "2500", "500")
	svc := &mockInventoryService{
		receiveFn: func(ctx context.Context, req inventory.ReceiveStockRequest) (*database.Ingredient, error) {
			if req.IngredientID != ing.ID {
				t.Errorf("ingredient_id: got %v, want %v", req.IngredientID, ing.ID)
			}
			if !req.Quantity.Equal(decimal.NewFromInt(1000)) {
				t.Errorf("quantity: got %s, want 1000", req.Quantity)
			}
			if req.UnitCost == nil || !req.UnitCost.Equal(decimal.NewFromInt(15)) {
				t.Errorf("unit_cost: got %v, want 15", req.UnitCost)
			}
			return &ing, nil
		},
	}
	rr := doAuthRequest(t, setupInventoryRouter(svc, nil), "POST", "/inventory/ingredients/"+ing.ID.String()+"/stock-in",
		map[string]string{"quantity": "1000", "unit_cost": "15"}, testClaims("MANAGER"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
}

func TestInventoryReceiveStock_InvalidQuantity(t *testing.T) {
	for _, qty := range []string{"", "abc", "0", "-5"} {
		rr := doAuthRequest(t, setupInventoryRouter(&mockInventoryService{}, nil), "POST", "/inventory/ingredients/"+uuid.New().String()+"/stock-in",
			map[string]string{"quantity": qty}, testClaims("MANAGER"))
		expectError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	}
}

func TestInventoryRecordWaste_RecordsUser(t *testing.T) {
	claims := testClaims("OWNER")
	ingID := uuid.New()
	svc := &mockInventoryService{
		wasteFn: func(ctx context.Context, req inventory.RecordWasteRequest) (*database.IngredientWasteEntry, error) {
			if req.RecordedBy != claims.UserID {
				t.Errorf("recorded_by: got %v, want %v", req.RecordedBy, claims.UserID)
			}
			if req.Reason != "spilled" {
				t.Errorf("reason: got %q, want spilled", req.Reason)
			}
			return &database.IngredientWasteEntry{
				ID:           uuid.New(),
				IngredientID: req.IngredientID,
				Quantity:     testNumeric("250"),
				Reason:       pgtype.Text{String: req.Reason, Valid: true},
				RecordedBy:   pgtype.UUID{Bytes: req.RecordedBy, Valid: true},
				CreatedAt:    time.Now(),
			}, nil
		},
	}
	rr := doAuthRequest(t, setupInventoryRouter(svc, nil), "POST", "/inventory/ingredients/"+ingID.String()+"/waste",
		map[string]string{"quantity": "250", "reason": "spilled"}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["quantity"] != "250.000" {
		t.Errorf("quantity: got %v, want 250.000", resp["quantity"])
	}
}

func TestInventoryRecordWaste_InsufficientStock(t *testing.T) {
	svc := &mockInventoryService{
		wasteFn: func(ctx context.Context, req inventory.RecordWasteRequest) (*database.IngredientWasteEntry, error) {
			return nil, &inventory.InsufficientStockError{
				IngredientID: req.IngredientID,
				Name:         "Milk",
				Available:    decimal.NewFromInt(100),
				Required:     req.Quantity,
			}
		},
	}
	rr := doAuthRequest(t, setupInventoryRouter(svc, nil), "POST", "/inventory/ingredients/"+uuid.New().String()+"/waste",
		map[string]string{"quantity": "250"}, testClaims("MANAGER"))
	expectError(t, rr, http.StatusConflict, "INSUFFICIENT_STOCK")
}

func TestInventoryProduce(t *testing.T) {
	ing := testIngredient("Cold brew base", "2000", "0")
	svc := &mockInventoryService{
		produceFn: func(ctx context.Context, req inventory.ProduceBatchRequest) (*database.Ingredient, error) {
			if !req.Batches.Equal(decimal.NewFromInt(2)) {
				t.Errorf("batches: got %s, want 2", req.Batches)
			}
			return &ing, nil
		},
	}
	rr := doAuthRequest(t, setupInventoryRouter(svc, nil), "POST", "/inventory/ingredients/"+ing.ID.String()+"/produce",
		map[string]string{"batches": "2"}, testClaims("MANAGER"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
}

func TestInventorySetComposition(t *testing.T) {
	semiID := uuid.New()
	beans := uuid.New()
	t.Run("maps components", func(t *testing.T) {
		ing := testIngredient("Cold brew base", "0", "0")
		svc := &mockInventoryService{
			compositionFn: func(ctx context.Context, req inventory.SetCompositionRequest) (*database.Ingredient, error) {
				if req.SemiFinishedID != semiID || len(req.Components) != 1 || req.Components[0].IngredientID != beans {
					t.Errorf("request not mapped: %+v", req)
				}
				return &ing, nil
			},
		}
		rr := doAuthRequest(t, setupInventoryRouter(svc, nil), "PUT", "/inventory/ingredients/"+semiID.String()+"/composition",
			map[string]interface{}{"components": []map[string]string{{"ingredient_id": beans.String(), "amount": "100"}}}, testClaims("OWNER"))
		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200; body: %s", rr.Code, rr.Body.String())
		}
	})
	t.Run("cycle rejected", func(t *testing.T) {
		svc := &mockInventoryService{
			compositionFn: func(ctx context.Context, req inventory.SetCompositionRequest) (*database.Ingredient, error) {
				return nil, inventory.ErrCompositionCycle
			},
		}
		rr := doAuthRequest(t, setupInventoryRouter(svc, nil), "PUT", "/inventory/ingredients/"+semiID.String()+"/composition",
			map[string]interface{}{"components": []map[string]string{{"ingredient_id": beans.String(), "amount": "100"}}}, testClaims("OWNER"))
		expectError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	})
	t.Run("invalid ingredient id", func(t *testing.T) {
		rr := doAuthRequest(t, setupInventoryRouter(&mockInventoryService{}, nil), "PUT", "/inventory/ingredients/"+semiID.String()+"/composition",
			map[string]interface{}{"components": []map[string]string{{"ingredient_id": "beans", "amount": "100"}}}, testClaims("OWNER"))
		expectError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	})
}
