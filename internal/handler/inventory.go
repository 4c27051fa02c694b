package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/inventory"
	"github.com/kedai-pos/api/internal/middleware"
	"github.com/shopspring/decimal"
)

// InventoryServicer defines the stock operations used by inventory handlers.
// Satisfied by *inventory.Service.
type InventoryServicer interface {
	ReceiveStock(ctx context.Context, req inventory.ReceiveStockRequest) (*database.Ingredient, error)
	RecordWaste(ctx context.Context, req inventory.RecordWasteRequest) (*database.IngredientWasteEntry, error)
	ProduceBatch(ctx context.Context, req inventory.ProduceBatchRequest) (*database.Ingredient, error)
	SetComposition(ctx context.Context, req inventory.SetCompositionRequest) (*database.Ingredient, error)
	RecomputeAll(ctx context.Context) ([]inventory.MenuAvailability, error)
}

// IngredientStore defines the ingredient reads. Satisfied by *database.Queries.
type IngredientStore interface {
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
}

// InventoryHandler handles ingredient stock endpoints.
type InventoryHandler struct {
	svc   InventoryServicer
	store IngredientStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc InventoryServicer, store IngredientStore) *InventoryHandler {
	return &InventoryHandler{svc: svc, store: store}
}

// RegisterRoutes registers read endpoints, open to every authenticated role.
// Expected to be mounted at /ingredients.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterManageRoutes registers stock mutations. The caller wraps them in
// a role check. Expected to be mounted at /ingredients.
func (h *InventoryHandler) RegisterManageRoutes(r chi.Router) {
	r.Post("/{id}/stock-in", h.ReceiveStock)
	r.Post("/{id}/waste", h.RecordWaste)
	r.Post("/{id}/produce", h.Produce)
	r.Put("/{id}/composition", h.SetComposition)
}

// --- Request / Response types ---

type receiveStockRequest struct {
	Quantity string `json:"quantity"`
	UnitCost string `json:"unit_cost"`
}

type recordWasteRequest struct {
	Quantity string `json:"quantity"`
	Reason   string `json:"reason"`
}

type produceRequest struct {
	Batches string `json:"batches"`
}

type compositionRequest struct {
	Components []componentRequest `json:"components"`
}

type componentRequest struct {
	IngredientID string `json:"ingredient_id"`
	Amount       string `json:"amount"`
}

type ingredientResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Unit              string    `json:"unit"`
	Stock             string    `json:"stock"`
	StockMinThreshold string    `json:"stock_min_threshold"`
	UnitCost          string    `json:"unit_cost"`
	IsSemiFinished    bool      `json:"is_semi_finished"`
	BatchYield        string    `json:"batch_yield"`
	LowStock          bool      `json:"low_stock"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type wasteEntryResponse struct {
	ID           uuid.UUID `json:"id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     string    `json:"quantity"`
	Reason       *string   `json:"reason"`
	RecordedBy   *string   `json:"recorded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Handlers ---

// List handles GET /ingredients.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListIngredients(r.Context())
	if err != nil {
		writeError(w, "list ingredients", err)
		return
	}

	resp := make([]ingredientResponse, len(rows))
	for i, ing := range rows {
		resp[i] = toIngredientResponse(ing)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /ingredients/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ingredientIDParam(w, r)
	if !ok {
		return
	}

	ing, err := h.store.GetIngredient(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inventory.ErrIngredientNotFound
		}
		writeError(w, "get ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponse(ing))
}

// ReceiveStock handles POST /ingredients/{id}/stock-in.
func (h *InventoryHandler) ReceiveStock(w http.ResponseWriter, r *http.Request) {
	id, ok := ingredientIDParam(w, r)
	if !ok {
		return
	}

	var req receiveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	qty, err := parsePositive("quantity", req.Quantity)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	svcReq := inventory.ReceiveStockRequest{IngredientID: id, Quantity: qty}
	if req.UnitCost != "" {
		cost, err := decimal.NewFromString(req.UnitCost)
		if err != nil {
			writeBadRequest(w, "invalid unit_cost")
			return
		}
		svcReq.UnitCost = &cost
	}

	ing, err := h.svc.ReceiveStock(r.Context(), svcReq)
	if err != nil {
		writeError(w, "receive stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponse(*ing))
}

// RecordWaste handles POST /ingredients/{id}/waste.
func (h *InventoryHandler) RecordWaste(w http.ResponseWriter, r *http.Request) {
	id, ok := ingredientIDParam(w, r)
	if !ok {
		return
	}

	var req recordWasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	qty, err := parsePositive("quantity", req.Quantity)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	svcReq := inventory.RecordWasteRequest{IngredientID: id, Quantity: qty, Reason: req.Reason}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		svcReq.RecordedBy = claims.UserID
	}

	entry, err := h.svc.RecordWaste(r.Context(), svcReq)
	if err != nil {
		writeError(w, "record waste", err)
		return
	}
	writeJSON(w, http.StatusCreated, wasteEntryResponse{
		ID:           entry.ID,
		IngredientID: entry.IngredientID,
		Quantity:     quantityToString(entry.Quantity),
		Reason:       textPtr(entry.Reason),
		RecordedBy:   uuidPtr(entry.RecordedBy),
		CreatedAt:    entry.CreatedAt,
	})
}

// Produce handles POST /ingredients/{id}/produce.
func (h *InventoryHandler) Produce(w http.ResponseWriter, r *http.Request) {
	id, ok := ingredientIDParam(w, r)
	if !ok {
		return
	}

	var req produceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	batches, err := parsePositive("batches", req.Batches)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ing, err := h.svc.ProduceBatch(r.Context(), inventory.ProduceBatchRequest{
		SemiFinishedID: id,
		Batches:        batches,
	})
	if err != nil {
		writeError(w, "produce batch", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponse(*ing))
}

// SetComposition handles PUT /ingredients/{id}/composition.
func (h *InventoryHandler) SetComposition(w http.ResponseWriter, r *http.Request) {
	id, ok := ingredientIDParam(w, r)
	if !ok {
		return
	}

	var req compositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	components := make([]inventory.Component, len(req.Components))
	for i, c := range req.Components {
		cid, err := uuid.Parse(c.IngredientID)
		if err != nil {
			writeBadRequest(w, "invalid ingredient_id")
			return
		}
		amount, err := parsePositive("amount", c.Amount)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		components[i] = inventory.Component{IngredientID: cid, Amount: amount}
	}

	ing, err := h.svc.SetComposition(r.Context(), inventory.SetCompositionRequest{
		SemiFinishedID: id,
		Components:     components,
	})
	if err != nil {
		writeError(w, "set composition", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientResponse(*ing))
}

// --- Helpers ---

func ingredientIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid ingredient ID")
		return uuid.Nil, false
	}
	return id, true
}

func toIngredientResponse(ing database.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:                ing.ID,
		Name:              ing.Name,
		Unit:              ing.Unit,
		Stock:             quantityToString(ing.Stock),
		StockMinThreshold: quantityToString(ing.StockMinThreshold),
		UnitCost:          numericToString(ing.UnitCost),
		IsSemiFinished:    ing.IsSemiFinished,
		BatchYield:        quantityToString(ing.BatchYield),
		LowStock:          inventory.IsLowStock(ing),
		UpdatedAt:         ing.UpdatedAt,
	}
}
