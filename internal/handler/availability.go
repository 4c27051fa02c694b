package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kedai-pos/api/internal/cache"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/inventory"
)

// AvailabilityStore reads the stored availability of every active menu.
type AvailabilityStore interface {
	ListMenuAvailability(ctx context.Context) ([]database.ListMenuAvailabilityRow, error)
}

// Recomputer rebuilds availability from current stock.
type Recomputer interface {
	RecomputeAll(ctx context.Context) ([]inventory.MenuAvailability, error)
}

// AvailabilityHandler serves the menu availability list.
type AvailabilityHandler struct {
	store AvailabilityStore
	cache cache.AvailabilityCache
	svc   Recomputer
}

// NewAvailabilityHandler creates a new AvailabilityHandler. c may be nil.
func NewAvailabilityHandler(store AvailabilityStore, c cache.AvailabilityCache, svc Recomputer) *AvailabilityHandler {
	if c == nil {
		c = cache.NoopAvailabilityCache{}
	}
	return &AvailabilityHandler{store: store, cache: c, svc: svc}
}

// RegisterRoutes mounts GET /menus/availability.
func (h *AvailabilityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterManageRoutes mounts POST /menus/availability/recompute.
func (h *AvailabilityHandler) RegisterManageRoutes(r chi.Router) {
	r.Post("/recompute", h.Recompute)
}

type availabilityResponse struct {
	MenuID         uuid.UUID `json:"menu_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	IsAvailable    bool      `json:"is_available"`
	MaxPurchasable *int32    `json:"max_purchasable"`
}

// List handles GET /menus/availability. Served from the cache when warm.
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, hit, gen, err := h.cache.Get(r.Context())
	if err != nil {
		log.Printf("WARN: availability cache get: %v", err)
	}
	if !hit {
		rows, err = h.store.ListMenuAvailability(r.Context())
		if err != nil {
			writeError(w, "list menu availability", err)
			return
		}
		// Dropped if stock changed while the list was loading
		if err := h.cache.Set(r.Context(), gen, rows); err != nil {
			log.Printf("WARN: availability cache set: %v", err)
		}
	}

	resp := make([]availabilityResponse, len(rows))
	for i, row := range rows {
		resp[i] = availabilityResponse{
			MenuID:      row.ID,
			Name:        row.Name,
			Category:    row.Category,
			IsAvailable: row.IsAvailable,
		}
		if row.MaxPurchasable.Valid {
			n := row.MaxPurchasable.Int32
			resp[i].MaxPurchasable = &n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Recompute handles POST /menus/availability/recompute.
func (h *AvailabilityHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	avail, err := h.svc.RecomputeAll(r.Context())
	if err != nil {
		writeError(w, "recompute availability", err)
		return
	}
	if avail == nil {
		avail = []inventory.MenuAvailability{}
	}
	writeJSON(w, http.StatusOK, avail)
}
