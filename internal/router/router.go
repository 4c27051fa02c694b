package router

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kedai-pos/api/internal/cache"
	"github.com/kedai-pos/api/internal/config"
	"github.com/kedai-pos/api/internal/database"
	"github.com/kedai-pos/api/internal/enum"
	"github.com/kedai-pos/api/internal/handler"
	"github.com/kedai-pos/api/internal/inventory"
	mw "github.com/kedai-pos/api/internal/middleware"
	"github.com/kedai-pos/api/internal/service"
	"github.com/kedai-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// availCache and guard may be nil, which disables caching and idempotency.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, availCache cache.AvailabilityCache, guard cache.RequestGuard) chi.Router {
	if availCache == nil {
		availCache = cache.NoopAvailabilityCache{}
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.IdempotencyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(ctx); err != nil {
			log.Printf("WARN: health: database ping: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{room}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, availCache, hub)
	inventoryService := inventory.NewService(pool, func(db database.DBTX) inventory.StockStore {
		return database.New(db)
	}, availCache, hub)
	reportService := service.NewReportService(queries)

	orderHandler := handler.NewOrderHandler(orderService, queries, guard)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, queries)
	availabilityHandler := handler.NewAvailabilityHandler(queries, availCache, inventoryService)
	reportsHandler := handler.NewReportsHandler(reportService)

	requireManager := mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/orders", orderHandler.RegisterRoutes)

		r.Route("/menus/availability", func(r chi.Router) {
			availabilityHandler.RegisterRoutes(r)
			r.With(requireManager).Group(availabilityHandler.RegisterManageRoutes)
		})

		r.Route("/inventory/ingredients", func(r chi.Router) {
			inventoryHandler.RegisterRoutes(r)
			r.With(requireManager).Group(inventoryHandler.RegisterManageRoutes)
		})

		// Owner and manager only
		r.Group(func(r chi.Router) {
			r.Use(requireManager)
			r.Route("/reports", reportsHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
