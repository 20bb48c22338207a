package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/handlers"
	"github.com/hoa-ledger/apiserver/internal/logging"
	"github.com/hoa-ledger/apiserver/internal/metrics"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/rs/zerolog"
)

const requestTimeout = 60 * time.Second

// Repositories are the persistence dependencies of the services.
type Repositories struct {
	Users        services.UserRepository
	Houses       services.HouseRepository
	Neighbors    services.NeighborRepository
	Neighborhood services.NeighborhoodRepository
	Ledger       services.LedgerRepository
}

// Services groups the application services behind the HTTP routes.
type Services struct {
	Auth         *services.AuthService
	Users        *services.UserService
	Houses       *services.HouseService
	Neighbors    *services.NeighborService
	Neighborhood *services.NeighborhoodService
	Ledger       *services.LedgerService
	Receipts     *services.ReceiptService
}

// NewServices wires the services. events, receipts and generated may be nil.
func NewServices(
	repos Repositories,
	tokens *auth.TokenManager,
	events services.EventPublisher,
	receipts services.ReceiptStore,
	generated services.ChargeCounter,
) Services {
	return Services{
		Auth:         services.NewAuthService(repos.Users, repos.Neighbors, tokens),
		Users:        services.NewUserService(repos.Users),
		Houses:       services.NewHouseService(repos.Houses),
		Neighbors:    services.NewNeighborService(repos.Neighbors, repos.Houses, events),
		Neighborhood: services.NewNeighborhoodService(repos.Neighborhood),
		Ledger:       services.NewLedgerService(repos.Ledger, repos.Neighbors, repos.Neighborhood, events, generated),
		Receipts:     services.NewReceiptService(repos.Ledger, receipts),
	}
}

// RouterOptions carries the optional parts of the HTTP surface.
type RouterOptions struct {
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	DB          handlers.Pinger
	CORSOrigins []string
}

// NewRouter builds the HTTP routes of the API.
func NewRouter(svc Services, tokens *auth.TokenManager, opts RouterOptions) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(opts.Logger),
		middleware.Recoverer,
	)
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(requestTimeout),
	)

	router.Get("/healthz", handlers.Health(opts.DB))
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler())
	}
	handlers.AuthRouter(router, svc.Auth, tokens)

	router.Group(func(r chi.Router) {
		r.Use(handlers.RequireAuth(tokens))

		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Users, svc.Auth)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireRole(types.RoleAdmin))

			r.Route("/neighborhood", func(r chi.Router) {
				handlers.NeighborhoodRouter(r, svc.Neighborhood)
			})
			r.Route("/houses", func(r chi.Router) {
				handlers.HouseRouter(r, svc.Houses)
			})
			r.Route("/neighbors", func(r chi.Router) {
				handlers.NeighborRouter(r, svc.Neighbors, svc.Ledger)
			})
			r.Route("/charges", func(r chi.Router) {
				handlers.ChargeRouter(r, svc.Ledger)
			})
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(handlers.RequireRole(types.RoleNeighbor))
			handlers.MeRouter(r, svc.Ledger, svc.Receipts)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})

	return router
}
