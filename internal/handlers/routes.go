package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hi-events/hi-events-api/internal/auth"
	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/logging"
	"github.com/hi-events/hi-events-api/internal/metrics"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
)

// Handlers groups the API handlers registered by RegisterOperations.
type Handlers struct {
	Auth          *AuthHandler
	Events        *EventHandler
	Registrations *RegistrationHandler
	Categories    *CategoryHandler
	Dashboard     *DashboardHandler
	System        *SystemHandler
}

// RegisterRoutes mounts the middleware stack, the plain HTTP routes and every
// API operation on r. discord may be nil when social login is not configured.
func RegisterRoutes(r *chi.Mux, cfg *config.Config, logger zerolog.Logger, authn *auth.Authenticator, h Handlers, discord *auth.DiscordLogin) huma.API {
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Handle(PathMetrics, metrics.Handler())

	if discord != nil {
		r.Get(PathDiscordLogin, discord.HandleLogin)
		r.Get(PathDiscordCallback, discord.HandleCallback)
	}

	api := NewAPI(r)
	RegisterOperations(api, authn, h)
	return api
}

func RegisterOperations(api huma.API, authn *auth.Authenticator, h Handlers) {
	security := []map[string][]string{{"bearerAuth": {}}, {"cookieAuth": {}}}
	protected := func(op huma.Operation, roles ...models.Role) huma.Operation {
		op.Security = security
		op.Middlewares = huma.Middlewares{authn.RequireAuth(api, roles...)}
		return op
	}
	optional := func(op huma.Operation) huma.Operation {
		op.Middlewares = huma.Middlewares{authn.OptionalAuth()}
		return op
	}

	// System
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        PathHealth,
		Summary:     "Database health check",
		Tags:        []string{"System"},
	}, h.System.HandleHealth)
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        PathStats,
		Summary:     "Platform totals",
		Tags:        []string{"System"},
	}, h.System.HandleStats)

	// Auth
	huma.Register(api, huma.Operation{
		OperationID:   "register-user",
		Method:        http.MethodPost,
		Path:          PathAuthRegister,
		Summary:       "Create an account",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, h.Auth.HandleRegister)
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        PathAuthLogin,
		Summary:     "Log in with e-mail and password",
		Tags:        []string{"Auth"},
	}, h.Auth.HandleLogin)
	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        PathAuthLogout,
		Summary:     "Clear the session cookie",
		Tags:        []string{"Auth"},
	}, h.Auth.HandleLogout)
	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        PathAuthRefresh,
		Summary:     "Exchange a refresh token for a new token pair",
		Tags:        []string{"Auth"},
	}, h.Auth.HandleRefresh)
	huma.Register(api, protected(huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        PathAuthProfile,
		Summary:     "Current user's profile",
		Tags:        []string{"Auth"},
	}), h.Auth.HandleGetProfile)
	huma.Register(api, protected(huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPut,
		Path:        PathAuthProfile,
		Summary:     "Update the current user's profile",
		Tags:        []string{"Auth"},
	}), h.Auth.HandleUpdateProfile)

	// Events
	huma.Register(api, optional(huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        PathEvents,
		Summary:     "List events",
		Tags:        []string{"Events"},
	}), h.Events.HandleList)
	huma.Register(api, protected(huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          PathEvents,
		Summary:       "Create an event",
		Tags:          []string{"Events"},
		DefaultStatus: http.StatusCreated,
	}, models.RoleOrganizer, models.RoleAdmin), h.Events.HandleCreate)
	huma.Register(api, optional(huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        PathEvent,
		Summary:     "Get an event by ID or slug",
		Tags:        []string{"Events"},
	}), h.Events.HandleGet)
	huma.Register(api, protected(huma.Operation{
		OperationID: "update-event",
		Method:      http.MethodPut,
		Path:        PathEvent,
		Summary:     "Update an event",
		Tags:        []string{"Events"},
	}), h.Events.HandleUpdate)
	huma.Register(api, protected(huma.Operation{
		OperationID: "delete-event",
		Method:      http.MethodDelete,
		Path:        PathEvent,
		Summary:     "Delete an event and its registrations",
		Tags:        []string{"Events"},
	}), h.Events.HandleDelete)

	// Registrations
	huma.Register(api, protected(huma.Operation{
		OperationID:   "register-for-event",
		Method:        http.MethodPost,
		Path:          PathEventRegister,
		Summary:       "Register for an event",
		Tags:          []string{"Registrations"},
		DefaultStatus: http.StatusCreated,
	}), h.Registrations.HandleRegister)
	huma.Register(api, protected(huma.Operation{
		OperationID: "cancel-registration",
		Method:      http.MethodDelete,
		Path:        PathEventRegister,
		Summary:     "Cancel a registration",
		Tags:        []string{"Registrations"},
	}), h.Registrations.HandleCancel)
	huma.Register(api, protected(huma.Operation{
		OperationID: "list-event-registrations",
		Method:      http.MethodGet,
		Path:        PathEventRegistrations,
		Summary:     "Registrations of an event",
		Tags:        []string{"Registrations"},
	}), h.Registrations.HandleForEvent)
	huma.Register(api, protected(huma.Operation{
		OperationID: "list-my-registrations",
		Method:      http.MethodGet,
		Path:        PathRegistrations,
		Summary:     "Current user's registrations with history",
		Tags:        []string{"Registrations"},
	}), h.Registrations.HandleMine)

	// Categories
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        PathCategories,
		Summary:     "List categories",
		Tags:        []string{"Categories"},
	}, h.Categories.HandleList)
	huma.Register(api, protected(huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          PathCategories,
		Summary:       "Create a category",
		Tags:          []string{"Categories"},
		DefaultStatus: http.StatusCreated,
	}, models.RoleAdmin), h.Categories.HandleCreate)

	// Dashboard
	huma.Register(api, protected(huma.Operation{
		OperationID: "get-dashboard",
		Method:      http.MethodGet,
		Path:        PathDashboard,
		Summary:     "Organizer dashboard",
		Tags:        []string{"Dashboard"},
	}, models.RoleOrganizer, models.RoleAdmin), h.Dashboard.HandleGet)
}
