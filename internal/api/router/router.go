package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talshachar/therabill/internal/http/handlers"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Billing            *handlers.BillingHandler
	Payments           *handlers.PaymentsHandler
	Analysis           *handlers.AnalysisHandler
	Patients           *handlers.PatientsHandler
	MatchingAdmin      *handlers.MatchingAdminHandler
	Settings           *handlers.SettingsHandler
	CalendarAdmin      *handlers.CalendarAdminHandler
	MetricsHandler     http.Handler
	TherapistJWTSecret string
	CORSAllowedOrigins []string
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(20, 40))
		api.Use(httpmiddleware.TherapistJWT(cfg.TherapistJWTSecret))

		if cfg.Billing != nil {
			api.Get("/billing/{month}", cfg.Billing.GetMonth)
		}
		if cfg.Payments != nil {
			api.Post("/billing/{month}/sync", cfg.Payments.PostSync)
			api.Post("/payments/{month}/toggle", cfg.Payments.PostToggle)
		}
		if cfg.Analysis != nil {
			api.Get("/analysis/{month}", cfg.Analysis.GetMonth)
		}
		if cfg.Patients != nil {
			api.Get("/patients", cfg.Patients.List)
			api.Post("/patients", cfg.Patients.Upsert)
			api.Delete("/patients/{id}", cfg.Patients.Delete)
			api.Get("/patients/suggest", cfg.Patients.Suggest)
		}
		if cfg.MatchingAdmin != nil {
			api.Get("/aliases", cfg.MatchingAdmin.ListAliases)
			api.Post("/aliases", cfg.MatchingAdmin.UpsertAlias)
			api.Delete("/aliases", cfg.MatchingAdmin.DeleteAlias)
			api.Get("/ignores", cfg.MatchingAdmin.ListIgnores)
			api.Post("/ignores", cfg.MatchingAdmin.UpsertIgnore)
			api.Delete("/ignores", cfg.MatchingAdmin.DeleteIgnore)
			api.Get("/overrides", cfg.MatchingAdmin.ListOverrides)
			api.Post("/overrides", cfg.MatchingAdmin.UpsertOverride)
			api.Delete("/overrides", cfg.MatchingAdmin.DeleteOverride)
		}
		if cfg.Settings != nil {
			api.Get("/settings/vat", cfg.Settings.GetVAT)
			api.Put("/settings/vat", cfg.Settings.PutVAT)
			api.Get("/settings/deductions", cfg.Settings.ListDeductions)
			api.Post("/settings/deductions", cfg.Settings.UpsertDeduction)
			api.Delete("/settings/deductions/{id}", cfg.Settings.DeleteDeduction)
		}
		if cfg.CalendarAdmin != nil {
			api.Post("/calendar/rename", cfg.CalendarAdmin.PostRename)
		}
	})

	return r
}
