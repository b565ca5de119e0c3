// Package server wires the entitlement gate, services and handlers into the
// root http.Handler.
package server

import (
	"context"
	"net/http"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/i18n"
	"github.com/diewo77/go-facture/internal/config"
	"github.com/diewo77/go-facture/internal/entitlement"
	"github.com/diewo77/go-facture/internal/handlers"
	"github.com/diewo77/go-facture/internal/mail"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/pdf"
	"github.com/diewo77/go-facture/internal/policy"
	"github.com/diewo77/go-facture/internal/services"
	"gorm.io/gorm"
)

// RouterConfig holds the wired gate, services and handlers. Tests build a
// partial one by hand; production goes through NewRouterConfig.
type RouterConfig struct {
	Gate *entitlement.Gate

	AuthHandler      *handlers.AuthHandler
	ClientHandler    *handlers.ClientHandler
	DevisHandler     *handlers.DevisHandler
	FactureHandler   *handlers.FactureHandler
	ExportHandler    *handlers.ExportHandler
	SettingsHandler  *handlers.SettingsHandler
	DashboardHandler *handlers.DashboardHandler
	QuotaHandler     *handlers.QuotaHandler

	ClientService  *services.ClientService
	DevisService   *services.DevisService
	FactureService *services.FactureService
	ExportService  *services.ExportService
}

// NewRouterConfig builds the production wiring: database-backed subscription
// resolution, live counters per resource (the facture counter ignores
// soft-deleted rows through the default gorm scope), maroto rendering and
// the configured mail sender.
func NewRouterConfig(db *gorm.DB, cfg *config.Config) *RouterConfig {
	gate := entitlement.NewGate(policy.NewDBSubscriptionResolver(db))
	gate.Register(entitlement.ResourceClients, cfg.Policy.FreeClientLimit, countFor(db, &models.Client{}))
	gate.Register(entitlement.ResourceDevis, cfg.Policy.FreeDevisLimit, countFor(db, &models.Devis{}))
	gate.Register(entitlement.ResourceFactures, cfg.Policy.FreeFactureLimit, countFor(db, &models.Facture{}))

	sender := mail.NewSender(cfg.Mail)
	rates := cfg.Policy.AllowedVATRates

	clientSvc := services.NewClientService(db, gate)
	devisSvc := services.NewDevisService(db, gate, rates, pdf.Devis, sender)
	factureSvc := services.NewFactureService(db, gate, rates)
	exportSvc := services.NewExportService(db, devisSvc, factureSvc)

	return &RouterConfig{
		Gate: gate,

		AuthHandler:      handlers.NewAuthHandler(db, cfg.Policy.TrialDays),
		ClientHandler:    handlers.NewClientHandler(clientSvc),
		DevisHandler:     handlers.NewDevisHandler(db, devisSvc, factureSvc, pdf.Devis),
		FactureHandler:   handlers.NewFactureHandler(db, factureSvc, pdf.Facture),
		ExportHandler:    handlers.NewExportHandler(exportSvc),
		SettingsHandler:  handlers.NewSettingsHandler(db),
		DashboardHandler: handlers.NewDashboardHandler(db, factureSvc, gate),
		QuotaHandler:     handlers.NewQuotaHandler(gate),

		ClientService:  clientSvc,
		DevisService:   devisSvc,
		FactureService: factureSvc,
		ExportService:  exportSvc,
	}
}

// countFor builds a per-user row counter for one model.
func countFor(db *gorm.DB, model any) entitlement.CounterFunc {
	return func(ctx context.Context, userID uint) (int64, error) {
		var n int64
		err := db.WithContext(ctx).Model(model).Where("user_id = ?", userID).Count(&n).Error
		return n, err
	}
}

// withLanguage resolves the request language from Accept-Language so error
// messages come back translated.
func withLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

// New constructs the root http.Handler with all routes and middleware.
func New(db *gorm.DB, cfg *config.Config) http.Handler {
	rc := NewRouterConfig(db, cfg)
	return rc.Handler(db)
}

// Handler registers all routes on a fresh mux and applies the session and
// language middleware. Everything except signup, login and the health checks
// requires an authenticated session.
func (rc *RouterConfig) Handler(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// Sessions of deleted accounts are cleared and rejected.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /signup", rc.AuthHandler.Signup)
	mux.HandleFunc("POST /login", rc.AuthHandler.Login)
	mux.HandleFunc("POST /logout", rc.AuthHandler.Logout)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	mux.Handle("GET /parametres", protected(rc.SettingsHandler.Get))
	mux.Handle("PUT /parametres", protected(rc.SettingsHandler.Update))

	mux.Handle("GET /clients", protected(rc.ClientHandler.List))
	mux.Handle("POST /clients", protected(rc.ClientHandler.Create))
	mux.Handle("GET /clients/{id}", protected(rc.ClientHandler.Get))
	mux.Handle("PUT /clients/{id}", protected(rc.ClientHandler.Update))
	mux.Handle("DELETE /clients/{id}", protected(rc.ClientHandler.Delete))

	mux.Handle("GET /devis", protected(rc.DevisHandler.List))
	mux.Handle("POST /devis", protected(rc.DevisHandler.Create))
	mux.Handle("GET /devis/{id}", protected(rc.DevisHandler.Get))
	mux.Handle("PUT /devis/{id}", protected(rc.DevisHandler.Update))
	mux.Handle("DELETE /devis/{id}", protected(rc.DevisHandler.Delete))
	mux.Handle("POST /devis/{id}/envoyer", protected(rc.DevisHandler.Send))
	mux.Handle("POST /devis/{id}/facturer", protected(rc.DevisHandler.Convert))
	mux.Handle("GET /devis/{id}/pdf", protected(rc.DevisHandler.PDF))

	mux.Handle("GET /factures", protected(rc.FactureHandler.List))
	mux.Handle("POST /factures", protected(rc.FactureHandler.Create))
	mux.Handle("GET /factures/{id}", protected(rc.FactureHandler.Get))
	mux.Handle("PUT /factures/{id}", protected(rc.FactureHandler.Update))
	mux.Handle("DELETE /factures/{id}", protected(rc.FactureHandler.Delete))
	mux.Handle("POST /factures/{id}/payer", protected(rc.FactureHandler.MarkPaid))
	mux.Handle("GET /factures/{id}/pdf", protected(rc.FactureHandler.PDF))

	mux.Handle("GET /export/devis.csv", protected(rc.ExportHandler.Devis))
	mux.Handle("GET /export/factures.csv", protected(rc.ExportHandler.Factures))

	mux.Handle("GET /tableau-de-bord", protected(rc.DashboardHandler.Show))
	mux.Handle("GET /quota/{resource}", protected(rc.QuotaHandler.Check))

	return withLanguage(auth.Middleware(mux))
}
