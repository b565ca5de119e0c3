package handlers

import (
	"net/http"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/entitlement"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/services"
	"gorm.io/gorm"
)

// DashboardHandler aggregates the numbers shown on the landing screen.
type DashboardHandler struct {
	db       *gorm.DB
	factures *services.FactureService
	gate     *entitlement.Gate
}

func NewDashboardHandler(db *gorm.DB, factures *services.FactureService, gate *entitlement.Gate) *DashboardHandler {
	return &DashboardHandler{db: db, factures: factures, gate: gate}
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	ctx := r.Context()

	counts := map[string]int64{}
	type countQuery struct {
		name  string
		model any
		extra func(*gorm.DB) *gorm.DB
	}
	queries := []countQuery{
		{"clients", &models.Client{}, nil},
		{"devis", &models.Devis{}, nil},
		{"factures", &models.Facture{}, nil},
		{"devis_en_attente", &models.Devis{}, func(q *gorm.DB) *gorm.DB {
			return q.Where("status IN ?", []models.DevisStatus{models.DevisStatusDraft, models.DevisStatusSent})
		}},
		{"factures_impayees", &models.Facture{}, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", models.FactureStatusPending)
		}},
	}
	for _, cq := range queries {
		q := h.db.WithContext(ctx).Model(cq.model).Where("user_id = ?", userID)
		if cq.extra != nil {
			q = cq.extra(q)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			writeServiceError(w, r, err)
			return
		}
		counts[cq.name] = n
	}

	revenue, err := h.factures.Revenue(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	quotas := map[entitlement.Resource]entitlement.Decision{}
	for _, res := range []entitlement.Resource{entitlement.ResourceClients, entitlement.ResourceDevis, entitlement.ResourceFactures} {
		decision, err := h.gate.CanCreate(ctx, userID, res)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		quotas[res] = decision
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"counts":           counts,
		"chiffre_affaires": revenue,
		"quotas":           quotas,
	})
}
