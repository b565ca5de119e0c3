package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/services"
	"gorm.io/gorm"
)

// FactureRenderer produces the printable facture document.
type FactureRenderer func(facture *models.Facture, client *models.Client, emitter *models.User) ([]byte, error)

type FactureHandler struct {
	db       *gorm.DB
	factures *services.FactureService
	render   FactureRenderer
}

func NewFactureHandler(db *gorm.DB, factures *services.FactureService, render FactureRenderer) *FactureHandler {
	return &FactureHandler{db: db, factures: factures, render: render}
}

func (h *FactureHandler) facturePayload(facture *models.Facture) map[string]any {
	return map[string]any{
		"facture": facture,
		"totals":  h.factures.Totals(facture),
	}
}

func (h *FactureHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	limit, offset := pagination(r)
	list, total, err := h.factures.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "limit": limit, "offset": offset})
}

func (h *FactureHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var in services.FactureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	facture, err := h.factures.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.facturePayload(facture))
}

func (h *FactureHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	facture, err := h.factures.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.facturePayload(facture))
}

func (h *FactureHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.FactureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	facture, err := h.factures.Update(r.Context(), userID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.facturePayload(facture))
}

type markPaidInput struct {
	PaymentDate   string `json:"payment_date"` // YYYY-MM-DD, defaults to today
	PaymentMethod string `json:"payment_method"`
}

// MarkPaid settles the facture. An empty body is accepted and means
// "paid today, method unspecified".
func (h *FactureHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in markPaidInput
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeBadRequest(w, r, "invalid_json")
			return
		}
	}
	var when *time.Time
	if in.PaymentDate != "" {
		t, err := time.Parse("2006-01-02", in.PaymentDate)
		if err != nil {
			writeBadRequest(w, r, "invalid_date")
			return
		}
		when = &t
	}
	facture, err := h.factures.MarkPaid(r.Context(), userID, id, when, in.PaymentMethod)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.facturePayload(facture))
}

// PDF streams the rendered document for download. Works on soft-deleted
// factures too, since they remain consultable.
func (h *FactureHandler) PDF(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	facture, err := h.factures.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var emitter models.User
	if err := h.db.WithContext(r.Context()).First(&emitter, userID).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	doc, err := h.render(facture, facture.Client, &emitter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", facture.Number+".pdf"))
	w.Write(doc)
}

func (h *FactureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.factures.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
