package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/services"
	"gorm.io/gorm"
)

type DevisHandler struct {
	db       *gorm.DB
	devis    *services.DevisService
	factures *services.FactureService
	render   services.DevisRenderer
}

func NewDevisHandler(db *gorm.DB, devis *services.DevisService, factures *services.FactureService, render services.DevisRenderer) *DevisHandler {
	return &DevisHandler{db: db, devis: devis, factures: factures, render: render}
}

// devisPayload decorates a devis with its computed totals.
func (h *DevisHandler) devisPayload(devis *models.Devis) map[string]any {
	return map[string]any{
		"devis":  devis,
		"totals": h.devis.Totals(devis),
	}
}

func (h *DevisHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	limit, offset := pagination(r)
	list, total, err := h.devis.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "limit": limit, "offset": offset})
}

func (h *DevisHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var in services.DevisInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	devis, err := h.devis.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.devisPayload(devis))
}

func (h *DevisHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	devis, err := h.devis.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.devisPayload(devis))
}

func (h *DevisHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.DevisInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	devis, err := h.devis.Update(r.Context(), userID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.devisPayload(devis))
}

// Send emails the rendered devis to the client and marks it sent.
func (h *DevisHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.devis.Send(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	devis, err := h.devis.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.devisPayload(devis))
}

// Convert turns the devis into a facture and answers with the same decorated
// shape as the facture endpoints.
func (h *DevisHandler) Convert(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	facture, err := h.devis.ConvertToFacture(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	facture, err = h.factures.Get(r.Context(), userID, facture.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"facture": facture,
		"totals":  h.factures.Totals(facture),
	})
}

// PDF streams the rendered document for download.
func (h *DevisHandler) PDF(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	devis, err := h.devis.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var emitter models.User
	if err := h.db.WithContext(r.Context()).First(&emitter, userID).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	doc, err := h.render(devis, devis.Client, &emitter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", devis.Number+".pdf"))
	w.Write(doc)
}

func (h *DevisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.devis.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
