package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/entitlement"
)

// QuotaHandler lets the UI ask "may I create one more X" before showing a
// creation form.
type QuotaHandler struct {
	gate *entitlement.Gate
}

func NewQuotaHandler(gate *entitlement.Gate) *QuotaHandler {
	return &QuotaHandler{gate: gate}
}

func (h *QuotaHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	resource := entitlement.Resource(r.PathValue("resource"))
	decision, err := h.gate.CanCreate(r.Context(), userID, resource)
	if err != nil {
		if errors.Is(err, entitlement.ErrUnknownResource) {
			writeBadRequest(w, r, "not_found")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}
