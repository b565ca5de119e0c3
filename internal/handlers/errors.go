package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/i18n"
	"github.com/diewo77/go-facture/internal/services"
)

// writeServiceError maps the service error taxonomy to HTTP statuses with a
// translated message: missing or foreign records are 404, bad input 422,
// denied gates 403, status-guard violations 409, failed outbound delivery
// 502, everything else 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.LangFromContext(r.Context())

	if errors.Is(err, services.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", i18n.T(lang, "not_found"), nil)
		return
	}
	if errors.Is(err, services.ErrDeliveryFailed) {
		httpx.JSONError(w, http.StatusBadGateway, "delivery_failed", i18n.T(lang, "delivery_failed"), nil)
		return
	}
	if verr, ok := services.AsValidationError(err); ok {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed",
			i18n.T(lang, "validation_failed"), verr.Violations)
		return
	}
	if eerr, ok := services.AsEntitlementError(err); ok {
		httpx.JSONError(w, http.StatusForbidden, eerr.Code, i18n.T(lang, eerr.Code), eerr.Decision)
		return
	}
	if serr, ok := services.AsStateError(err); ok {
		httpx.JSONError(w, http.StatusConflict, serr.Code, i18n.T(lang, serr.Code), nil)
		return
	}

	log.Printf("internal error on %s %s: %v", r.Method, r.URL.Path, err)
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "internal_error"), nil)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, code string) {
	lang := i18n.LangFromContext(r.Context())
	httpx.JSONError(w, http.StatusBadRequest, code, i18n.T(lang, code), nil)
}
