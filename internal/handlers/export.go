package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/internal/services"
)

// ExportHandler streams accounting CSV exports over a date range.
// Without from/to parameters the export covers the current year.
type ExportHandler struct {
	export *services.ExportService
	now    func() time.Time
}

func NewExportHandler(export *services.ExportService) *ExportHandler {
	return &ExportHandler{export: export, now: time.Now}
}

func (h *ExportHandler) dateRange(r *http.Request) (from, to time.Time, ok bool) {
	now := h.now()
	from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to = time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, time.UTC)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, false
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, false
		}
		// include the whole "to" day
		to = t.Add(24*time.Hour - time.Second)
	}
	return from, to, true
}

func (h *ExportHandler) Devis(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	from, to, ok := h.dateRange(r)
	if !ok {
		writeBadRequest(w, r, "invalid_date")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="devis.csv"`)
	if err := h.export.DevisCSV(r.Context(), w, userID, from, to); err != nil {
		// headers already sent; nothing better to do than log via the mapper
		writeServiceError(w, r, err)
	}
}

func (h *ExportHandler) Factures(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	from, to, ok := h.dateRange(r)
	if !ok {
		writeBadRequest(w, r, "invalid_date")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="factures.csv"`)
	if err := h.export.FacturesCSV(r.Context(), w, userID, from, to); err != nil {
		writeServiceError(w, r, err)
	}
}
