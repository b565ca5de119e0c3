package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
)

// ExportService writes accounting exports. Amounts come out in euros with
// two decimals, semicolon-free, ready for a French spreadsheet import.
type ExportService struct {
	db       *gorm.DB
	devis    *DevisService
	factures *FactureService
}

func NewExportService(db *gorm.DB, devis *DevisService, factures *FactureService) *ExportService {
	return &ExportService{db: db, devis: devis, factures: factures}
}

func euros(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, abs(cents%100))
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// DevisCSV streams the user's devis in [from, to] as CSV, oldest first.
func (s *ExportService) DevisCSV(ctx context.Context, w io.Writer, userID uint, from, to time.Time) error {
	var list []models.Devis
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Preload("Client").
		Preload("Items").
		Order("date ASC, number ASC").
		Find(&list).Error
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"numero", "date", "client", "statut", "total_ht", "tva", "total_ttc"}); err != nil {
		return err
	}
	for i := range list {
		d := &list[i]
		totals := s.devis.Totals(d)
		record := []string{
			d.Number,
			d.Date.Format("2006-01-02"),
			d.Client.Name,
			string(d.Status),
			euros(int64(totals.HT)),
			euros(int64(totals.TVA)),
			euros(int64(totals.TTC)),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FacturesCSV streams the user's live factures in [from, to] as CSV,
// oldest first, with the payment details when paid.
func (s *ExportService) FacturesCSV(ctx context.Context, w io.Writer, userID uint, from, to time.Time) error {
	var list []models.Facture
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Preload("Client").
		Preload("Items").
		Order("date ASC, number ASC").
		Find(&list).Error
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{"numero", "date", "client", "statut", "total_ht", "tva", "total_ttc", "date_paiement", "mode_paiement"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range list {
		f := &list[i]
		totals := s.factures.Totals(f)
		paymentDate, paymentMethod := "", ""
		if f.PaymentDate != nil {
			paymentDate = f.PaymentDate.Format("2006-01-02")
		}
		if f.PaymentMethod != nil {
			paymentMethod = string(*f.PaymentMethod)
		}
		record := []string{
			f.Number,
			f.Date.Format("2006-01-02"),
			f.Client.Name,
			string(f.Status),
			euros(int64(totals.HT)),
			euros(int64(totals.TTC - totals.HT)),
			euros(int64(totals.TTC)),
			paymentDate,
			paymentMethod,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
