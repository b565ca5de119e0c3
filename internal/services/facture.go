package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/diewo77/go-facture/internal/entitlement"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/money"
	"github.com/diewo77/go-facture/internal/numbering"
	"github.com/diewo77/go-facture/internal/policy"
	"github.com/diewo77/go-facture/validation"
	"gorm.io/gorm"
)

// FactureService implements the facture lifecycle: creation, edition,
// payment marking, soft deletion with devis reversal, and aggregates.
type FactureService struct {
	db    *gorm.DB
	gate  *entitlement.Gate
	rates []float64 // VAT whitelist, from config
	now   func() time.Time
}

func NewFactureService(db *gorm.DB, gate *entitlement.Gate, rates []float64) *FactureService {
	return &FactureService{db: db, gate: gate, rates: rates, now: time.Now}
}

// FactureInput is the submitted form for create and update. Each item
// carries its own VAT rate in percent; the whole line set is replaced on
// every save.
type FactureInput struct {
	ClientID uint        `json:"client_id"`
	Date     time.Time   `json:"date"`
	Notes    string      `json:"notes"`
	Items    []ItemInput `json:"items"`
}

func (s *FactureService) validate(ctx context.Context, userID uint, in FactureInput) error {
	v := make(validation.Violations)
	validateItems(in.Items, s.rates, true, v)

	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, in.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			v["client_id"] = "not_found"
		} else {
			return err
		}
	} else if policy.Authorize(userID, &client) != nil {
		v["client_id"] = "not_found"
	}

	if !v.Empty() {
		return &ValidationError{Violations: v}
	}
	return nil
}

// Create allocates a number and stores a new pending facture, gated by the
// facture quota.
func (s *FactureService) Create(ctx context.Context, userID uint, in FactureInput) (*models.Facture, error) {
	decision, err := s.gate.CanCreate(ctx, userID, entitlement.ResourceFactures)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &EntitlementError{Resource: entitlement.ResourceFactures, Decision: decision, Code: "quota_exceeded"}
	}
	if err := s.validate(ctx, userID, in); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	facture := models.Facture{
		UserID:   userID,
		ClientID: in.ClientID,
		Status:   models.FactureStatusPending,
		Date:     date,
		Notes:    in.Notes,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := numbering.Next(tx, userID, numbering.DocTypeFacture, date.Year())
		if err != nil {
			return err
		}
		facture.Number = number
		if err := tx.Create(&facture).Error; err != nil {
			return err
		}
		items := factureItems(facture.ID, in.Items)
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, facture.ID)
}

// Get loads a facture with its client and ordered items. Soft-deleted
// factures stay loadable by id for audit; other users' records are missing.
func (s *FactureService) Get(ctx context.Context, userID, id uint) (*models.Facture, error) {
	var facture models.Facture
	err := s.db.WithContext(ctx).Unscoped().
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&facture, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if policy.Authorize(userID, &facture) != nil {
		return nil, ErrNotFound
	}
	return &facture, nil
}

// List returns the user's factures, newest first, excluding soft-deleted.
func (s *FactureService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Facture, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Facture{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Facture
	err := q.Preload("Client").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, total, err
}

// Update replaces the facture fields and its whole item set in one
// transaction. Refused once paid or soft-deleted.
func (s *FactureService) Update(ctx context.Context, userID, id uint, in FactureInput) (*models.Facture, error) {
	facture, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if facture.DeletedAt.Valid {
		return nil, ErrNotFound
	}
	if !facture.CanEdit() {
		return nil, models.ErrFacturePaid
	}
	if err := s.validate(ctx, userID, in); err != nil {
		return nil, err
	}

	facture.ClientID = in.ClientID
	facture.Notes = in.Notes
	if !in.Date.IsZero() {
		facture.Date = in.Date
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "Client").Save(facture).Error; err != nil {
			return err
		}
		if err := tx.Where("facture_id = ?", facture.ID).Delete(&models.FactureItem{}).Error; err != nil {
			return err
		}
		items := factureItems(facture.ID, in.Items)
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// MarkPaid transitions pending → paid. The payment date defaults to now;
// the method is optional but validated against the closed set.
func (s *FactureService) MarkPaid(ctx context.Context, userID, id uint, paymentDate *time.Time, method string) (*models.Facture, error) {
	facture, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if facture.DeletedAt.Valid {
		return nil, ErrNotFound
	}

	var pm *models.PaymentMethod
	if method != "" {
		allowed := make([]string, len(models.PaymentMethods))
		for i, m := range models.PaymentMethods {
			allowed[i] = string(m)
		}
		v := make(validation.Violations)
		validation.OneOfString("payment_method", method, allowed, v)
		if !v.Empty() {
			v["payment_method"] = "invalid_payment_method"
			return nil, &ValidationError{Violations: v}
		}
		m := models.PaymentMethod(method)
		pm = &m
	}

	date := s.now()
	if paymentDate != nil {
		date = *paymentDate
	}
	if err := facture.MarkPaid(date, pm); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(facture).Updates(map[string]any{
		"status":         facture.Status,
		"payment_date":   facture.PaymentDate,
		"payment_method": facture.PaymentMethod,
	}).Error
	if err != nil {
		return nil, err
	}
	return facture, nil
}

// Delete soft-deletes a facture. Refused once paid. When the facture came
// from a devis conversion, the same transaction reverts the devis to sent
// and clears its back-reference, restoring it to an editable state.
func (s *FactureService) Delete(ctx context.Context, userID, id uint) error {
	facture, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if facture.DeletedAt.Valid {
		return ErrNotFound
	}
	if !facture.CanEdit() {
		return models.ErrFacturePaid
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Facture{}, facture.ID).Error; err != nil {
			return err
		}
		if facture.DevisID == nil {
			return nil
		}
		var devis models.Devis
		if err := tx.First(&devis, *facture.DevisID).Error; err != nil {
			return err
		}
		if err := devis.RevertToSent(); err != nil {
			return err
		}
		return tx.Model(&devis).Updates(map[string]any{
			"status":     devis.Status,
			"facture_id": nil,
		}).Error
	})
}

// Totals computes the facture totals with the per-line-rate policy.
func (s *FactureService) Totals(facture *models.Facture) money.PerLineTotals {
	lines := make([]money.RatedLine, len(facture.Items))
	for i, item := range facture.Items {
		lines[i] = money.RatedLine{Quantity: item.Quantity, UnitPrice: item.UnitPrice, TVARate: item.TVARate}
	}
	return money.ComputeTotalsPerLine(lines)
}

// Revenue sums the TTC of the user's paid, non-deleted factures.
func (s *FactureService) Revenue(ctx context.Context, userID uint) (money.Cents, error) {
	var factures []models.Facture
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.FactureStatusPaid).
		Preload("Items").
		Find(&factures).Error
	if err != nil {
		return 0, err
	}
	var total money.Cents
	for i := range factures {
		total += s.Totals(&factures[i]).TTC
	}
	return total, nil
}

// factureItems maps inputs to rows, deriving Position from array order and
// converting the percent rate to centi-percent storage.
func factureItems(factureID uint, items []ItemInput) []models.FactureItem {
	out := make([]models.FactureItem, len(items))
	for i, item := range items {
		out[i] = models.FactureItem{
			FactureID:   factureID,
			Designation: item.Designation,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TVARate:     int64(math.Round(item.TVARate * 100)),
			Position:    i,
		}
	}
	return out
}
