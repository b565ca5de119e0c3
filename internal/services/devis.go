package services

import (
	"context"
	"errors"
	"fmt"
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

// DevisRenderer produces the printable document attached to outbound mail.
type DevisRenderer func(devis *models.Devis, client *models.Client, emitter *models.User) ([]byte, error)

// DevisMailer delivers a rendered devis to the client.
type DevisMailer interface {
	Send(ctx context.Context, to, subject, body string, attachment []byte, filename string) error
}

// DevisService implements the devis lifecycle: creation, edition, delivery,
// conversion into a facture, and deletion. Status guards live on the model;
// the service wires them to storage, numbering and the entitlement gate.
type DevisService struct {
	db     *gorm.DB
	gate   *entitlement.Gate
	rates  []float64 // VAT whitelist, from config
	render DevisRenderer
	mailer DevisMailer
	now    func() time.Time
}

func NewDevisService(db *gorm.DB, gate *entitlement.Gate, rates []float64, render DevisRenderer, mailer DevisMailer) *DevisService {
	return &DevisService{db: db, gate: gate, rates: rates, render: render, mailer: mailer, now: time.Now}
}

// DevisInput is the submitted form for create and update. Items replace the
// whole existing line set; display order follows array position.
type DevisInput struct {
	ClientID uint        `json:"client_id"`
	TVARate  float64     `json:"tva_rate"`
	Date     time.Time   `json:"date"`
	Notes    string      `json:"notes"`
	Items    []ItemInput `json:"items"`
}

func (s *DevisService) validate(ctx context.Context, userID uint, in DevisInput) error {
	v := make(validation.Violations)
	validation.VATRate("tva_rate", in.TVARate, s.rates, v)
	validateItems(in.Items, s.rates, false, v)

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

// Create allocates a number and stores a new draft devis. Requires an active
// plan or trial, then the devis count gate.
func (s *DevisService) Create(ctx context.Context, userID uint, in DevisInput) (*models.Devis, error) {
	ok, err := s.gate.PlanOrTrialActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &EntitlementError{Resource: entitlement.ResourceDevis, Code: "subscription_required"}
	}
	decision, err := s.gate.CanCreate(ctx, userID, entitlement.ResourceDevis)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &EntitlementError{Resource: entitlement.ResourceDevis, Decision: decision, Code: "quota_exceeded"}
	}
	if err := s.validate(ctx, userID, in); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	devis := models.Devis{
		UserID:   userID,
		ClientID: in.ClientID,
		Status:   models.DevisStatusDraft,
		TVARate:  in.TVARate,
		Date:     date,
		Notes:    in.Notes,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := numbering.Next(tx, userID, numbering.DocTypeDevis, date.Year())
		if err != nil {
			return err
		}
		devis.Number = number
		if err := tx.Create(&devis).Error; err != nil {
			return err
		}
		items := devisItems(devis.ID, in.Items)
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, devis.ID)
}

// Get loads a devis with its client and ordered items. Records owned by
// another user are reported as missing.
func (s *DevisService) Get(ctx context.Context, userID, id uint) (*models.Devis, error) {
	var devis models.Devis
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&devis, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if policy.Authorize(userID, &devis) != nil {
		return nil, ErrNotFound
	}
	return &devis, nil
}

// List returns the user's devis, newest first.
func (s *DevisService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Devis, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Devis{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Devis
	err := q.Preload("Client").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, total, err
}

// Update replaces the devis fields and its whole item set in one
// transaction. Refused once the devis is invoiced.
func (s *DevisService) Update(ctx context.Context, userID, id uint, in DevisInput) (*models.Devis, error) {
	devis, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !devis.CanEdit() {
		return nil, models.ErrDevisInvoiced
	}
	if err := s.validate(ctx, userID, in); err != nil {
		return nil, err
	}

	devis.ClientID = in.ClientID
	devis.TVARate = in.TVARate
	devis.Notes = in.Notes
	if !in.Date.IsZero() {
		devis.Date = in.Date
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "Client").Save(devis).Error; err != nil {
			return err
		}
		if err := tx.Where("devis_id = ?", devis.ID).Delete(&models.DevisItem{}).Error; err != nil {
			return err
		}
		items := devisItems(devis.ID, in.Items)
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Send renders the devis as PDF and emails it to the client. A successful
// delivery moves a draft to sent; re-sending is idempotent on status.
func (s *DevisService) Send(ctx context.Context, userID, id uint) error {
	devis, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	var emitter models.User
	if err := s.db.WithContext(ctx).First(&emitter, userID).Error; err != nil {
		return err
	}
	doc, err := s.render(devis, devis.Client, &emitter)
	if err != nil {
		return err
	}
	subject := "Devis " + devis.Number
	body := "Veuillez trouver ci-joint le devis " + devis.Number + "."
	if err := s.mailer.Send(ctx, devis.Client.Email, subject, body, doc, devis.Number+".pdf"); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	devis.MarkSent()
	return s.db.WithContext(ctx).Model(devis).Update("status", devis.Status).Error
}

// ConvertToFacture turns a devis into a facture in one transaction: the
// facture is created with the devis lines (the shared rate becomes each
// line's own rate), numbered, and the devis is frozen as invoiced with the
// back-reference set. Conversion passes the facture count gate and fails on
// an already-converted devis.
func (s *DevisService) ConvertToFacture(ctx context.Context, userID, id uint) (*models.Facture, error) {
	devis, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if devis.Status == models.DevisStatusInvoiced {
		return nil, models.ErrDevisInvoiced
	}
	decision, err := s.gate.CanCreate(ctx, userID, entitlement.ResourceFactures)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &EntitlementError{Resource: entitlement.ResourceFactures, Decision: decision, Code: "quota_exceeded"}
	}

	date := s.now()
	facture := models.Facture{
		UserID:   userID,
		ClientID: devis.ClientID,
		DevisID:  &devis.ID,
		Status:   models.FactureStatusPending,
		Date:     date,
	}
	rate := int64(math.Round(devis.TVARate * 100))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := numbering.Next(tx, userID, numbering.DocTypeFacture, date.Year())
		if err != nil {
			return err
		}
		facture.Number = number
		if err := tx.Create(&facture).Error; err != nil {
			return err
		}
		items := make([]models.FactureItem, len(devis.Items))
		for i, item := range devis.Items {
			items[i] = models.FactureItem{
				FactureID:   facture.ID,
				Designation: item.Designation,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				TVARate:     rate,
				Position:    item.Position,
			}
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		if err := devis.MarkInvoiced(facture.ID); err != nil {
			return err
		}
		return tx.Model(devis).Updates(map[string]any{
			"status":     devis.Status,
			"facture_id": devis.FactureID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &facture, nil
}

// Delete removes a devis and its items for good. Refused once invoiced.
func (s *DevisService) Delete(ctx context.Context, userID, id uint) error {
	devis, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if !devis.CanEdit() {
		return models.ErrDevisInvoiced
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("devis_id = ?", devis.ID).Delete(&models.DevisItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Devis{}, devis.ID).Error
	})
}

// Totals computes the devis totals with the shared-rate policy.
func (s *DevisService) Totals(devis *models.Devis) money.Totals {
	lines := make([]money.Line, len(devis.Items))
	for i, item := range devis.Items {
		lines[i] = money.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	return money.ComputeTotals(lines, devis.TVARate)
}

// devisItems maps inputs to rows, deriving Position from array order.
func devisItems(devisID uint, items []ItemInput) []models.DevisItem {
	out := make([]models.DevisItem, len(items))
	for i, item := range items {
		out[i] = models.DevisItem{
			DevisID:     devisID,
			Designation: item.Designation,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Position:    i,
		}
	}
	return out
}
