package services

import (
	"context"
	"errors"

	"github.com/diewo77/go-facture/internal/entitlement"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/internal/policy"
	"github.com/diewo77/go-facture/validation"
	"gorm.io/gorm"
)

// ClientService implements the client book: CRUD under ownership, with
// creation gated by the client quota.
type ClientService struct {
	db   *gorm.DB
	gate *entitlement.Gate
}

func NewClientService(db *gorm.DB, gate *entitlement.Gate) *ClientService {
	return &ClientService{db: db, gate: gate}
}

type ClientInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Complement string `json:"complement"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Notes      string `json:"notes"`
}

func (in ClientInput) validate() error {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	if !v.Empty() {
		return &ValidationError{Violations: v}
	}
	return nil
}

func (s *ClientService) Create(ctx context.Context, userID uint, in ClientInput) (*models.Client, error) {
	decision, err := s.gate.CanCreate(ctx, userID, entitlement.ResourceClients)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &EntitlementError{Resource: entitlement.ResourceClients, Decision: decision, Code: "quota_exceeded"}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	client := models.Client{
		UserID:     userID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
		Complement: in.Complement,
		PostalCode: in.PostalCode,
		City:       in.City,
		Notes:      in.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *ClientService) Get(ctx context.Context, userID, id uint) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if policy.Authorize(userID, &client) != nil {
		return nil, ErrNotFound
	}
	return &client, nil
}

func (s *ClientService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Client, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Client
	err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (s *ClientService) Update(ctx context.Context, userID, id uint, in ClientInput) (*models.Client, error) {
	client, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	client.Name = in.Name
	client.Email = in.Email
	client.Phone = in.Phone
	client.Address = in.Address
	client.Complement = in.Complement
	client.PostalCode = in.PostalCode
	client.City = in.City
	client.Notes = in.Notes
	if err := s.db.WithContext(ctx).Save(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes the client and everything hanging off it. Documents are
// erased for real, soft-deleted factures included, so the cascade cannot
// leave orphan items behind.
func (s *ClientService) Delete(ctx context.Context, userID, id uint) error {
	client, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var devisIDs []uint
		if err := tx.Model(&models.Devis{}).Where("client_id = ?", client.ID).Pluck("id", &devisIDs).Error; err != nil {
			return err
		}
		if len(devisIDs) > 0 {
			if err := tx.Where("devis_id IN ?", devisIDs).Delete(&models.DevisItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", devisIDs).Delete(&models.Devis{}).Error; err != nil {
				return err
			}
		}
		var factureIDs []uint
		if err := tx.Unscoped().Model(&models.Facture{}).Where("client_id = ?", client.ID).Pluck("id", &factureIDs).Error; err != nil {
			return err
		}
		if len(factureIDs) > 0 {
			if err := tx.Where("facture_id IN ?", factureIDs).Delete(&models.FactureItem{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("id IN ?", factureIDs).Delete(&models.Facture{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Client{}, client.ID).Error
	})
}
