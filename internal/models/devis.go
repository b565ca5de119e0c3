package models

import (
	"time"
)

// DevisStatus represents the lifecycle state of a devis.
// Valid transitions: draft → sent → invoiced. Invoiced is terminal except for
// the reversal performed when the resulting facture is deleted.
type DevisStatus string

const (
	DevisStatusDraft    DevisStatus = "draft"
	DevisStatusSent     DevisStatus = "sent"
	DevisStatusInvoiced DevisStatus = "invoiced"
)

// Devis represents a quote sent to a client, convertible into a facture.
// Implements the Ownable interface for ownership-based authorization.
type Devis struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this devis (for multi-tenant isolation)
	UserID uint `gorm:"not null;uniqueIndex:idx_devis_user_number" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Sequential number, e.g. DEV-2025-001. Unique per user.
	Number string `gorm:"size:50;not null;uniqueIndex:idx_devis_user_number" json:"number"`

	Status DevisStatus `gorm:"size:20;not null;default:'draft'" json:"status"`

	// Single VAT rate in percent shared by all lines (e.g. 20, 10, 5.5, 2.1).
	TVARate float64 `gorm:"type:decimal(5,2);not null" json:"tva_rate"`

	Date  time.Time `gorm:"not null" json:"date"`
	Notes string    `gorm:"type:text" json:"notes,omitempty"`

	// FactureID links to the facture this devis was converted into.
	// Set exactly once by MarkInvoiced, cleared only by RevertToSent.
	FactureID *uint `gorm:"index" json:"facture_id,omitempty"`

	Items []DevisItem `gorm:"foreignKey:DevisID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (d *Devis) GetUserID() uint {
	return d.UserID
}

// CanEdit reports whether the devis may still be modified or deleted.
// Once invoiced, the devis and its items are frozen.
func (d *Devis) CanEdit() bool {
	return d.Status != DevisStatusInvoiced
}

// MarkSent records a successful outbound delivery. Only a draft changes
// state; re-sending a sent or invoiced devis is a no-op.
func (d *Devis) MarkSent() {
	if d.Status == DevisStatusDraft {
		d.Status = DevisStatusSent
	}
}

// MarkInvoiced transitions the devis to invoiced and records the facture it
// was converted into. Fails if the devis was already converted.
func (d *Devis) MarkInvoiced(factureID uint) error {
	if d.Status == DevisStatusInvoiced {
		return ErrDevisInvoiced
	}
	d.Status = DevisStatusInvoiced
	d.FactureID = &factureID
	return nil
}

// RevertToSent undoes a conversion after the resulting facture is deleted,
// restoring the devis to an editable, re-convertible state. This is the only
// path out of the invoiced status.
func (d *Devis) RevertToSent() error {
	if d.Status != DevisStatusInvoiced {
		return ErrDevisNotInvoiced
	}
	d.Status = DevisStatusSent
	d.FactureID = nil
	return nil
}

// DevisItem is one ordered line of a devis. Items share the parent's VAT rate
// and are frozen together with it once the devis is invoiced.
type DevisItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DevisID uint   `gorm:"index;not null" json:"devis_id"`
	Devis   *Devis `gorm:"foreignKey:DevisID" json:"-"`

	Designation string  `gorm:"size:500;not null" json:"designation"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null" json:"quantity"`

	// Unit price in integer cents; currency amounts are never stored as floats.
	UnitPrice int64 `gorm:"not null" json:"unit_price"`

	// Position is the zero-based display/print order.
	Position int `gorm:"not null;default:0" json:"position"`
}
