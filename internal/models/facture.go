package models

import (
	"time"

	"gorm.io/gorm"
)

// FactureStatus represents the lifecycle state of a facture.
// pending → paid; paid is terminal.
type FactureStatus string

const (
	FactureStatusPending FactureStatus = "pending"
	FactureStatusPaid    FactureStatus = "paid"
)

// PaymentMethod is how a facture was settled.
type PaymentMethod string

const (
	PaymentVirement PaymentMethod = "virement"
	PaymentCheque   PaymentMethod = "cheque"
	PaymentEspeces  PaymentMethod = "especes"
	PaymentCB       PaymentMethod = "cb"
	PaymentAutre    PaymentMethod = "autre"
)

// PaymentMethods lists the accepted values, for input validation.
var PaymentMethods = []PaymentMethod{
	PaymentVirement, PaymentCheque, PaymentEspeces, PaymentCB, PaymentAutre,
}

// Facture represents an issued invoice. Deletion is a soft delete: the row is
// kept for audit and only hidden from listings, counts and aggregates.
// Implements the Ownable interface for ownership-based authorization.
type Facture struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this facture (for multi-tenant isolation)
	UserID uint `gorm:"not null;uniqueIndex:idx_facture_user_number" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// DevisID links back to the devis this facture was converted from, when any.
	DevisID *uint  `gorm:"index" json:"devis_id,omitempty"`
	Devis   *Devis `gorm:"foreignKey:DevisID" json:"-"`

	// Sequential number, e.g. FAC-2025-001. Unique per user; soft-deleted
	// rows keep their slot so an issued number is never reused.
	Number string `gorm:"size:50;not null;uniqueIndex:idx_facture_user_number" json:"number"`

	Status FactureStatus `gorm:"size:20;not null;default:'pending'" json:"status"`

	Date          time.Time      `gorm:"not null" json:"date"`
	PaymentDate   *time.Time     `json:"payment_date,omitempty"`
	PaymentMethod *PaymentMethod `gorm:"size:20" json:"payment_method,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	Items []FactureItem `gorm:"foreignKey:FactureID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (f *Facture) GetUserID() uint {
	return f.UserID
}

// CanEdit reports whether the facture may still be modified or deleted.
// Once paid, the facture is frozen.
func (f *Facture) CanEdit() bool {
	return f.Status != FactureStatusPaid
}

// MarkPaid transitions pending → paid, recording the payment date and
// optional method. One-way: there is no mark-as-unpaid.
func (f *Facture) MarkPaid(date time.Time, method *PaymentMethod) error {
	if f.Status == FactureStatusPaid {
		return ErrFacturePaid
	}
	f.Status = FactureStatusPaid
	f.PaymentDate = &date
	f.PaymentMethod = method
	return nil
}

// FactureItem is one ordered line of a facture. Unlike devis lines, each
// carries its own VAT rate, so one facture can mix statutory rates.
type FactureItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FactureID uint     `gorm:"index;not null" json:"facture_id"`
	Facture   *Facture `gorm:"foreignKey:FactureID" json:"-"`

	Designation string  `gorm:"size:500;not null" json:"designation"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null" json:"quantity"`

	// Unit price in integer cents; currency amounts are never stored as floats.
	UnitPrice int64 `gorm:"not null" json:"unit_price"`

	// TVARate is the line's VAT rate in centi-percent (2000 = 20.00%).
	TVARate int64 `gorm:"not null" json:"tva_rate"`

	// Position is the zero-based display/print order.
	Position int `gorm:"not null;default:0" json:"position"`
}

// RatePercent returns the line's VAT rate as a percentage (2000 → 20.0).
func (item *FactureItem) RatePercent() float64 {
	return float64(item.TVARate) / 100
}
