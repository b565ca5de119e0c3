package models

import (
	"time"
)

// Client represents a customer in the invoicing system.
// Implements the Ownable interface for ownership-based authorization.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this client (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name  string `gorm:"size:255;not null" json:"name"`
	Email string `gorm:"size:255" json:"email,omitempty"`
	Phone string `gorm:"size:50" json:"phone,omitempty"`

	// Postal address
	Address    string `gorm:"size:500" json:"address,omitempty"`
	Complement string `gorm:"size:255" json:"complement,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Relations; deleting a client cascades to its documents
	Devis    []Devis   `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
	Factures []Facture `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
}

// GetUserID implements the Ownable interface for authorization.
func (c *Client) GetUserID() uint {
	return c.UserID
}

// FullAddress returns the formatted postal address.
func (c *Client) FullAddress() string {
	addr := c.Address
	if c.Complement != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.Complement
	}
	if c.PostalCode != "" || c.City != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.PostalCode
		if c.PostalCode != "" && c.City != "" {
			addr += " "
		}
		addr += c.City
	}
	return addr
}
