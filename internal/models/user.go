package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an authenticated emitter: the tradesperson who owns
// clients, devis and factures and whose business details appear on documents.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	Name     string `gorm:"size:255" json:"name,omitempty"`

	// Business details printed on documents
	CompanyName   string `gorm:"size:255" json:"company_name,omitempty"`
	SIRET         string `gorm:"size:14" json:"siret,omitempty"`
	Address       string `gorm:"size:500" json:"address,omitempty"`
	PostalCode    string `gorm:"size:20" json:"postal_code,omitempty"`
	City          string `gorm:"size:100" json:"city,omitempty"`
	Phone         string `gorm:"size:50" json:"phone,omitempty"`
	BusinessEmail string `gorm:"size:255" json:"business_email,omitempty"` // distinct from login email
	LogoURL       string `gorm:"size:500" json:"logo_url,omitempty"`

	// Subscription state
	PlanID            string     `gorm:"size:100" json:"plan_id,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	TrialEndsAt       *time.Time `json:"trial_ends_at,omitempty"`
}

// SubscriptionActive reports whether the user has a paid plan whose current
// period has not ended. Cancellation only takes effect at period end, so a
// cancelled-but-running subscription still counts as active.
func (u *User) SubscriptionActive(now time.Time) bool {
	return u.PlanID != "" && u.CurrentPeriodEnd != nil && u.CurrentPeriodEnd.After(now)
}

// TrialActive reports whether the user's free trial is still running.
func (u *User) TrialActive(now time.Time) bool {
	return u.TrialEndsAt != nil && u.TrialEndsAt.After(now)
}

// SenderEmail returns the address documents should be sent from: the
// business email when set, the login email otherwise.
func (u *User) SenderEmail() string {
	if u.BusinessEmail != "" {
		return u.BusinessEmail
	}
	return u.Email
}

// FullAddress returns the formatted business address.
func (u *User) FullAddress() string {
	addr := u.Address
	if u.PostalCode != "" || u.City != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += u.PostalCode
		if u.PostalCode != "" && u.City != "" {
			addr += " "
		}
		addr += u.City
	}
	return addr
}
