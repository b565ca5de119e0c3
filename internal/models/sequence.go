package models

import "time"

// NumberSequence is the per-(user, document type, year) counter backing
// document numbering. Incremented atomically inside the creating transaction;
// the composite unique index serializes first-of-year inserts.
type NumberSequence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint   `gorm:"not null;uniqueIndex:idx_number_sequence_scope" json:"user_id"`
	DocType string `gorm:"size:20;not null;uniqueIndex:idx_number_sequence_scope" json:"doc_type"`
	Year    int    `gorm:"not null;uniqueIndex:idx_number_sequence_scope" json:"year"`

	LastValue int64 `gorm:"not null" json:"last_value"`
}
