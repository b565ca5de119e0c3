// Package numbering allocates sequential, year-scoped document numbers such
// as DEV-2025-001 and FAC-2025-012.
//
// Numbers are backed by a dedicated counter row per (user, document type,
// year) rather than a scan of existing documents, so two concurrent creations
// cannot allocate the same number: the increment is a single UPDATE that
// takes the row lock for the remainder of the caller's transaction, and the
// first-of-scope insert is serialized by the counter's unique index.
package numbering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
)

// DocType selects the number prefix.
type DocType string

const (
	DocTypeDevis   DocType = "devis"
	DocTypeFacture DocType = "facture"
)

// Prefix returns the document prefix ("DEV" or "FAC").
func (t DocType) Prefix() string {
	if t == DocTypeFacture {
		return "FAC"
	}
	return "DEV"
}

// Format renders a document number: prefix, year, and the counter value
// zero-padded to at least three digits (1000 stays "1000").
func Format(t DocType, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%03d", t.Prefix(), year, n)
}

// Next allocates the next number for the given user, document type and year.
// It must be called inside the transaction that creates the document, so a
// rolled-back creation does not burn a number ahead of a committed one.
func Next(tx *gorm.DB, userID uint, docType DocType, year int) (string, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? AND doc_type = ? AND year = ?", userID, string(docType), year)
	}

	// Two attempts: the second covers losing the insert race for a fresh scope.
	for attempt := 0; attempt < 2; attempt++ {
		res := scope(tx.Model(&models.NumberSequence{})).
			UpdateColumn("last_value", gorm.Expr("last_value + 1"))
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected > 0 {
			var seq models.NumberSequence
			if err := scope(tx).First(&seq).Error; err != nil {
				return "", err
			}
			return Format(docType, year, seq.LastValue), nil
		}

		// First allocation for this scope: seed from any pre-existing documents
		// so legacy data keeps its sequence, then insert the counter row.
		start, err := seed(tx, userID, docType, year)
		if err != nil {
			return "", err
		}
		seq := models.NumberSequence{
			UserID:    userID,
			DocType:   string(docType),
			Year:      year,
			LastValue: start + 1,
		}
		if err := tx.Create(&seq).Error; err == nil {
			return Format(docType, year, seq.LastValue), nil
		}
		// Unique-index conflict: another transaction created the row first.
		// Loop back to the UPDATE path.
	}
	return "", errors.New("numbering: could not allocate sequence")
}

// seed returns the numeric suffix of the greatest existing number for the
// scope, or 0 when none exists. The zero padding makes a plain string sort
// safe up to 999; wider numbers sort after padded ones lexicographically
// only when compared by length first, so both orderings are applied.
func seed(tx *gorm.DB, userID uint, docType DocType, year int) (int64, error) {
	prefix := fmt.Sprintf("%s-%d-", docType.Prefix(), year)

	var numbers []string
	var err error
	switch docType {
	case DocTypeFacture:
		// Unscoped: a soft-deleted facture still owns its number.
		err = tx.Unscoped().Model(&models.Facture{}).
			Where("user_id = ? AND number LIKE ?", userID, prefix+"%").
			Order("length(number) DESC, number DESC").
			Limit(1).
			Pluck("number", &numbers).Error
	default:
		err = tx.Model(&models.Devis{}).
			Where("user_id = ? AND number LIKE ?", userID, prefix+"%").
			Order("length(number) DESC, number DESC").
			Limit(1).
			Pluck("number", &numbers).Error
	}
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	suffix := strings.TrimPrefix(numbers[0], prefix)
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, nil // malformed legacy number, restart the scope at 1
	}
	return n, nil
}
