// Package validation provides a small violations map and the field
// validators shared by the devis and facture input paths.
package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeInt(field string, val int64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// VATRate checks a percentage against the statutory whitelist. Zero is
// deliberately not accepted on input even though historical records may
// carry it. Both devis (shared rate) and facture (per-line rate) inputs go
// through this single validator so the two paths cannot drift.
func VATRate(field string, ratePercent float64, allowed []float64, v Violations) {
	for _, a := range allowed {
		if ratePercent == a {
			return
		}
	}
	v[field] = "invalid_vat_rate"
}

// OneOfString checks membership in a closed value set (e.g. payment methods).
func OneOfString(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "out_of_range"
}
