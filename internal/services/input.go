package services

import (
	"fmt"

	"github.com/diewo77/go-facture/validation"
)

// ItemInput is one line of a devis or facture as submitted by the user.
// TVARate (percent) is only meaningful on facture lines; devis carry a
// single shared rate on the document instead.
type ItemInput struct {
	Designation string  `json:"designation"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"` // cents
	TVARate     float64 `json:"tva_rate,omitempty"`
}

// validateItems runs the line-level rules shared by both document types.
// withRates additionally checks each line's VAT rate against the whitelist
// (the facture path); the devis path validates its shared rate separately
// through the same validation.VATRate rule.
func validateItems(items []ItemInput, allowedRates []float64, withRates bool, v validation.Violations) {
	if len(items) == 0 {
		v["items"] = "required"
		return
	}
	for i, item := range items {
		prefix := fmt.Sprintf("items.%d.", i)
		validation.Required(prefix+"designation", item.Designation, v)
		validation.PositiveFloat(prefix+"quantity", item.Quantity, v)
		validation.NonNegativeInt(prefix+"unit_price", item.UnitPrice, v)
		if withRates {
			validation.VATRate(prefix+"tva_rate", item.TVARate, allowedRates, v)
		}
	}
}
