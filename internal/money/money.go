// Package money computes HT/TVA/TTC totals for devis and factures.
//
// All currency amounts are integer cents; intermediate arithmetic goes
// through shopspring/decimal so no float ever touches a stored amount.
// Rounding is half away from zero throughout (decimal.Round semantics).
//
// Two entry points exist on purpose and must not be collapsed: devis use one
// shared rate with a single rounding on the aggregate VAT, factures use
// per-line rates with per-line rounding. The two policies can differ by a
// cent and issued documents depend on the one used at issuance time.
package money

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Cents is a currency amount in integer minor units.
type Cents = int64

// Line is a quantity × unit-price pair, as found on a devis.
type Line struct {
	Quantity  float64
	UnitPrice Cents
}

// RatedLine is a facture line: it carries its own VAT rate in centi-percent
// (2000 = 20.00%).
type RatedLine struct {
	Quantity  float64
	UnitPrice Cents
	TVARate   int64
}

// Totals holds shared-rate results.
type Totals struct {
	HT  Cents `json:"ht"`
	TVA Cents `json:"tva"`
	TTC Cents `json:"ttc"`
}

// PerLineTotals holds mixed-rate results. VATByRate maps each distinct
// centi-percent rate present to the summed VAT computed at that rate.
type PerLineTotals struct {
	HT        Cents           `json:"ht"`
	VATByRate map[int64]Cents `json:"vat_by_rate"`
	TTC       Cents           `json:"ttc"`
}

// Rates returns the distinct rates present, ascending, for stable display.
func (t PerLineTotals) Rates() []int64 {
	rates := make([]int64, 0, len(t.VATByRate))
	for rate := range t.VATByRate {
		rates = append(rates, rate)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i] < rates[j] })
	return rates
}

var hundred = decimal.NewFromInt(100)

// LineHT returns round(quantity × unitPrice) in cents.
func LineHT(quantity float64, unitPrice Cents) Cents {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromInt(unitPrice)).
		Round(0).
		IntPart()
}

// ComputeTotals computes totals for a document whose lines all share one VAT
// rate, given in percent. VAT is rounded once on the aggregate, not per line.
func ComputeTotals(items []Line, tvaRatePercent float64) Totals {
	var ht Cents
	for _, item := range items {
		ht += LineHT(item.Quantity, item.UnitPrice)
	}
	tva := decimal.NewFromInt(ht).
		Mul(decimal.NewFromFloat(tvaRatePercent)).
		Div(hundred).
		Round(0).
		IntPart()
	return Totals{HT: ht, TVA: tva, TTC: ht + tva}
}

// ComputeTotalsPerLine computes totals for a document with per-line VAT
// rates. VAT is rounded per line, then accumulated by rate.
func ComputeTotalsPerLine(items []RatedLine) PerLineTotals {
	out := PerLineTotals{VATByRate: make(map[int64]Cents)}
	var vat Cents
	for _, item := range items {
		lineHT := LineHT(item.Quantity, item.UnitPrice)
		lineVAT := decimal.NewFromInt(lineHT).
			Mul(decimal.NewFromInt(item.TVARate)).
			Div(decimal.NewFromInt(10000)).
			Round(0).
			IntPart()
		out.HT += lineHT
		out.VATByRate[item.TVARate] += lineVAT
		vat += lineVAT
	}
	out.TTC = out.HT + vat
	return out
}
