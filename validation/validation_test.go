package validation

import "testing"

var statutory = []float64{20, 10, 5.5, 2.1}

func TestVATRate(t *testing.T) {
	for _, rate := range statutory {
		v := make(Violations)
		VATRate("tva_rate", rate, statutory, v)
		if !v.Empty() {
			t.Errorf("rate %v should be accepted: %v", rate, v)
		}
	}
	for _, rate := range []float64{0, 19.6, 7, -5.5, 21} {
		v := make(Violations)
		VATRate("tva_rate", rate, statutory, v)
		if v["tva_rate"] != "invalid_vat_rate" {
			t.Errorf("rate %v should be rejected, got %v", rate, v)
		}
	}
}

func TestBasicValidators(t *testing.T) {
	v := make(Violations)
	Required("name", "  ", v)
	PositiveFloat("quantity", 0, v)
	NonNegativeInt("unit_price", -1, v)
	OneOfString("payment_method", "bitcoin", []string{"cb", "cheque"}, v)

	want := Violations{
		"name":           "required",
		"quantity":       "must_be_positive",
		"unit_price":     "must_not_be_negative",
		"payment_method": "out_of_range",
	}
	for field, code := range want {
		if v[field] != code {
			t.Errorf("%s = %q, want %q", field, v[field], code)
		}
	}

	ok := make(Violations)
	Required("name", "Dupont", ok)
	PositiveFloat("quantity", 2.5, ok)
	NonNegativeInt("unit_price", 0, ok)
	if !ok.Empty() {
		t.Errorf("expected no violations, got %v", ok)
	}
}
