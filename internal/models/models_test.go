package models

import (
	"errors"
	"testing"
	"time"
)

func TestDevis_GetUserID(t *testing.T) {
	devis := &Devis{UserID: 42}
	if got := devis.GetUserID(); got != 42 {
		t.Errorf("GetUserID() = %d, want 42", got)
	}
}

func TestDevis_MarkSent(t *testing.T) {
	d := &Devis{Status: DevisStatusDraft}
	d.MarkSent()
	if d.Status != DevisStatusSent {
		t.Errorf("status = %q, want sent", d.Status)
	}
	// re-send keeps sent
	d.MarkSent()
	if d.Status != DevisStatusSent {
		t.Errorf("status after re-send = %q", d.Status)
	}
	// sending never un-freezes an invoiced devis
	d.Status = DevisStatusInvoiced
	d.MarkSent()
	if d.Status != DevisStatusInvoiced {
		t.Errorf("status = %q, want invoiced", d.Status)
	}
}

func TestDevis_MarkInvoiced(t *testing.T) {
	d := &Devis{Status: DevisStatusSent}
	if err := d.MarkInvoiced(7); err != nil {
		t.Fatalf("MarkInvoiced: %v", err)
	}
	if d.Status != DevisStatusInvoiced || d.FactureID == nil || *d.FactureID != 7 {
		t.Errorf("devis = %+v", d)
	}
	if err := d.MarkInvoiced(8); !errors.Is(err, ErrDevisInvoiced) {
		t.Errorf("second MarkInvoiced: %v", err)
	}
	if *d.FactureID != 7 {
		t.Errorf("facture id overwritten: %d", *d.FactureID)
	}
}

func TestDevis_RevertToSent(t *testing.T) {
	d := &Devis{Status: DevisStatusDraft}
	if err := d.RevertToSent(); !errors.Is(err, ErrDevisNotInvoiced) {
		t.Errorf("revert draft: %v", err)
	}

	d.Status = DevisStatusSent
	if err := d.MarkInvoiced(3); err != nil {
		t.Fatalf("MarkInvoiced: %v", err)
	}
	if err := d.RevertToSent(); err != nil {
		t.Fatalf("RevertToSent: %v", err)
	}
	if d.Status != DevisStatusSent || d.FactureID != nil {
		t.Errorf("devis after revert = %+v", d)
	}
	// revertable devis is convertible again
	if err := d.MarkInvoiced(9); err != nil {
		t.Errorf("re-invoice: %v", err)
	}
}

func TestDevis_CanEdit(t *testing.T) {
	for _, status := range []DevisStatus{DevisStatusDraft, DevisStatusSent} {
		if !(&Devis{Status: status}).CanEdit() {
			t.Errorf("CanEdit(%q) = false", status)
		}
	}
	if (&Devis{Status: DevisStatusInvoiced}).CanEdit() {
		t.Error("CanEdit(invoiced) = true")
	}
}

func TestFacture_MarkPaid(t *testing.T) {
	f := &Facture{Status: FactureStatusPending}
	when := time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)
	method := PaymentVirement
	if err := f.MarkPaid(when, &method); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if f.Status != FactureStatusPaid || f.PaymentDate == nil || !f.PaymentDate.Equal(when) {
		t.Errorf("facture = %+v", f)
	}
	if err := f.MarkPaid(when, nil); !errors.Is(err, ErrFacturePaid) {
		t.Errorf("second MarkPaid: %v", err)
	}
	// first payment details untouched
	if f.PaymentMethod == nil || *f.PaymentMethod != PaymentVirement {
		t.Errorf("payment method = %v", f.PaymentMethod)
	}
}

func TestFacture_CanEdit(t *testing.T) {
	if !(&Facture{Status: FactureStatusPending}).CanEdit() {
		t.Error("CanEdit(pending) = false")
	}
	if (&Facture{Status: FactureStatusPaid}).CanEdit() {
		t.Error("CanEdit(paid) = true")
	}
}

func TestFactureItem_RatePercent(t *testing.T) {
	tests := []struct {
		rate int64
		want float64
	}{
		{2000, 20},
		{1000, 10},
		{550, 5.5},
		{210, 2.1},
		{0, 0},
	}
	for _, tt := range tests {
		item := &FactureItem{TVARate: tt.rate}
		if got := item.RatePercent(); got != tt.want {
			t.Errorf("RatePercent(%d) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestUser_SubscriptionActive(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"no plan", User{}, false},
		{"active period", User{PlanID: "pro", CurrentPeriodEnd: &future}, true},
		{"expired period", User{PlanID: "pro", CurrentPeriodEnd: &past}, false},
		{"cancelled but period running", User{PlanID: "pro", CurrentPeriodEnd: &future, CancelAtPeriodEnd: true}, true},
		{"plan without period end", User{PlanID: "pro"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.SubscriptionActive(now); got != tt.want {
				t.Errorf("SubscriptionActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_TrialActive(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 7)
	past := now.AddDate(0, 0, -1)

	if (&User{}).TrialActive(now) {
		t.Error("no trial should be inactive")
	}
	if !(&User{TrialEndsAt: &future}).TrialActive(now) {
		t.Error("running trial should be active")
	}
	if (&User{TrialEndsAt: &past}).TrialActive(now) {
		t.Error("expired trial should be inactive")
	}
}

func TestUser_SenderEmail(t *testing.T) {
	u := &User{Email: "login@example.com"}
	if got := u.SenderEmail(); got != "login@example.com" {
		t.Errorf("SenderEmail() = %q", got)
	}
	u.BusinessEmail = "contact@entreprise.fr"
	if got := u.SenderEmail(); got != "contact@entreprise.fr" {
		t.Errorf("SenderEmail() = %q", got)
	}
}

func TestClient_FullAddress(t *testing.T) {
	c := &Client{Address: "2 place Bellecour", PostalCode: "69002", City: "Lyon"}
	want := "2 place Bellecour\n69002 Lyon"
	if got := c.FullAddress(); got != want {
		t.Errorf("FullAddress() = %q, want %q", got, want)
	}
	empty := &Client{}
	if got := empty.FullAddress(); got != "" {
		t.Errorf("FullAddress() on empty = %q", got)
	}
}
