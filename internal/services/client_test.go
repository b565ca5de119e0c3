package services

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
)

func newClientFixture(t *testing.T) (*gorm.DB, *ClientService, *models.User) {
	t.Helper()
	db := setupServiceTestDB(t)
	subs := &stubSubscriptions{plan: map[uint]bool{}, trial: map[uint]bool{}}
	svc := NewClientService(db, newTestGate(db, subs))
	user := createTestUser(t, db, "clients@example.com")
	subs.trial[user.ID] = true
	return db, svc, user
}

func TestClientCreateRequiresName(t *testing.T) {
	_, svc, user := newClientFixture(t)

	_, err := svc.Create(context.Background(), user.ID, ClientInput{Email: "x@example.com"})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Violations["name"] == "" {
		t.Errorf("violations = %v", verr.Violations)
	}
}

func TestClientQuota(t *testing.T) {
	_, svc, user := newClientFixture(t)
	ctx := context.Background()

	for i := 0; i < testFreeLimit; i++ {
		in := ClientInput{Name: "Client", City: "Lyon"}
		if _, err := svc.Create(ctx, user.ID, in); err != nil {
			t.Fatalf("create %d: %v", i+1, err)
		}
	}
	_, err := svc.Create(ctx, user.ID, ClientInput{Name: "Un de trop"})
	eerr, ok := AsEntitlementError(err)
	if !ok {
		t.Fatalf("expected entitlement error, got %v", err)
	}
	if eerr.Decision.Limit != testFreeLimit {
		t.Errorf("decision = %+v", eerr.Decision)
	}
}

func TestClientUpdateAndOwnership(t *testing.T) {
	db, svc, user := newClientFixture(t)
	ctx := context.Background()
	client, err := svc.Create(ctx, user.ID, ClientInput{Name: "Avant", City: "Lyon"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, user.ID, client.ID, ClientInput{Name: "Après", City: "Paris"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Après" || updated.City != "Paris" {
		t.Errorf("updated = %+v", updated)
	}

	other := createTestUser(t, db, "other@example.com")
	if _, err := svc.Get(ctx, other.ID, client.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant get: %v", err)
	}
	if err := svc.Delete(ctx, other.ID, client.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant delete: %v", err)
	}
}

func TestClientDeleteCascades(t *testing.T) {
	db, svc, user := newClientFixture(t)
	ctx := context.Background()
	subs := &stubSubscriptions{plan: map[uint]bool{user.ID: true}, trial: map[uint]bool{}}
	gate := newTestGate(db, subs)
	devisSvc := NewDevisService(db, gate, testRates, noopRenderer, &noopMailer{})
	factureSvc := NewFactureService(db, gate, testRates)

	client, err := svc.Create(ctx, user.ID, ClientInput{Name: "Condamné"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	devis, err := devisSvc.Create(ctx, user.ID, DevisInput{
		ClientID: client.ID,
		TVARate:  20,
		Items:    []ItemInput{{Designation: "Ligne", Quantity: 1, UnitPrice: 1000}},
	})
	if err != nil {
		t.Fatalf("create devis: %v", err)
	}
	facture, err := factureSvc.Create(ctx, user.ID, FactureInput{
		ClientID: client.ID,
		Items:    []ItemInput{{Designation: "Ligne", Quantity: 1, UnitPrice: 1000, TVARate: 20}},
	})
	if err != nil {
		t.Fatalf("create facture: %v", err)
	}
	// a soft-deleted facture must go too
	deleted, err := factureSvc.Create(ctx, user.ID, FactureInput{
		ClientID: client.ID,
		Items:    []ItemInput{{Designation: "Ligne", Quantity: 1, UnitPrice: 1000, TVARate: 20}},
	})
	if err != nil {
		t.Fatalf("create second facture: %v", err)
	}
	if err := factureSvc.Delete(ctx, user.ID, deleted.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if err := svc.Delete(ctx, user.ID, client.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}

	checks := []struct {
		name  string
		count func() int64
	}{
		{"client", func() (n int64) { db.Model(&models.Client{}).Where("id = ?", client.ID).Count(&n); return }},
		{"devis", func() (n int64) { db.Model(&models.Devis{}).Where("id = ?", devis.ID).Count(&n); return }},
		{"devis items", func() (n int64) { db.Model(&models.DevisItem{}).Where("devis_id = ?", devis.ID).Count(&n); return }},
		{"factures", func() (n int64) {
			db.Unscoped().Model(&models.Facture{}).Where("client_id = ?", client.ID).Count(&n)
			return
		}},
		{"facture items", func() (n int64) {
			db.Model(&models.FactureItem{}).Where("facture_id IN ?", []uint{facture.ID, deleted.ID}).Count(&n)
			return
		}},
	}
	for _, c := range checks {
		if n := c.count(); n != 0 {
			t.Errorf("%s left behind: %d rows", c.name, n)
		}
	}
}
