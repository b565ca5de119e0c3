package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/go-facture/internal/entitlement"
	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
)

func newDevisFixture(t *testing.T) (*gorm.DB, *DevisService, *FactureService, *models.User, *models.Client, *noopMailer) {
	t.Helper()
	db := setupServiceTestDB(t)
	subs := &stubSubscriptions{plan: map[uint]bool{}, trial: map[uint]bool{}}
	gate := newTestGate(db, subs)
	mailer := &noopMailer{}
	devisSvc := NewDevisService(db, gate, testRates, noopRenderer, mailer)
	devisSvc.now = func() time.Time { return fixedTime(2025) }
	factureSvc := NewFactureService(db, gate, testRates)
	factureSvc.now = func() time.Time { return fixedTime(2025) }
	user := createTestUser(t, db, "devis@example.com")
	subs.trial[user.ID] = true
	client := createTestClient(t, db, user.ID, "SCI Bellecour")
	return db, devisSvc, factureSvc, user, client, mailer
}

func validDevisInput(clientID uint) DevisInput {
	return DevisInput{
		ClientID: clientID,
		TVARate:  20,
		Items: []ItemInput{
			{Designation: "Pose chaudière", Quantity: 2, UnitPrice: 10000},
			{Designation: "Déplacement", Quantity: 1, UnitPrice: 5000},
		},
	}
}

func TestDevisCreateAndTotals(t *testing.T) {
	_, svc, _, user, client, _ := newDevisFixture(t)
	ctx := context.Background()

	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if devis.Number != "DEV-2025-001" {
		t.Errorf("number = %q, want DEV-2025-001", devis.Number)
	}
	if devis.Status != models.DevisStatusDraft {
		t.Errorf("status = %q, want draft", devis.Status)
	}
	if len(devis.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(devis.Items))
	}
	if devis.Items[0].Position != 0 || devis.Items[1].Position != 1 {
		t.Errorf("positions = %d,%d", devis.Items[0].Position, devis.Items[1].Position)
	}

	totals := svc.Totals(devis)
	if totals.HT != 25000 || totals.TVA != 5000 || totals.TTC != 30000 {
		t.Errorf("totals = %+v, want 25000/5000/30000", totals)
	}
}

func TestDevisCreateRejectsUnknownVATRate(t *testing.T) {
	_, svc, _, user, client, _ := newDevisFixture(t)
	in := validDevisInput(client.ID)
	in.TVARate = 19.6

	_, err := svc.Create(context.Background(), user.ID, in)
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Violations["tva_rate"] == "" {
		t.Errorf("expected tva_rate violation, got %v", verr.Violations)
	}
}

func TestDevisCreateRejectsForeignClient(t *testing.T) {
	db, svc, _, user, _, _ := newDevisFixture(t)
	other := createTestUser(t, db, "other@example.com")
	foreign := createTestClient(t, db, other.ID, "Client d'un autre")

	_, err := svc.Create(context.Background(), user.ID, validDevisInput(foreign.ID))
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Violations["client_id"] != "not_found" {
		t.Errorf("violations = %v", verr.Violations)
	}
}

func TestDevisCreateRequiresPlanOrTrial(t *testing.T) {
	db := setupServiceTestDB(t)
	subs := &stubSubscriptions{plan: map[uint]bool{}, trial: map[uint]bool{}}
	svc := NewDevisService(db, newTestGate(db, subs), testRates, noopRenderer, &noopMailer{})
	user := createTestUser(t, db, "expired@example.com")
	client := createTestClient(t, db, user.ID, "Client")

	_, err := svc.Create(context.Background(), user.ID, validDevisInput(client.ID))
	eerr, ok := AsEntitlementError(err)
	if !ok {
		t.Fatalf("expected entitlement error, got %v", err)
	}
	if eerr.Code != "subscription_required" {
		t.Errorf("code = %q, want subscription_required", eerr.Code)
	}
}

func TestDevisCreateQuota(t *testing.T) {
	_, svc, _, user, client, _ := newDevisFixture(t)
	ctx := context.Background()

	for i := 0; i < testFreeLimit; i++ {
		if _, err := svc.Create(ctx, user.ID, validDevisInput(client.ID)); err != nil {
			t.Fatalf("create %d: %v", i+1, err)
		}
	}
	_, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	eerr, ok := AsEntitlementError(err)
	if !ok {
		t.Fatalf("expected entitlement error, got %v", err)
	}
	if eerr.Code != "quota_exceeded" || eerr.Decision.Current != testFreeLimit {
		t.Errorf("got code=%q decision=%+v", eerr.Code, eerr.Decision)
	}
}

func TestDevisGetIsolatesTenants(t *testing.T) {
	db, svc, _, user, client, _ := newDevisFixture(t)
	devis, err := svc.Create(context.Background(), user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other := createTestUser(t, db, "snoop@example.com")

	if _, err := svc.Get(context.Background(), other.ID, devis.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant get: got %v, want ErrNotFound", err)
	}
}

func TestDevisUpdateReplacesItems(t *testing.T) {
	_, svc, _, user, client, _ := newDevisFixture(t)
	ctx := context.Background()
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := validDevisInput(client.ID)
	in.TVARate = 10
	in.Items = []ItemInput{{Designation: "Forfait unique", Quantity: 1, UnitPrice: 33300}}
	updated, err := svc.Update(ctx, user.ID, devis.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Designation != "Forfait unique" {
		t.Fatalf("items after update = %+v", updated.Items)
	}
	if updated.TVARate != 10 {
		t.Errorf("tva_rate = %v, want 10", updated.TVARate)
	}
	if updated.Number != devis.Number {
		t.Errorf("number changed on update: %q → %q", devis.Number, updated.Number)
	}
}

type failingMailer struct{}

func (failingMailer) Send(_ context.Context, _, _, _ string, _ []byte, _ string) error {
	return errors.New("smtp: connection refused")
}

func TestDevisSendDeliveryFailure(t *testing.T) {
	_, svc, _, user, client, _ := newDevisFixture(t)
	svc.mailer = failingMailer{}
	ctx := context.Background()
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Send(ctx, user.ID, devis.ID)
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("send error = %v, want ErrDeliveryFailed", err)
	}
	// a failed delivery leaves the devis untouched
	after, _ := svc.Get(ctx, user.ID, devis.ID)
	if after.Status != models.DevisStatusDraft {
		t.Errorf("status = %q, want draft", after.Status)
	}
}

func TestDevisSendMarksSentOnce(t *testing.T) {
	_, svc, _, user, client, mailer := newDevisFixture(t)
	ctx := context.Background()
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Send(ctx, user.ID, devis.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	if mailer.sent != 1 || mailer.to != client.Email {
		t.Errorf("mailer sent=%d to=%q", mailer.sent, mailer.to)
	}
	sent, _ := svc.Get(ctx, user.ID, devis.ID)
	if sent.Status != models.DevisStatusSent {
		t.Fatalf("status = %q, want sent", sent.Status)
	}

	// re-send stays sent
	if err := svc.Send(ctx, user.ID, devis.ID); err != nil {
		t.Fatalf("re-send: %v", err)
	}
	again, _ := svc.Get(ctx, user.ID, devis.ID)
	if again.Status != models.DevisStatusSent {
		t.Errorf("status after re-send = %q", again.Status)
	}
}

func TestDevisConvertToFacture(t *testing.T) {
	_, svc, factureSvc, user, client, _ := newDevisFixture(t)
	ctx := context.Background()
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	facture, err := svc.ConvertToFacture(ctx, user.ID, devis.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if facture.Number != "FAC-2025-001" {
		t.Errorf("facture number = %q, want FAC-2025-001", facture.Number)
	}
	if facture.DevisID == nil || *facture.DevisID != devis.ID {
		t.Errorf("facture devis_id = %v", facture.DevisID)
	}

	loaded, err := factureSvc.Get(ctx, user.ID, facture.ID)
	if err != nil {
		t.Fatalf("get facture: %v", err)
	}
	if len(loaded.Items) != 2 {
		t.Fatalf("facture items = %d, want 2", len(loaded.Items))
	}
	for _, item := range loaded.Items {
		if item.TVARate != 2000 {
			t.Errorf("item rate = %d, want 2000", item.TVARate)
		}
	}
	totals := factureSvc.Totals(loaded)
	if totals.HT != 25000 || totals.TTC != 30000 {
		t.Errorf("facture totals = %+v", totals)
	}

	frozen, _ := svc.Get(ctx, user.ID, devis.ID)
	if frozen.Status != models.DevisStatusInvoiced {
		t.Errorf("devis status = %q, want invoiced", frozen.Status)
	}
	if frozen.FactureID == nil || *frozen.FactureID != facture.ID {
		t.Errorf("devis facture_id = %v", frozen.FactureID)
	}
}

func TestDevisConvertTwiceFails(t *testing.T) {
	_, svc, _, user, client, _ := newDevisFixture(t)
	ctx := context.Background()
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ConvertToFacture(ctx, user.ID, devis.ID); err != nil {
		t.Fatalf("first convert: %v", err)
	}

	_, err = svc.ConvertToFacture(ctx, user.ID, devis.ID)
	serr, ok := AsStateError(err)
	if !ok {
		t.Fatalf("expected state error, got %v", err)
	}
	if serr.Code != "devis_already_invoiced" {
		t.Errorf("code = %q", serr.Code)
	}
}

func TestDevisInvoicedIsFrozen(t *testing.T) {
	_, svc, _, user, client, _ := newDevisFixture(t)
	ctx := context.Background()
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ConvertToFacture(ctx, user.ID, devis.ID); err != nil {
		t.Fatalf("convert: %v", err)
	}

	if _, err := svc.Update(ctx, user.ID, devis.ID, validDevisInput(client.ID)); !errors.Is(err, models.ErrDevisInvoiced) {
		t.Errorf("update frozen devis: got %v", err)
	}
	if err := svc.Delete(ctx, user.ID, devis.ID); !errors.Is(err, models.ErrDevisInvoiced) {
		t.Errorf("delete frozen devis: got %v", err)
	}
}

func TestDevisConvertGatedByFactureQuota(t *testing.T) {
	_, svc, factureSvc, user, client, _ := newDevisFixture(t)
	ctx := context.Background()

	for i := 0; i < testFreeLimit; i++ {
		if _, err := factureSvc.Create(ctx, user.ID, validFactureInput(client.ID)); err != nil {
			t.Fatalf("facture %d: %v", i+1, err)
		}
	}
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create devis: %v", err)
	}

	_, err = svc.ConvertToFacture(ctx, user.ID, devis.ID)
	eerr, ok := AsEntitlementError(err)
	if !ok {
		t.Fatalf("expected entitlement error, got %v", err)
	}
	if eerr.Resource != entitlement.ResourceFactures {
		t.Errorf("resource = %q", eerr.Resource)
	}
	// the devis stays convertible
	still, _ := svc.Get(ctx, user.ID, devis.ID)
	if still.Status == models.DevisStatusInvoiced {
		t.Errorf("devis frozen despite failed conversion")
	}
}

func TestDevisDeleteRemovesItems(t *testing.T) {
	db, svc, _, user, client, _ := newDevisFixture(t)
	ctx := context.Background()
	devis, err := svc.Create(ctx, user.ID, validDevisInput(client.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, user.ID, devis.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Get(ctx, user.ID, devis.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	var itemCount int64
	db.Model(&models.DevisItem{}).Where("devis_id = ?", devis.ID).Count(&itemCount)
	if itemCount != 0 {
		t.Errorf("orphan items: %d", itemCount)
	}
}
