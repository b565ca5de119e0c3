package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/go-facture/internal/entitlement"
	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testFreeLimit = 5

var testRates = []float64{20, 10, 5.5, 2.1}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Client{},
		&models.Devis{}, &models.DevisItem{},
		&models.Facture{}, &models.FactureItem{},
		&models.NumberSequence{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// stubSubscriptions lets a test flip plan and trial state per user.
type stubSubscriptions struct {
	plan  map[uint]bool
	trial map[uint]bool
}

func (s *stubSubscriptions) PlanActive(_ context.Context, userID uint) (bool, error) {
	return s.plan[userID], nil
}

func (s *stubSubscriptions) TrialActive(_ context.Context, userID uint) (bool, error) {
	return s.trial[userID], nil
}

func newTestGate(db *gorm.DB, subs entitlement.SubscriptionResolver) *entitlement.Gate {
	gate := entitlement.NewGate(subs)
	gate.Register(entitlement.ResourceClients, testFreeLimit, func(ctx context.Context, userID uint) (int64, error) {
		var n int64
		err := db.WithContext(ctx).Model(&models.Client{}).Where("user_id = ?", userID).Count(&n).Error
		return n, err
	})
	gate.Register(entitlement.ResourceDevis, testFreeLimit, func(ctx context.Context, userID uint) (int64, error) {
		var n int64
		err := db.WithContext(ctx).Model(&models.Devis{}).Where("user_id = ?", userID).Count(&n).Error
		return n, err
	})
	gate.Register(entitlement.ResourceFactures, testFreeLimit, func(ctx context.Context, userID uint) (int64, error) {
		var n int64
		err := db.WithContext(ctx).Model(&models.Facture{}).Where("user_id = ?", userID).Count(&n).Error
		return n, err
	})
	return gate
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, Password: "hash", CompanyName: "Plomberie Martin"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createTestClient(t *testing.T, db *gorm.DB, userID uint, name string) *models.Client {
	t.Helper()
	client := models.Client{UserID: userID, Name: name, Email: "client@example.com", City: "Lyon"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return &client
}

// noopMailer records calls without sending anything.
type noopMailer struct {
	sent int
	to   string
}

func (m *noopMailer) Send(_ context.Context, to, _, _ string, _ []byte, _ string) error {
	m.sent++
	m.to = to
	return nil
}

func noopRenderer(_ *models.Devis, _ *models.Client, _ *models.User) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func fixedTime(year int) time.Time {
	return time.Date(year, time.March, 15, 10, 0, 0, 0, time.UTC)
}
