// Package db handles schema migration and development seed data.
package db

import (
	"fmt"
	"time"

	"github.com/diewo77/go-facture/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migrate applies the gorm auto-migrations for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Devis{},
		&models.DevisItem{},
		&models.Facture{},
		&models.FactureItem{},
		&models.NumberSequence{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Seed inserts a demo account for local development. Idempotent: it does
// nothing when the demo user already exists.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", "demo@go-facture.fr").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	trialEnd := time.Now().AddDate(0, 0, 14)
	user := models.User{
		Email:       "demo@go-facture.fr",
		Password:    string(hash),
		Name:        "Jean Martin",
		CompanyName: "Plomberie Martin",
		SIRET:       "12345678900011",
		Address:     "4 rue des Canuts",
		PostalCode:  "69004",
		City:        "Lyon",
		TrialEndsAt: &trialEnd,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	client := models.Client{
		UserID:     user.ID,
		Name:       "SCI Bellecour",
		Email:      "contact@sci-bellecour.fr",
		Address:    "2 place Bellecour",
		PostalCode: "69002",
		City:       "Lyon",
	}
	if err := db.Create(&client).Error; err != nil {
		return fmt.Errorf("seed client: %w", err)
	}
	return nil
}
