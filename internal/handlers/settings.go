package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/internal/models"
	"gorm.io/gorm"
)

// SettingsHandler exposes the emitter profile: the business details printed
// on documents and the subscription state, read-only for the latter.
type SettingsHandler struct {
	db *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type settingsInput struct {
	Name          string `json:"name"`
	CompanyName   string `json:"company_name"`
	SIRET         string `json:"siret"`
	Address       string `json:"address"`
	PostalCode    string `json:"postal_code"`
	City          string `json:"city"`
	Phone         string `json:"phone"`
	BusinessEmail string `json:"business_email"`
	LogoURL       string `json:"logo_url"`
}

// Update saves the business details. Login email, password and subscription
// fields are not editable here.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	var in settingsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	user.Name = in.Name
	user.CompanyName = in.CompanyName
	user.SIRET = in.SIRET
	user.Address = in.Address
	user.PostalCode = in.PostalCode
	user.City = in.City
	user.Phone = in.Phone
	user.BusinessEmail = in.BusinessEmail
	user.LogoURL = in.LogoURL
	if err := h.db.WithContext(r.Context()).Save(&user).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
