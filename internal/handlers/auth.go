package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/go-facture/auth"
	"github.com/diewo77/go-facture/httpx"
	"github.com/diewo77/go-facture/i18n"
	"github.com/diewo77/go-facture/internal/models"
	"github.com/diewo77/go-facture/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db        *gorm.DB
	trialDays int
}

func NewAuthHandler(db *gorm.DB, trialDays int) *AuthHandler {
	return &AuthHandler{db: db, trialDays: trialDays}
}

type signupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Signup creates an account, starts the free trial and opens a session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LangFromContext(r.Context())
	var in signupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		v["email"] = "invalid_email"
	}
	if len(in.Password) < 8 {
		v["password"] = "too_short"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", i18n.T(lang, "validation_failed"), v)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "internal_error"), nil)
		return
	}
	trialEnd := time.Now().AddDate(0, 0, h.trialDays)
	user := models.User{
		Email:       in.Email,
		Password:    string(hash),
		Name:        in.Name,
		TrialEndsAt: &trialEnd,
	}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			httpx.JSONError(w, http.StatusConflict, "email_taken", i18n.T(lang, "email_taken"), nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", i18n.T(lang, "internal_error"), nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and opens a session. A wrong email and a wrong
// password return the same error.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LangFromContext(r.Context())
	var in loginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, r, "invalid_json")
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	err := h.db.WithContext(r.Context()).Where("email = ?", in.Email).First(&user).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", i18n.T(lang, "invalid_credentials"), nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
