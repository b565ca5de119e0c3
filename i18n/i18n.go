// Package i18n provides the application's user-facing message catalogue.
// French is the primary language; English is available as a fallback.
package i18n

import (
	"context"
	"strings"
)

type langKey struct{}

// WithLang stores the request language in the context.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext retrieves the request language, defaulting to "fr".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return "fr"
}

// DetectLanguage picks a supported language from an Accept-Language header.
// Anything that is not English falls back to French.
func DetectLanguage(acceptLanguage string) string {
	first := strings.TrimSpace(strings.Split(acceptLanguage, ",")[0])
	first = strings.ToLower(strings.Split(first, ";")[0])
	if strings.HasPrefix(first, "en") {
		return "en"
	}
	return "fr"
}

// T translates a message code. Unknown languages fall back to French;
// unknown codes fall back to the code itself so missing entries stay visible.
func T(lang, code string) string {
	if m, ok := translations[lang]; ok {
		if msg, ok := m[code]; ok {
			return msg
		}
	}
	if msg, ok := translations["fr"][code]; ok {
		return msg
	}
	return code
}

var translations = map[string]map[string]string{
	"fr": {
		"required":                "Requis",
		"must_be_positive":        "Doit être positif",
		"must_not_be_negative":    "Ne doit pas être négatif",
		"out_of_range":            "Hors limites",
		"invalid_vat_rate":        "Taux de TVA non autorisé",
		"invalid_payment_method":  "Moyen de paiement invalide",
		"not_found":               "Introuvable",
		"validation_failed":       "Saisie invalide",
		"quota_exceeded":          "Limite de l'offre gratuite atteinte",
		"subscription_required":   "Un abonnement actif est requis",
		"devis_already_invoiced":  "Devis déjà facturé, modification impossible",
		"devis_not_invoiced":      "Devis non facturé",
		"facture_already_paid":    "Facture déjà payée, modification impossible",
		"invalid_credentials":     "Identifiants invalides",
		"email_taken":             "Adresse e-mail déjà utilisée",
		"delivery_failed":         "Échec de l'envoi du document",
		"invalid_json":            "Corps de requête illisible",
		"invalid_id":              "Identifiant invalide",
		"invalid_date":            "Date invalide",
		"unauthorized":            "Authentification requise",
		"internal_error":          "Une erreur est survenue",
	},
	"en": {
		"required":                "Required",
		"must_be_positive":        "Must be positive",
		"must_not_be_negative":    "Must not be negative",
		"out_of_range":            "Out of range",
		"invalid_vat_rate":        "VAT rate not allowed",
		"invalid_payment_method":  "Invalid payment method",
		"not_found":               "Not found",
		"validation_failed":       "Invalid input",
		"quota_exceeded":          "Free plan limit reached",
		"subscription_required":   "An active subscription is required",
		"devis_already_invoiced":  "Quote already invoiced, cannot modify",
		"devis_not_invoiced":      "Quote not invoiced",
		"facture_already_paid":    "Invoice already paid, cannot modify",
		"invalid_credentials":     "Invalid credentials",
		"email_taken":             "Email address already in use",
		"delivery_failed":         "Failed to send the document",
		"invalid_json":            "Unreadable request body",
		"invalid_id":              "Invalid identifier",
		"invalid_date":            "Invalid date",
		"unauthorized":            "Authentication required",
		"internal_error":          "Something went wrong",
	},
}
