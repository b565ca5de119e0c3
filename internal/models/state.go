package models

// StateError reports a document mutation that violates a status guard, e.g.
// editing an invoiced devis or re-marking a paid facture. The code is an i18n
// message key surfaced to the user as-is.
type StateError struct {
	Code string
}

func (e *StateError) Error() string { return e.Code }

// Status-guard violations. Transition methods on Devis and Facture are the
// only place these are produced.
var (
	ErrDevisInvoiced    = &StateError{Code: "devis_already_invoiced"}
	ErrDevisNotInvoiced = &StateError{Code: "devis_not_invoiced"}
	ErrFacturePaid      = &StateError{Code: "facture_already_paid"}
)
