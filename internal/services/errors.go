package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	// ErrNotFound: a referenced client/produit/facture/paiement does not exist.
	ErrNotFound = errors.New("introuvable")
	// ErrIntegrity: concurrent mutation outside the expected protocol
	// (product vanished mid-deletion, header delete hit zero rows).
	ErrIntegrity = errors.New("intégrité des données compromise")
)

// ValidationError carries every collected message so the caller can
// report all problems in one response.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Messages, " ") }

func validationf(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// StockError reports insufficient stock for a named product. It aborts
// the whole batch, never a single line.
type StockError struct {
	ProduitNom string
}

func (e *StockError) Error() string {
	return "Stock insuffisant pour le produit " + e.ProduitNom
}

// IsDuplicateErr detects unique-constraint violations across drivers.
func IsDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
