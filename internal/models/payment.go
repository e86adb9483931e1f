package models

import "time"

// Statut values for Paiement, derived from versement amounts vs the
// facture total. Never set directly by callers.
const (
	PaiementStatutPending   = "pending"
	PaiementStatutPartial   = "partial"
	PaiementStatutCompleted = "completed"
)

// Paiement is one payment method attached to a facture. A facture may
// carry several (split payment).
type Paiement struct {
	ID        uint   `gorm:"primaryKey"`
	FactureID uint   `gorm:"not null;index"`
	Methode   string `gorm:"size:50;not null"` // ex: espèces, carte, virement
	Statut    string `gorm:"size:20;not null;default:'pending'"`

	Versements []Versement `gorm:"foreignKey:PaiementID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Versement is one installment toward a payment method.
type Versement struct {
	ID         uint      `gorm:"primaryKey"`
	PaiementID uint      `gorm:"not null;index"`
	Montant    float64   `gorm:"not null"`
	Date       time.Time `gorm:"not null"`
	RecuRef    string    `gorm:"size:255"` // référence du reçu, optionnelle
	CreatedAt  time.Time
}
