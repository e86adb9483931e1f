package models

import "time"

// Statut values for Facture. The PUT /status endpoint only accepts these.
const (
	FactureStatutPending  = "pending"
	FactureStatutPaid     = "paid"
	FactureStatutCanceled = "canceled"
)

// AllowedFactureStatut reports whether s is an accepted invoice status.
func AllowedFactureStatut(s string) bool {
	switch s {
	case FactureStatutPending, FactureStatutPaid, FactureStatutCanceled:
		return true
	}
	return false
}

// Facture header. PrixTotal is fixed at creation time to the sum of line
// totals and never edited independently.
type Facture struct {
	ID       uint   `gorm:"primaryKey"`
	Code     string `gorm:"size:20;uniqueIndex;not null"` // FAC<YYYYMMDD><seq>
	ClientID uint   `gorm:"not null"`
	Client   Client `gorm:"foreignKey:ClientID"`

	PrixTotal float64 `gorm:"not null"`
	Statut    string  `gorm:"size:20;not null;default:'pending'"`

	// Métadonnées du canal de vente, toutes optionnelles
	TypeVente         string  `gorm:"size:20"` // comptoir, en_ligne
	ModeVente         string  `gorm:"size:20"` // direct, versement
	LivraisonPar      string  `gorm:"size:100"`
	LivraisonPrix     float64
	LivraisonCode     string `gorm:"size:50"`
	RemarqueVersement string
	Commentaire       string

	DateCreation time.Time `gorm:"autoCreateTime;index"`

	Articles  []ArticleFacture `gorm:"foreignKey:FactureID"`
	Paiements []Paiement       `gorm:"foreignKey:FactureID"`
}

// ArticleFacture is one sold line. Prix is the unit price charged at sale
// time, snapshotted and never recomputed from the catalog. Only the
// warranty fields may be amended afterwards.
type ArticleFacture struct {
	ID        uint    `gorm:"primaryKey"`
	FactureID uint    `gorm:"not null;index"`
	ProduitID uint    `gorm:"not null"`
	Produit   Produit `gorm:"foreignKey:ProduitID"`
	Prix      float64 `gorm:"not null"`
	Quantite  int     `gorm:"not null"`

	CodeGarantie  string `gorm:"size:50"`
	DureeGarantie string `gorm:"size:50"`
}

// TableName keeps the historical table name.
func (ArticleFacture) TableName() string { return "articles_facture" }
