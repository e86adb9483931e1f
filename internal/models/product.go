package models

import "time"

// Catalog models
type Categorie struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Nom       string `gorm:"not null" json:"nom"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Etat values for Produit.
const (
	EtatNeuf          = "neuf"
	EtatOccasion      = "occasion"
	EtatReconditionne = "reconditionne"
)

type Produit struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Nom         string `gorm:"not null" json:"nom"`
	Marque      string `json:"marque,omitempty"`
	Description string `json:"description,omitempty"`

	// Fiche technique (tous optionnels)
	CPU           string   `gorm:"column:cpu" json:"cpu,omitempty"`
	CPUGeneration string   `gorm:"column:cpu_generation" json:"cpu_generation,omitempty"`
	CPUType       string   `gorm:"column:cpu_type" json:"cpu_type,omitempty"`
	RAM           string   `gorm:"column:ram" json:"ram,omitempty"`
	EcranPouce    *float64 `json:"ecran_pouce,omitempty"`
	EcranTactile  *bool    `json:"ecran_tactile,omitempty"`
	EcranType     string   `json:"ecran_type,omitempty"`
	StockageSSD   string   `gorm:"column:stockage_ssd" json:"stockage_ssd,omitempty"`
	StockageHDD   string   `gorm:"column:stockage_hdd" json:"stockage_hdd,omitempty"`
	GPU1          string   `gorm:"column:gpu_1" json:"gpu_1,omitempty"`
	GPU2          string   `gorm:"column:gpu_2" json:"gpu_2,omitempty"`
	Batterie      string   `json:"batterie,omitempty"`
	CodeAmoire    string   `gorm:"size:50" json:"code_amoire,omitempty"`

	PrixAchat float64 `gorm:"not null" json:"prix_achat"`
	PrixVente float64 `gorm:"not null" json:"prix_vente"`

	// Référence externe unique, optionnelle (NULL n'entre pas dans l'index unique)
	Reference *string `gorm:"size:100;uniqueIndex" json:"reference,omitempty"`
	Etat      string  `gorm:"size:20;not null;default:'neuf'" json:"etat"`
	Quantite  int     `gorm:"not null;default:0" json:"quantite"`

	CategorieID *uint      `json:"categorie_id,omitempty"`
	Categorie   *Categorie `gorm:"foreignKey:CategorieID" json:"-"`

	// Liste de descripteurs d'images, sérialisée en JSON
	Image string `gorm:"type:text" json:"-"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
