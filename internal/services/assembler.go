package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/barcode"
	"github.com/merabtenei/gestock/internal/models"
)

// Read-side shapes. Every money field is rendered with exactly two
// decimal places.

type VersementVue struct {
	ID      uint      `json:"id"`
	Montant string    `json:"montant"`
	Date    time.Time `json:"date"`
	RecuRef string    `json:"recu_ref,omitempty"`
}

type PaiementVue struct {
	ID         uint           `json:"id"`
	Methode    string         `json:"methode"`
	Statut     string         `json:"statut"`
	Versements []VersementVue `json:"versements"`
}

type ArticleVue struct {
	ArticleID     uint   `json:"article_id"`
	ProduitID     uint   `json:"produit_id"`
	CodeBarre     string `json:"code_barre,omitempty"`
	Nom           string `json:"nom"`
	Quantite      int    `json:"quantite"`
	Prix          string `json:"prix"`
	PrixVente     string `json:"prix_vente"`
	PrixAchat     string `json:"prix_achat"`
	PrixTotal     string `json:"prix_total"`
	CodeGarantie  string `json:"code_garantie,omitempty"`
	DureeGarantie string `json:"duree_garantie,omitempty"`
}

type FactureVue struct {
	ID            uint          `json:"id"`
	Code          string        `json:"code"`
	ClientID      uint          `json:"client_id"`
	NomClient     string        `json:"nom_client"`
	PrixTotal     string        `json:"prix_total"`
	Statut        string        `json:"statut"`
	TypeVente     string        `json:"type_vente,omitempty"`
	ModeVente     string        `json:"mode_vente,omitempty"`
	LivraisonPar  string        `json:"livraison_par,omitempty"`
	LivraisonPrix string        `json:"livraison_prix,omitempty"`
	LivraisonCode string        `json:"livraison_code,omitempty"`
	Commentaire   string        `json:"commentaire,omitempty"`
	DateCreation  time.Time     `json:"date_creation"`
	Produits      []ArticleVue  `json:"produits"`
	Paiements     []PaiementVue `json:"paiements"`
}

func money(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// List returns every facture, newest first, with client, lines and
// payments joined. A facture with no surviving lines still appears with
// an empty produits list.
func (s *FactureService) List() ([]FactureVue, error) {
	var factures []models.Facture
	err := s.db.
		Preload("Client").
		Preload("Articles.Produit").
		Preload("Paiements.Versements").
		Order("date_creation DESC, id DESC").
		Find(&factures).Error
	if err != nil {
		return nil, err
	}
	vues := make([]FactureVue, 0, len(factures))
	for i := range factures {
		vues = append(vues, assembleFacture(&factures[i]))
	}
	return vues, nil
}

// Get returns one assembled facture.
func (s *FactureService) Get(id uint) (*FactureVue, error) {
	var facture models.Facture
	err := s.db.
		Preload("Client").
		Preload("Articles.Produit").
		Preload("Paiements.Versements").
		First(&facture, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("facture %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	vue := assembleFacture(&facture)
	return &vue, nil
}

func assembleFacture(f *models.Facture) FactureVue {
	vue := FactureVue{
		ID:           f.ID,
		Code:         f.Code,
		ClientID:     f.ClientID,
		NomClient:    f.Client.Nom,
		PrixTotal:    money(f.PrixTotal),
		Statut:       f.Statut,
		TypeVente:    f.TypeVente,
		ModeVente:    f.ModeVente,
		LivraisonPar: f.LivraisonPar,
		LivraisonCode: f.LivraisonCode,
		Commentaire:  f.Commentaire,
		DateCreation: f.DateCreation,
		Produits:     make([]ArticleVue, 0, len(f.Articles)),
		Paiements:    make([]PaiementVue, 0, len(f.Paiements)),
	}
	if f.LivraisonPrix > 0 {
		vue.LivraisonPrix = money(f.LivraisonPrix)
	}
	for _, a := range f.Articles {
		av := ArticleVue{
			ArticleID:     a.ID,
			ProduitID:     a.ProduitID,
			Nom:           a.Produit.Nom,
			Quantite:      a.Quantite,
			Prix:          money(a.Prix),
			PrixVente:     money(a.Produit.PrixVente),
			PrixAchat:     money(a.Produit.PrixAchat),
			PrixTotal:     money(a.Prix * float64(a.Quantite)),
			CodeGarantie:  a.CodeGarantie,
			DureeGarantie: a.DureeGarantie,
		}
		if code, err := barcode.Encode(int64(a.ProduitID)); err == nil {
			av.CodeBarre = code
		}
		vue.Produits = append(vue.Produits, av)
	}
	for _, p := range f.Paiements {
		pv := PaiementVue{
			ID:         p.ID,
			Methode:    p.Methode,
			Statut:     p.Statut,
			Versements: make([]VersementVue, 0, len(p.Versements)),
		}
		for _, v := range p.Versements {
			pv.Versements = append(pv.Versements, VersementVue{
				ID:      v.ID,
				Montant: money(v.Montant),
				Date:    v.Date,
				RecuRef: v.RecuRef,
			})
		}
		vue.Paiements = append(vue.Paiements, pv)
	}
	return vue
}
