package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/models"
)

// FactureService owns every write to factures, articles_facture,
// paiements and versements, and the stock side effects on produits.
type FactureService struct {
	db *gorm.DB
}

func NewFactureService(db *gorm.DB) *FactureService { return &FactureService{db: db} }

// ClientInput is the inline-client variant of facture creation.
type ClientInput struct {
	Nom            string `json:"nom"`
	Email          string `json:"email,omitempty"`
	Telephone      string `json:"telephone,omitempty"`
	Wilaya         string `json:"wilaya,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// CreateFactureInput carries everything a facture creation needs.
// Exactly one of ClientID / Client must be set.
type CreateFactureInput struct {
	ClientID uint
	Client   *ClientInput
	Produits []LigneDemande

	TypeVente         string
	ModeVente         string
	LivraisonPar      string
	LivraisonPrix     float64
	LivraisonCode     string
	RemarqueVersement string
	Commentaire       string

	Paiements []PaiementInput
}

// Create runs the whole creation workflow in one transaction: client
// resolution, line verification, header insert, line insert, stock
// reservation, payment subledger. Any failure rolls everything back.
func (s *FactureService) Create(in CreateFactureInput) (*FactureVue, error) {
	if len(in.Produits) == 0 {
		return nil, validationf("Une liste de produits non vide est requise")
	}
	if in.Client != nil && strings.TrimSpace(in.Client.Nom) == "" {
		return nil, validationf("Un client (avec au moins un nom) est requis")
	}
	if in.Client == nil && in.ClientID == 0 {
		return nil, validationf("Un client valide (ID numérique) est requis")
	}

	var factureID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		clientID, err := resolveClient(tx, in)
		if err != nil {
			return err
		}

		total, verifiees, errs := VerifyLignes(tx, in.Produits)
		if len(errs) > 0 {
			return &ValidationError{Messages: errs}
		}

		facture := models.Facture{
			Code:              genFactureCode(tx),
			ClientID:          clientID,
			PrixTotal:         total,
			Statut:            models.FactureStatutPending,
			TypeVente:         in.TypeVente,
			ModeVente:         in.ModeVente,
			LivraisonPar:      in.LivraisonPar,
			LivraisonPrix:     in.LivraisonPrix,
			LivraisonCode:     in.LivraisonCode,
			RemarqueVersement: in.RemarqueVersement,
			Commentaire:       in.Commentaire,
		}
		// The header insert runs under a savepoint: after a unique
		// violation Postgres refuses further statements in the
		// transaction until rolled back to one.
		if err := tx.SavePoint("facture_code").Error; err != nil {
			return err
		}
		if err := tx.Create(&facture).Error; err != nil {
			if !IsDuplicateErr(err) {
				return err
			}
			if err := tx.RollbackTo("facture_code").Error; err != nil {
				return err
			}
			// Concurrent same-day creation computed the same sequence;
			// retry once with a random one.
			facture.Code = randomFactureCode(time.Now().UTC())
			if err := tx.Create(&facture).Error; err != nil {
				return err
			}
		}

		articles := make([]models.ArticleFacture, 0, len(verifiees))
		for _, l := range verifiees {
			articles = append(articles, models.ArticleFacture{
				FactureID:     facture.ID,
				ProduitID:     l.ProduitID,
				Prix:          l.Prix,
				Quantite:      l.Quantite,
				CodeGarantie:  l.CodeGarantie,
				DureeGarantie: l.DureeGarantie,
			})
		}
		if err := tx.Create(&articles).Error; err != nil {
			return err
		}

		// Authoritative stock check: the verification-time check above is
		// advisory, a concurrent sale may have landed since.
		for _, l := range verifiees {
			if err := ReserveStock(tx, l.ProduitID, l.Quantite); err != nil {
				return err
			}
		}

		for _, p := range in.Paiements {
			if _, err := addPaiement(tx, facture.ID, total, p); err != nil {
				return err
			}
		}

		factureID = facture.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(factureID)
}

func resolveClient(tx *gorm.DB, in CreateFactureInput) (uint, error) {
	if in.Client != nil {
		c := models.Client{
			Nom:            strings.TrimSpace(in.Client.Nom),
			Email:          in.Client.Email,
			Telephone:      in.Client.Telephone,
			Wilaya:         in.Client.Wilaya,
			Recommendation: in.Client.Recommendation,
		}
		if err := tx.Create(&c).Error; err != nil {
			return 0, err
		}
		return c.ID, nil
	}
	var c models.Client
	if err := tx.Select("id").First(&c, in.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("client %d: %w", in.ClientID, ErrNotFound)
		}
		return 0, err
	}
	return c.ID, nil
}

// genFactureCode builds FAC<YYYYMMDD><4-digit daily sequence> inside the
// transaction. The unique index on the code column is the real
// uniqueness guarantee; a duplicate insert is retried with a random
// sequence. If the sequence query itself fails, fall back to random.
func genFactureCode(tx *gorm.DB) string {
	now := time.Now().UTC()
	prefix := "FAC" + now.Format("20060102")
	var count int64
	if err := tx.Model(&models.Facture{}).Where("code LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return randomFactureCode(now)
	}
	return fmt.Sprintf("%s%04d", prefix, count+1)
}

func randomFactureCode(now time.Time) string {
	return fmt.Sprintf("FAC%s%04d", now.Format("20060102"), rand.IntN(10000))
}

// Delete restores the stock of every line then removes versements,
// paiements, articles and the header, all in one transaction. A facture
// without lines is treated as already deleted (idempotent NotFound).
func (s *FactureService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var articles []models.ArticleFacture
		if err := tx.Where("facture_id = ?", id).Find(&articles).Error; err != nil {
			return err
		}
		if len(articles) == 0 {
			return fmt.Errorf("facture %d: %w", id, ErrNotFound)
		}

		for _, a := range articles {
			if err := ReleaseStock(tx, a.ProduitID, a.Quantite); err != nil {
				return err
			}
		}

		if err := tx.Where("paiement_id IN (?)",
			tx.Model(&models.Paiement{}).Select("id").Where("facture_id = ?", id),
		).Delete(&models.Versement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("facture_id = ?", id).Delete(&models.Paiement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("facture_id = ?", id).Delete(&models.ArticleFacture{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Facture{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Header vanished between steps: concurrent delete.
			return fmt.Errorf("suppression de la facture %d: %w", id, ErrIntegrity)
		}
		return nil
	})
}

// UpdateStatut changes the invoice status within the allowed set.
func (s *FactureService) UpdateStatut(id uint, statut string) error {
	if !models.AllowedFactureStatut(statut) {
		return validationf(fmt.Sprintf("Statut invalide: %q (valeurs permises: pending, paid, canceled)", statut))
	}
	res := s.db.Model(&models.Facture{}).Where("id = ?", id).Update("statut", statut)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("facture %d: %w", id, ErrNotFound)
	}
	return nil
}

// GarantieAmendement amends the warranty fields of one existing line.
type GarantieAmendement struct {
	ArticleID     uint    `json:"article_id"`
	CodeGarantie  *string `json:"code_garantie,omitempty"`
	DureeGarantie *string `json:"duree_garantie,omitempty"`
}

// PaiementAmendement adds installments to an existing payment method, or
// creates a new method when PaiementID is zero and Methode is given.
type PaiementAmendement struct {
	PaiementID uint             `json:"paiement_id,omitempty"`
	Methode    string           `json:"methode,omitempty"`
	Versements []VersementInput `json:"versements,omitempty"`
}

// AmendFactureInput is the payload of PUT /api/factures/{id}.
type AmendFactureInput struct {
	Garanties []GarantieAmendement `json:"produits,omitempty"`
	Paiements []PaiementAmendement `json:"paiements,omitempty"`
}

// Amend updates warranty fields on existing lines and/or appends
// installments, atomically.
func (s *FactureService) Amend(id uint, in AmendFactureInput) error {
	if len(in.Garanties) == 0 && len(in.Paiements) == 0 {
		return validationf("Aucune donnée valide à mettre à jour")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var facture models.Facture
		if err := tx.First(&facture, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("facture %d: %w", id, ErrNotFound)
			}
			return err
		}

		for _, g := range in.Garanties {
			updates := map[string]any{}
			if g.CodeGarantie != nil {
				if len(*g.CodeGarantie) > garantieMaxLen {
					return validationf(fmt.Sprintf("Le code garantie pour l'article %d est trop long", g.ArticleID))
				}
				updates["code_garantie"] = *g.CodeGarantie
			}
			if g.DureeGarantie != nil {
				if len(*g.DureeGarantie) > garantieMaxLen {
					return validationf(fmt.Sprintf("La durée de garantie pour l'article %d est trop longue", g.ArticleID))
				}
				updates["duree_garantie"] = *g.DureeGarantie
			}
			if len(updates) == 0 {
				continue
			}
			res := tx.Model(&models.ArticleFacture{}).
				Where("id = ? AND facture_id = ?", g.ArticleID, facture.ID).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("article %d pour la facture %d: %w", g.ArticleID, facture.ID, ErrNotFound)
			}
		}

		for _, p := range in.Paiements {
			if p.PaiementID == 0 {
				if _, err := addPaiement(tx, facture.ID, facture.PrixTotal, PaiementInput{Methode: p.Methode, Versements: p.Versements}); err != nil {
					return err
				}
				continue
			}
			for _, v := range p.Versements {
				if err := AddVersement(tx, &facture, p.PaiementID, v); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
