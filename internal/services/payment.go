package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/models"
)

// VersementInput is one installment as supplied by the API. Date is
// optional (defaults to now); RecuRef is an opaque receipt reference.
type VersementInput struct {
	Montant float64 `json:"montant"`
	Date    string  `json:"date,omitempty"` // 2006-01-02
	RecuRef string  `json:"recu_ref,omitempty"`
}

// PaiementInput is one payment method with its initial installments.
type PaiementInput struct {
	Methode    string           `json:"methode"`
	Versements []VersementInput `json:"versements,omitempty"`
}

// addPaiement inserts one payment method row with its installments and
// derives its status. Runs inside the caller's transaction.
func addPaiement(tx *gorm.DB, factureID uint, total float64, in PaiementInput) (*models.Paiement, error) {
	if strings.TrimSpace(in.Methode) == "" {
		return nil, validationf("Le mode de paiement est requis")
	}
	p := models.Paiement{FactureID: factureID, Methode: strings.TrimSpace(in.Methode), Statut: models.PaiementStatutPending}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}
	for _, v := range in.Versements {
		if err := insertVersement(tx, p.ID, v); err != nil {
			return nil, err
		}
	}
	if err := recomputePaiementStatuts(tx, factureID, total); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddVersement appends one installment to a payment method that must
// belong to the given facture, then re-derives the payment status.
func AddVersement(tx *gorm.DB, facture *models.Facture, paiementID uint, in VersementInput) error {
	var p models.Paiement
	if err := tx.Where("id = ? AND facture_id = ?", paiementID, facture.ID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("mode de paiement %d pour la facture %d: %w", paiementID, facture.ID, ErrNotFound)
		}
		return err
	}
	if err := insertVersement(tx, p.ID, in); err != nil {
		return err
	}
	return recomputePaiementStatuts(tx, facture.ID, facture.PrixTotal)
}

func insertVersement(tx *gorm.DB, paiementID uint, in VersementInput) error {
	if in.Montant <= 0 {
		return validationf("Le montant du versement doit être positif")
	}
	date := time.Now().UTC()
	if in.Date != "" {
		parsed, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return validationf("Date de versement invalide: " + in.Date)
		}
		date = parsed
	}
	v := models.Versement{PaiementID: paiementID, Montant: in.Montant, Date: date, RecuRef: in.RecuRef}
	return tx.Create(&v).Error
}

// recomputePaiementStatuts sums installments across all of the facture's
// payment methods, compares against the invoice total, and stores the
// derived status on every method row. Not maintained by a trigger; the
// orchestrator calls this after every installment insert.
func recomputePaiementStatuts(tx *gorm.DB, factureID uint, total float64) error {
	var paid float64
	err := tx.Model(&models.Versement{}).
		Joins("JOIN paiements ON paiements.id = versements.paiement_id").
		Where("paiements.facture_id = ?", factureID).
		Select("COALESCE(SUM(versements.montant), 0)").
		Scan(&paid).Error
	if err != nil {
		return err
	}
	statut := models.PaiementStatutPending
	switch {
	case paid >= total && total > 0:
		statut = models.PaiementStatutCompleted
	case paid > 0:
		statut = models.PaiementStatutPartial
	}
	return tx.Model(&models.Paiement{}).
		Where("facture_id = ?", factureID).
		UpdateColumn("statut", statut).Error
}
