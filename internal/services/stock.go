package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/models"
)

// ReserveStock decrements a product's on-hand quantity inside the
// caller's transaction. The quantity check and the decrement are one
// conditional UPDATE, so two concurrent sales cannot both pass a stale
// check. Returns StockError when the stock is insufficient and
// ErrNotFound when the product does not exist.
func ReserveStock(tx *gorm.DB, produitID uint, quantite int) error {
	if quantite <= 0 {
		return validationf(fmt.Sprintf("Quantité invalide pour le produit ID %d", produitID))
	}
	res := tx.Model(&models.Produit{}).
		Where("id = ? AND quantite >= ?", produitID, quantite).
		UpdateColumn("quantite", gorm.Expr("quantite - ?", quantite))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	// Zero rows: the product is missing or the stock is short.
	var p models.Produit
	if err := tx.Select("id", "nom").First(&p, produitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("produit %d: %w", produitID, ErrNotFound)
		}
		return err
	}
	return &StockError{ProduitNom: p.Nom}
}

// ReleaseStock is the symmetric increment, used when a facture is
// deleted. A missing product here is a data-integrity signal, not a
// business condition, so it aborts the whole operation.
func ReleaseStock(tx *gorm.DB, produitID uint, quantite int) error {
	if quantite <= 0 {
		return validationf(fmt.Sprintf("Quantité invalide pour le produit ID %d", produitID))
	}
	res := tx.Model(&models.Produit{}).
		Where("id = ?", produitID).
		UpdateColumn("quantite", gorm.Expr("quantite + ?", quantite))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("produit %d introuvable lors de la restauration du stock: %w", produitID, ErrIntegrity)
	}
	return nil
}
