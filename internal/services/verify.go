package services

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/barcode"
	"github.com/merabtenei/gestock/internal/models"
)

const garantieMaxLen = 50

// ProduitRef is a product identifier as supplied by the API: either a
// raw integer id or a 13-digit barcode (decoded first). Resolution is
// deferred to verification so a bad reference becomes a per-line error
// instead of failing the whole decode.
type ProduitRef string

func (r *ProduitRef) UnmarshalJSON(data []byte) error {
	*r = ProduitRef(bytes.Trim(bytes.TrimSpace(data), `"`))
	return nil
}

// Resolve returns the raw product id behind the reference.
func (r ProduitRef) Resolve() (uint, error) {
	s := string(r)
	if len(s) == 13 {
		dec, err := barcode.Decode(s)
		if err != nil {
			return 0, err
		}
		return dec.ID, nil
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("identifiant produit invalide: %q", s)
	}
	return uint(id), nil
}

// LigneDemande is one requested line of a facture.
type LigneDemande struct {
	ProduitID     ProduitRef `json:"produit_id"`
	Quantite      int        `json:"quantite"`
	Prix          float64    `json:"prix"`
	CodeGarantie  string     `json:"code_garantie,omitempty"`
	DureeGarantie string     `json:"duree_garantie,omitempty"`
}

// LigneVerifiee is a validated line ready to persist. Prix is the price
// actually charged; PrixCatalogue is retained for margin reporting only.
type LigneVerifiee struct {
	ProduitID     uint    `json:"produit_id"`
	Nom           string  `json:"nom"`
	Quantite      int     `json:"quantite"`
	Prix          float64 `json:"prix"`
	PrixCatalogue float64 `json:"prix_original"`
	CodeGarantie  string  `json:"code_garantie,omitempty"`
	DureeGarantie string  `json:"duree_garantie,omitempty"`
}

// VerifyLignes validates every requested line against the catalog and
// computes the order total. Errors are accumulated per line so the
// caller can report all problems at once; a non-empty error list means
// the whole batch is rejected. The stock check here is advisory: the
// authoritative check happens in ReserveStock under the same
// transaction.
func VerifyLignes(tx *gorm.DB, lignes []LigneDemande) (total float64, verifiees []LigneVerifiee, errs []string) {
	verifiees = make([]LigneVerifiee, 0, len(lignes))
	for _, l := range lignes {
		produitID, err := l.ProduitID.Resolve()
		if err != nil {
			errs = append(errs, "Chaque produit doit avoir un ID et une quantité valide (nombre positif)")
			continue
		}
		if l.Quantite <= 0 {
			errs = append(errs, "Chaque produit doit avoir un ID et une quantité valide (nombre positif)")
			continue
		}
		if l.Prix <= 0 {
			errs = append(errs, fmt.Sprintf("Prix invalide pour le produit ID %d", produitID))
			continue
		}

		var p models.Produit
		if err := tx.Select("id", "nom", "quantite", "prix_vente").First(&p, produitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				errs = append(errs, fmt.Sprintf("Le produit avec l'ID %d n'existe pas", produitID))
				continue
			}
			errs = append(errs, fmt.Sprintf("Erreur de lecture du produit ID %d", produitID))
			continue
		}
		if p.Quantite < l.Quantite {
			errs = append(errs, "Stock insuffisant pour le produit "+p.Nom)
			continue
		}

		if len(l.CodeGarantie) > garantieMaxLen {
			errs = append(errs, fmt.Sprintf("Le code garantie pour le produit %d est trop long", produitID))
		}
		if len(l.DureeGarantie) > garantieMaxLen {
			errs = append(errs, fmt.Sprintf("La durée de garantie pour le produit %d est trop longue", produitID))
		}

		total += l.Prix * float64(l.Quantite)
		verifiees = append(verifiees, LigneVerifiee{
			ProduitID:     produitID,
			Nom:           p.Nom,
			Quantite:      l.Quantite,
			Prix:          l.Prix,
			PrixCatalogue: p.PrixVente,
			CodeGarantie:  l.CodeGarantie,
			DureeGarantie: l.DureeGarantie,
		})
	}
	return total, verifiees, errs
}
