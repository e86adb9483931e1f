package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/models"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Categorie{}, &models.Produit{}, &models.Client{}, &models.Facture{}, &models.ArticleFacture{}, &models.Paiement{}, &models.Versement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedClient(t *testing.T, db *gorm.DB, nom string) models.Client {
	t.Helper()
	c := models.Client{Nom: nom}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func seedProduit(t *testing.T, db *gorm.DB, nom string, quantite int, prixVente float64) models.Produit {
	t.Helper()
	p := models.Produit{Nom: nom, PrixAchat: prixVente * 0.8, PrixVente: prixVente, Quantite: quantite, Etat: models.EtatNeuf}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("produit: %v", err)
	}
	return p
}

func produitQuantite(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Produit
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("reload produit: %v", err)
	}
	return p.Quantite
}

func ligne(produitID uint, quantite int, prix float64) LigneDemande {
	return LigneDemande{ProduitID: ProduitRef(fmt.Sprintf("%d", produitID)), Quantite: quantite, Prix: prix}
}

func TestCreateFactureDecrementsStockAndComputesTotal(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Latitude 7420", 5, 180)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 2, 150)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if vue.PrixTotal != "300.00" {
		t.Fatalf("prix_total = %s, want 300.00", vue.PrixTotal)
	}
	if vue.NomClient != "Ali" {
		t.Fatalf("nom_client = %s", vue.NomClient)
	}
	if len(vue.Produits) != 1 || vue.Produits[0].Quantite != 2 || vue.Produits[0].Prix != "150.00" {
		t.Fatalf("unexpected lines: %#v", vue.Produits)
	}
	if got := produitQuantite(t, db, produit.ID); got != 3 {
		t.Fatalf("stock after sale = %d, want 3", got)
	}
	if !strings.HasPrefix(vue.Code, "FAC") || len(vue.Code) != 15 {
		t.Fatalf("code format: %q", vue.Code)
	}
	if vue.Statut != models.FactureStatutPending {
		t.Fatalf("statut = %s", vue.Statut)
	}
}

func TestCreateFactureRetriesOnCodeCollision(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Latitude", 5, 150)
	svc := NewFactureService(db)

	// One existing header makes the generator compute sequence 0002.
	// Seeding that exact code forces the unique index to reject the
	// first insert, so creation must fall back to a random sequence.
	taken := fmt.Sprintf("FAC%s%04d", time.Now().UTC().Format("20060102"), 2)
	seed := models.Facture{Code: taken, ClientID: client.ID, PrixTotal: 10}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed facture: %v", err)
	}

	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 1, 150)},
	})
	if err != nil {
		t.Fatalf("create after collision: %v", err)
	}
	if vue.Code == taken {
		t.Fatalf("code %s reused despite unique index", vue.Code)
	}
	if !strings.HasPrefix(vue.Code, "FAC") || len(vue.Code) != 15 {
		t.Fatalf("fallback code format: %q", vue.Code)
	}
	if got := produitQuantite(t, db, produit.ID); got != 4 {
		t.Fatalf("stock after retried create = %d, want 4", got)
	}
}

func TestCreateFactureSnapshotsChargedPrice(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Samir")
	produit := seedProduit(t, db, "ThinkPad T14", 4, 250)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 1, 199.99)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// The charged price is taken from the request, not the catalog.
	if vue.Produits[0].Prix != "199.99" {
		t.Fatalf("prix = %s, want 199.99", vue.Produits[0].Prix)
	}
	if vue.Produits[0].PrixVente != "250.00" {
		t.Fatalf("prix_vente = %s, want 250.00", vue.Produits[0].PrixVente)
	}

	var article models.ArticleFacture
	if err := db.Where("facture_id = ?", vue.ID).First(&article).Error; err != nil {
		t.Fatalf("load article: %v", err)
	}
	if article.Prix != 199.99 {
		t.Fatalf("persisted prix = %v", article.Prix)
	}
}

func TestCreateFactureInsufficientStock(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Yacine")
	produit := seedProduit(t, db, "XPS 13", 1, 300)
	svc := NewFactureService(db)

	_, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 2, 300)},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "Stock insuffisant pour le produit XPS 13") {
		t.Fatalf("message: %v", err)
	}
	if got := produitQuantite(t, db, produit.ID); got != 1 {
		t.Fatalf("stock mutated to %d on failed create", got)
	}
	var count int64
	db.Model(&models.Facture{}).Count(&count)
	if count != 0 {
		t.Fatalf("facture persisted on failure: %d rows", count)
	}
}

func TestCreateFactureAtomicAcrossLines(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Nadia")
	ok := seedProduit(t, db, "Souris", 10, 20)
	short := seedProduit(t, db, "Clavier", 1, 50)
	svc := NewFactureService(db)

	_, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{
			ligne(ok.ID, 3, 20),
			ligne(short.ID, 2, 50),
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	// Nothing from line 1 must survive the failure of line 2.
	if got := produitQuantite(t, db, ok.ID); got != 10 {
		t.Fatalf("line 1 stock mutated to %d", got)
	}
	if got := produitQuantite(t, db, short.ID); got != 1 {
		t.Fatalf("line 2 stock mutated to %d", got)
	}
	var factures, articles int64
	db.Model(&models.Facture{}).Count(&factures)
	db.Model(&models.ArticleFacture{}).Count(&articles)
	if factures != 0 || articles != 0 {
		t.Fatalf("partial persistence: factures=%d articles=%d", factures, articles)
	}
}

func TestCreateFactureCollectsAllLineErrors(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Karim")
	svc := NewFactureService(db)

	_, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{
			{ProduitID: "999", Quantite: 1, Prix: 100}, // inexistant
			{ProduitID: "abc", Quantite: 1, Prix: 100}, // identifiant invalide
			{ProduitID: "1", Quantite: 1, Prix: -5},    // prix invalide
		},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Messages) != 3 {
		t.Fatalf("expected 3 collected messages, got %d: %v", len(verr.Messages), verr.Messages)
	}
}

func TestCreateFactureRejectsEmptyLines(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Vide")
	svc := NewFactureService(db)

	var verr *ValidationError
	if _, err := svc.Create(CreateFactureInput{ClientID: client.ID}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateFactureUnknownClient(t *testing.T) {
	db := setupServiceTestDB(t)
	produit := seedProduit(t, db, "Ecran", 3, 90)
	svc := NewFactureService(db)

	_, err := svc.Create(CreateFactureInput{
		ClientID: 42,
		Produits: []LigneDemande{ligne(produit.ID, 1, 90)},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := produitQuantite(t, db, produit.ID); got != 3 {
		t.Fatalf("stock mutated: %d", got)
	}
}

func TestCreateFactureWithInlineClient(t *testing.T) {
	db := setupServiceTestDB(t)
	produit := seedProduit(t, db, "Station", 2, 500)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		Client:   &ClientInput{Nom: "Meriem", Wilaya: "Alger"},
		Produits: []LigneDemande{ligne(produit.ID, 1, 480)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if vue.NomClient != "Meriem" {
		t.Fatalf("nom_client = %s", vue.NomClient)
	}
	var c models.Client
	if err := db.First(&c, vue.ClientID).Error; err != nil {
		t.Fatalf("client row: %v", err)
	}
	if c.Wilaya != "Alger" {
		t.Fatalf("wilaya = %s", c.Wilaya)
	}

	// Inline client without a name is rejected before any write.
	if _, err := svc.Create(CreateFactureInput{
		Client:   &ClientInput{Nom: "  "},
		Produits: []LigneDemande{ligne(produit.ID, 1, 480)},
	}); err == nil {
		t.Fatal("expected validation error for nameless client")
	}
}

func TestCreateFactureAcceptsBarcodeReferences(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Walid")
	produit := seedProduit(t, db, "Dock", 6, 70)
	svc := NewFactureService(db)

	code := encodeBarcode(t, produit.ID)
	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{{ProduitID: ProduitRef(code), Quantite: 1, Prix: 70}},
	})
	if err != nil {
		t.Fatalf("create via barcode: %v", err)
	}
	if vue.Produits[0].ProduitID != produit.ID {
		t.Fatalf("resolved produit %d, want %d", vue.Produits[0].ProduitID, produit.ID)
	}
	if got := produitQuantite(t, db, produit.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestDeleteFactureRestoresStockAndIsIdempotent(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Latitude", 5, 150)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		ClientID:  client.ID,
		Produits:  []LigneDemande{ligne(produit.ID, 2, 150)},
		Paiements: []PaiementInput{{Methode: "espèces", Versements: []VersementInput{{Montant: 100}}}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := produitQuantite(t, db, produit.ID); got != 3 {
		t.Fatalf("stock after create = %d", got)
	}

	if err := svc.Delete(vue.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := produitQuantite(t, db, produit.ID); got != 5 {
		t.Fatalf("stock after delete = %d, want 5", got)
	}
	var articles, paiements, versements int64
	db.Model(&models.ArticleFacture{}).Count(&articles)
	db.Model(&models.Paiement{}).Count(&paiements)
	db.Model(&models.Versement{}).Count(&versements)
	if articles != 0 || paiements != 0 || versements != 0 {
		t.Fatalf("cascade incomplete: articles=%d paiements=%d versements=%d", articles, paiements, versements)
	}

	// Second delete is a no-op NotFound; the stock stays put.
	if err := svc.Delete(vue.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if got := produitQuantite(t, db, produit.ID); got != 5 {
		t.Fatalf("stock after double delete = %d", got)
	}
}

func TestDeleteFactureMissingProductIsIntegrityError(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Latitude", 5, 150)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 1, 150)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// The product vanishing under a live facture violates the protocol.
	if err := db.Delete(&models.Produit{}, produit.ID).Error; err != nil {
		t.Fatalf("drop produit: %v", err)
	}
	if err := svc.Delete(vue.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestTotalMatchesPersistedLines(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	p1 := seedProduit(t, db, "A", 10, 10)
	p2 := seedProduit(t, db, "B", 10, 10)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{
			ligne(p1.ID, 3, 19.99),
			ligne(p2.ID, 1, 45.5),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if vue.PrixTotal != "105.47" {
		t.Fatalf("prix_total = %s, want 105.47", vue.PrixTotal)
	}

	var articles []models.ArticleFacture
	if err := db.Where("facture_id = ?", vue.ID).Find(&articles).Error; err != nil {
		t.Fatalf("load articles: %v", err)
	}
	var sum float64
	for _, a := range articles {
		sum += a.Prix * float64(a.Quantite)
	}
	var f models.Facture
	if err := db.First(&f, vue.ID).Error; err != nil {
		t.Fatalf("load facture: %v", err)
	}
	if money(sum) != money(f.PrixTotal) {
		t.Fatalf("stored total %s != line sum %s", money(f.PrixTotal), money(sum))
	}
}

func TestUpdateStatut(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Latitude", 5, 150)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 1, 150)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UpdateStatut(vue.ID, models.FactureStatutPaid); err != nil {
		t.Fatalf("update statut: %v", err)
	}
	var f models.Facture
	if err := db.First(&f, vue.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if f.Statut != models.FactureStatutPaid {
		t.Fatalf("statut = %s", f.Statut)
	}

	var verr *ValidationError
	if err := svc.UpdateStatut(vue.ID, "expédiée"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown statut, got %v", err)
	}
	if err := svc.UpdateStatut(9999, models.FactureStatutPaid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPaymentStatusDerivation(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Serveur", 10, 1000)
	svc := NewFactureService(db)

	// Total 1000.00, no installment yet.
	vue, err := svc.Create(CreateFactureInput{
		ClientID:  client.ID,
		Produits:  []LigneDemande{ligne(produit.ID, 1, 1000)},
		Paiements: []PaiementInput{{Methode: "virement"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := vue.Paiements[0].Statut; got != models.PaiementStatutPending {
		t.Fatalf("statut sans versement = %s, want pending", got)
	}
	paiementID := vue.Paiements[0].ID

	// 400 paid -> partial.
	if err := svc.Amend(vue.ID, AmendFactureInput{Paiements: []PaiementAmendement{
		{PaiementID: paiementID, Versements: []VersementInput{{Montant: 400, Date: "2025-03-01"}}},
	}}); err != nil {
		t.Fatalf("amend 400: %v", err)
	}
	reloaded, err := svc.Get(vue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := reloaded.Paiements[0].Statut; got != models.PaiementStatutPartial {
		t.Fatalf("statut à 400/1000 = %s, want partial", got)
	}

	// 1000+ paid -> completed.
	if err := svc.Amend(vue.ID, AmendFactureInput{Paiements: []PaiementAmendement{
		{PaiementID: paiementID, Versements: []VersementInput{{Montant: 700, RecuRef: "RECU-77"}}},
	}}); err != nil {
		t.Fatalf("amend 700: %v", err)
	}
	reloaded, err = svc.Get(vue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := reloaded.Paiements[0].Statut; got != models.PaiementStatutCompleted {
		t.Fatalf("statut à 1100/1000 = %s, want completed", got)
	}
	if got := reloaded.Paiements[0].Versements[1].RecuRef; got != "RECU-77" {
		t.Fatalf("recu_ref = %s", got)
	}
}

func TestAmendRejectsForeignPaymentMethod(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "NAS", 10, 300)
	svc := NewFactureService(db)

	first, err := svc.Create(CreateFactureInput{
		ClientID:  client.ID,
		Produits:  []LigneDemande{ligne(produit.ID, 1, 300)},
		Paiements: []PaiementInput{{Methode: "carte"}},
	})
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	second, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 1, 300)},
	})
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}

	// A payment method of facture 1 cannot be amended through facture 2.
	err = svc.Amend(second.ID, AmendFactureInput{Paiements: []PaiementAmendement{
		{PaiementID: first.Paiements[0].ID, Versements: []VersementInput{{Montant: 50}}},
	}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAmendWarrantyFields(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Latitude", 5, 150)
	svc := NewFactureService(db)

	vue, err := svc.Create(CreateFactureInput{
		ClientID: client.ID,
		Produits: []LigneDemande{ligne(produit.ID, 1, 150)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	code := "GAR-2025-001"
	duree := "12 mois"
	if err := svc.Amend(vue.ID, AmendFactureInput{Garanties: []GarantieAmendement{
		{ArticleID: vue.Produits[0].ArticleID, CodeGarantie: &code, DureeGarantie: &duree},
	}}); err != nil {
		t.Fatalf("amend: %v", err)
	}

	var article models.ArticleFacture
	if err := db.First(&article, vue.Produits[0].ArticleID).Error; err != nil {
		t.Fatalf("reload article: %v", err)
	}
	if article.CodeGarantie != code || article.DureeGarantie != duree {
		t.Fatalf("garantie not amended: %#v", article)
	}

	tooLong := strings.Repeat("x", 51)
	var verr *ValidationError
	if err := svc.Amend(vue.ID, AmendFactureInput{Garanties: []GarantieAmendement{
		{ArticleID: vue.Produits[0].ArticleID, CodeGarantie: &tooLong},
	}}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for long code, got %v", err)
	}

	if err := svc.Amend(9999, AmendFactureInput{Garanties: []GarantieAmendement{
		{ArticleID: 1, CodeGarantie: &code},
	}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing facture, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	db := setupServiceTestDB(t)
	client := seedClient(t, db, "Ali")
	produit := seedProduit(t, db, "Latitude", 10, 150)
	svc := NewFactureService(db)

	first, err := svc.Create(CreateFactureInput{ClientID: client.ID, Produits: []LigneDemande{ligne(produit.ID, 1, 150)}})
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	second, err := svc.Create(CreateFactureInput{ClientID: client.ID, Produits: []LigneDemande{ligne(produit.ID, 1, 150)}})
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}

	vues, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(vues) != 2 {
		t.Fatalf("len = %d", len(vues))
	}
	if vues[0].ID != second.ID || vues[1].ID != first.ID {
		t.Fatalf("order: got %d,%d want %d,%d", vues[0].ID, vues[1].ID, second.ID, first.ID)
	}
	if vues[0].Produits == nil {
		t.Fatal("produits list must never be nil")
	}
}
