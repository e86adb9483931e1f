package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/barcode"
	"github.com/merabtenei/gestock/internal/httpx"
	"github.com/merabtenei/gestock/internal/models"
	"github.com/merabtenei/gestock/internal/services"
	"github.com/merabtenei/gestock/internal/validation"
)

type ProduitHandler struct {
	DB *gorm.DB
}

func NewProduitHandler(db *gorm.DB) *ProduitHandler { return &ProduitHandler{DB: db} }

// produitVue is a catalog row plus its EAN-13 code.
type produitVue struct {
	models.Produit
	CodeBarre string `json:"code_barre"`
}

func toProduitVue(p models.Produit) produitVue {
	code, _ := barcode.Encode(int64(p.ID))
	return produitVue{Produit: p, CodeBarre: code}
}

// List: GET /api/produits
func (h *ProduitHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("id desc")
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(nom) LIKE ? OR lower(marque) LIKE ? OR lower(reference) LIKE ?", like, like, like)
	}
	var produits []models.Produit
	if err := dbq.Find(&produits).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la récupération des produits", err)
		return
	}
	vues := make([]produitVue, 0, len(produits))
	for _, p := range produits {
		vues = append(vues, toProduitVue(p))
	}
	httpx.OKCount(w, http.StatusOK, "Produits récupérés avec succès", vues, len(vues))
}

// Get: GET /api/produits/{id}, accepts a raw id or a 13-digit barcode.
func (h *ProduitHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := services.ProduitRef(r.PathValue("id")).Resolve()
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant produit invalide")
		return
	}
	var p models.Produit
	if err := h.DB.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Produit introuvable")
			return
		}
		httpx.ServerError(w, "Erreur lors de la lecture du produit", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Produit récupéré avec succès", toProduitVue(p))
}

type produitReq struct {
	Nom           string   `json:"nom"`
	Marque        string   `json:"marque"`
	Description   string   `json:"description"`
	CPU           string   `json:"cpu"`
	CPUGeneration string   `json:"cpu_generation"`
	CPUType       string   `json:"cpu_type"`
	RAM           string   `json:"ram"`
	EcranPouce    *float64 `json:"ecran_pouce"`
	EcranTactile  *bool    `json:"ecran_tactile"`
	EcranType     string   `json:"ecran_type"`
	StockageSSD   string   `json:"stockage_ssd"`
	StockageHDD   string   `json:"stockage_hdd"`
	GPU1          string   `json:"gpu_1"`
	GPU2          string   `json:"gpu_2"`
	Batterie      string   `json:"batterie"`
	CodeAmoire    string   `json:"code_amoire"`
	PrixAchat     float64  `json:"prix_achat"`
	PrixVente     float64  `json:"prix_vente"`
	Reference     *string  `json:"reference"`
	Etat          string   `json:"etat"`
	Quantite      int      `json:"quantite"`
	CategorieID   *uint    `json:"categorie_id"`
}

// Create: POST /api/produits
func (h *ProduitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req produitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	v := validation.Violations{}
	validation.Required("nom", req.Nom, v)
	validation.PositiveFloat("prix_achat", req.PrixAchat, v)
	validation.PositiveFloat("prix_vente", req.PrixVente, v)
	validation.MaxLen("code_amoire", req.CodeAmoire, 50, v)
	if req.Quantite < 0 {
		v["quantite"] = "must_not_be_negative"
	}
	if req.Etat != "" && req.Etat != models.EtatNeuf && req.Etat != models.EtatOccasion && req.Etat != models.EtatReconditionne {
		v["etat"] = "invalid"
	}
	if !v.Empty() {
		httpx.JSON(w, http.StatusBadRequest, httpx.Response{Success: false, Message: "Champs produit invalides", Data: v})
		return
	}
	if req.CategorieID != nil {
		var cat models.Categorie
		if err := h.DB.Select("id").First(&cat, *req.CategorieID).Error; err != nil {
			httpx.Fail(w, http.StatusBadRequest, "Catégorie inexistante")
			return
		}
	}
	p := models.Produit{
		Nom:           strings.TrimSpace(req.Nom),
		Marque:        req.Marque,
		Description:   req.Description,
		CPU:           req.CPU,
		CPUGeneration: req.CPUGeneration,
		CPUType:       req.CPUType,
		RAM:           req.RAM,
		EcranPouce:    req.EcranPouce,
		EcranTactile:  req.EcranTactile,
		EcranType:     req.EcranType,
		StockageSSD:   req.StockageSSD,
		StockageHDD:   req.StockageHDD,
		GPU1:          req.GPU1,
		GPU2:          req.GPU2,
		Batterie:      req.Batterie,
		CodeAmoire:    req.CodeAmoire,
		PrixAchat:     req.PrixAchat,
		PrixVente:     req.PrixVente,
		Reference:     normalizeReference(req.Reference),
		Etat:          req.Etat,
		Quantite:      req.Quantite,
		CategorieID:   req.CategorieID,
	}
	if p.Etat == "" {
		p.Etat = models.EtatNeuf
	}
	if err := h.DB.Create(&p).Error; err != nil {
		if services.IsDuplicateErr(err) {
			httpx.Fail(w, http.StatusConflict, "Un produit avec cette référence existe déjà")
			return
		}
		httpx.ServerError(w, "Erreur lors de la création du produit", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Produit créé avec succès", toProduitVue(p))
}

// Update: PUT /api/produits/{id}. Pointer fields: a field absent from
// the body (or null) leaves the column unchanged.
func (h *ProduitHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant produit invalide")
		return
	}
	var p models.Produit
	if err := h.DB.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Produit introuvable")
			return
		}
		httpx.ServerError(w, "Erreur lors de la lecture du produit", err)
		return
	}
	var body struct {
		Nom           *string  `json:"nom"`
		Marque        *string  `json:"marque"`
		Description   *string  `json:"description"`
		CPU           *string  `json:"cpu"`
		CPUGeneration *string  `json:"cpu_generation"`
		CPUType       *string  `json:"cpu_type"`
		RAM           *string  `json:"ram"`
		EcranPouce    *float64 `json:"ecran_pouce"`
		EcranTactile  *bool    `json:"ecran_tactile"`
		EcranType     *string  `json:"ecran_type"`
		StockageSSD   *string  `json:"stockage_ssd"`
		StockageHDD   *string  `json:"stockage_hdd"`
		GPU1          *string  `json:"gpu_1"`
		GPU2          *string  `json:"gpu_2"`
		Batterie      *string  `json:"batterie"`
		CodeAmoire    *string  `json:"code_amoire"`
		PrixAchat     *float64 `json:"prix_achat"`
		PrixVente     *float64 `json:"prix_vente"`
		Reference     *string  `json:"reference"`
		Etat          *string  `json:"etat"`
		Quantite      *int     `json:"quantite"`
		CategorieID   *uint    `json:"categorie_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	if body.Nom != nil {
		if strings.TrimSpace(*body.Nom) == "" {
			httpx.Fail(w, http.StatusBadRequest, "Le nom du produit ne peut pas être vide")
			return
		}
		p.Nom = strings.TrimSpace(*body.Nom)
	}
	if body.Marque != nil {
		p.Marque = *body.Marque
	}
	if body.Description != nil {
		p.Description = *body.Description
	}
	if body.CPU != nil {
		p.CPU = *body.CPU
	}
	if body.CPUGeneration != nil {
		p.CPUGeneration = *body.CPUGeneration
	}
	if body.CPUType != nil {
		p.CPUType = *body.CPUType
	}
	if body.RAM != nil {
		p.RAM = *body.RAM
	}
	if body.EcranPouce != nil {
		p.EcranPouce = body.EcranPouce
	}
	if body.EcranTactile != nil {
		p.EcranTactile = body.EcranTactile
	}
	if body.EcranType != nil {
		p.EcranType = *body.EcranType
	}
	if body.StockageSSD != nil {
		p.StockageSSD = *body.StockageSSD
	}
	if body.StockageHDD != nil {
		p.StockageHDD = *body.StockageHDD
	}
	if body.GPU1 != nil {
		p.GPU1 = *body.GPU1
	}
	if body.GPU2 != nil {
		p.GPU2 = *body.GPU2
	}
	if body.Batterie != nil {
		p.Batterie = *body.Batterie
	}
	if body.CodeAmoire != nil {
		if len(*body.CodeAmoire) > 50 {
			httpx.Fail(w, http.StatusBadRequest, "Le code armoire est trop long")
			return
		}
		p.CodeAmoire = *body.CodeAmoire
	}
	if body.PrixAchat != nil {
		if *body.PrixAchat <= 0 {
			httpx.Fail(w, http.StatusBadRequest, "Le prix d'achat doit être positif")
			return
		}
		p.PrixAchat = *body.PrixAchat
	}
	if body.PrixVente != nil {
		if *body.PrixVente <= 0 {
			httpx.Fail(w, http.StatusBadRequest, "Le prix de vente doit être positif")
			return
		}
		p.PrixVente = *body.PrixVente
	}
	if body.Reference != nil {
		p.Reference = normalizeReference(body.Reference)
	}
	if body.Etat != nil {
		if *body.Etat != models.EtatNeuf && *body.Etat != models.EtatOccasion && *body.Etat != models.EtatReconditionne {
			httpx.Fail(w, http.StatusBadRequest, "État produit invalide")
			return
		}
		p.Etat = *body.Etat
	}
	if body.Quantite != nil {
		if *body.Quantite < 0 {
			httpx.Fail(w, http.StatusBadRequest, "La quantité ne peut pas être négative")
			return
		}
		p.Quantite = *body.Quantite
	}
	if body.CategorieID != nil {
		var cat models.Categorie
		if err := h.DB.Select("id").First(&cat, *body.CategorieID).Error; err != nil {
			httpx.Fail(w, http.StatusBadRequest, "Catégorie inexistante")
			return
		}
		p.CategorieID = body.CategorieID
	}
	if err := h.DB.Save(&p).Error; err != nil {
		if services.IsDuplicateErr(err) {
			httpx.Fail(w, http.StatusConflict, "Un produit avec cette référence existe déjà")
			return
		}
		httpx.ServerError(w, "Erreur lors de la mise à jour du produit", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Produit mis à jour avec succès", toProduitVue(p))
}

// Delete: DELETE /api/produits/{id}. Refused while the product appears
// on a facture line, deleting it would break stock restoration.
func (h *ProduitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant produit invalide")
		return
	}
	var refs int64
	if err := h.DB.Model(&models.ArticleFacture{}).Where("produit_id = ?", id).Count(&refs).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la vérification du produit", err)
		return
	}
	if refs > 0 {
		httpx.Fail(w, http.StatusConflict, "Produit référencé par des factures existantes")
		return
	}
	res := h.DB.Delete(&models.Produit{}, id)
	if res.Error != nil {
		httpx.ServerError(w, "Erreur lors de la suppression du produit", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Fail(w, http.StatusNotFound, "Produit introuvable")
		return
	}
	httpx.OK(w, http.StatusOK, "Produit supprimé avec succès", nil)
}

func normalizeReference(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
