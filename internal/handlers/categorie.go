package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/httpx"
	"github.com/merabtenei/gestock/internal/models"
)

type CategorieHandler struct {
	DB *gorm.DB
}

func NewCategorieHandler(db *gorm.DB) *CategorieHandler { return &CategorieHandler{DB: db} }

// List: GET /api/categories
func (h *CategorieHandler) List(w http.ResponseWriter, r *http.Request) {
	var cats []models.Categorie
	if err := h.DB.Order("nom asc").Find(&cats).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la récupération des catégories", err)
		return
	}
	httpx.OKCount(w, http.StatusOK, "Catégories récupérées avec succès", cats, len(cats))
}

// Create: POST /api/categories
func (h *CategorieHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nom string `json:"nom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	nom := strings.TrimSpace(body.Nom)
	if nom == "" {
		httpx.Fail(w, http.StatusBadRequest, "Le nom de la catégorie est requis")
		return
	}
	cat := models.Categorie{Nom: nom}
	if err := h.DB.Create(&cat).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la création de la catégorie", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Catégorie créée avec succès", cat)
}

// Update: PUT /api/categories/{id}
func (h *CategorieHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant de catégorie invalide")
		return
	}
	var body struct {
		Nom string `json:"nom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	nom := strings.TrimSpace(body.Nom)
	if nom == "" {
		httpx.Fail(w, http.StatusBadRequest, "Le nom de la catégorie est requis")
		return
	}
	res := h.DB.Model(&models.Categorie{}).Where("id = ?", id).Update("nom", nom)
	if res.Error != nil {
		httpx.ServerError(w, "Erreur lors de la mise à jour de la catégorie", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Fail(w, http.StatusNotFound, "Catégorie introuvable")
		return
	}
	httpx.OK(w, http.StatusOK, "Catégorie mise à jour avec succès", models.Categorie{ID: id, Nom: nom})
}

// Delete: DELETE /api/categories/{id}. Refused while products still
// reference the category.
func (h *CategorieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant de catégorie invalide")
		return
	}
	var refs int64
	if err := h.DB.Model(&models.Produit{}).Where("categorie_id = ?", id).Count(&refs).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la vérification de la catégorie", err)
		return
	}
	if refs > 0 {
		httpx.Fail(w, http.StatusConflict, "Catégorie utilisée par des produits existants")
		return
	}
	res := h.DB.Delete(&models.Categorie{}, id)
	if res.Error != nil {
		httpx.ServerError(w, "Erreur lors de la suppression de la catégorie", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Fail(w, http.StatusNotFound, "Catégorie introuvable")
		return
	}
	httpx.OK(w, http.StatusOK, "Catégorie supprimée avec succès", nil)
}
