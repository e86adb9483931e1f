package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/httpx"
	"github.com/merabtenei/gestock/internal/models"
)

type ClientHandler struct {
	DB *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler { return &ClientHandler{DB: db} }

// List: GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Order("nom asc")
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(nom) LIKE ? OR lower(telephone) LIKE ?", like, like)
	}
	var clients []models.Client
	if err := dbq.Find(&clients).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la récupération des clients", err)
		return
	}
	httpx.OKCount(w, http.StatusOK, "Clients récupérés avec succès", clients, len(clients))
}

// Get: GET /api/clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant client invalide")
		return
	}
	var c models.Client
	if err := h.DB.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Client introuvable")
			return
		}
		httpx.ServerError(w, "Erreur lors de la lecture du client", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Client récupéré avec succès", c)
}

type clientReq struct {
	Nom            string `json:"nom"`
	Email          string `json:"email"`
	Telephone      string `json:"telephone"`
	Wilaya         string `json:"wilaya"`
	Recommendation string `json:"recommendation"`
}

// Create: POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	if strings.TrimSpace(req.Nom) == "" {
		httpx.Fail(w, http.StatusBadRequest, "Le nom du client est requis")
		return
	}
	c := models.Client{
		Nom:            strings.TrimSpace(req.Nom),
		Email:          req.Email,
		Telephone:      req.Telephone,
		Wilaya:         req.Wilaya,
		Recommendation: req.Recommendation,
	}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la création du client", err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Client créé avec succès", c)
}

// Update: PUT /api/clients/{id}. Pointer fields: absent means unchanged.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant client invalide")
		return
	}
	var c models.Client
	if err := h.DB.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Client introuvable")
			return
		}
		httpx.ServerError(w, "Erreur lors de la lecture du client", err)
		return
	}
	var body struct {
		Nom            *string `json:"nom"`
		Email          *string `json:"email"`
		Telephone      *string `json:"telephone"`
		Wilaya         *string `json:"wilaya"`
		Recommendation *string `json:"recommendation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	if body.Nom != nil {
		if strings.TrimSpace(*body.Nom) == "" {
			httpx.Fail(w, http.StatusBadRequest, "Le nom du client ne peut pas être vide")
			return
		}
		c.Nom = strings.TrimSpace(*body.Nom)
	}
	if body.Email != nil {
		c.Email = *body.Email
	}
	if body.Telephone != nil {
		c.Telephone = *body.Telephone
	}
	if body.Wilaya != nil {
		c.Wilaya = *body.Wilaya
	}
	if body.Recommendation != nil {
		c.Recommendation = *body.Recommendation
	}
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la mise à jour du client", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Client mis à jour avec succès", c)
}

// Delete: DELETE /api/clients/{id}. Refused while factures reference the
// client.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant client invalide")
		return
	}
	var refs int64
	if err := h.DB.Model(&models.Facture{}).Where("client_id = ?", id).Count(&refs).Error; err != nil {
		httpx.ServerError(w, "Erreur lors de la vérification du client", err)
		return
	}
	if refs > 0 {
		httpx.Fail(w, http.StatusConflict, "Client référencé par des factures existantes")
		return
	}
	res := h.DB.Delete(&models.Client{}, id)
	if res.Error != nil {
		httpx.ServerError(w, "Erreur lors de la suppression du client", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Fail(w, http.StatusNotFound, "Client introuvable")
		return
	}
	httpx.OK(w, http.StatusOK, "Client supprimé avec succès", nil)
}
