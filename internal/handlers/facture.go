package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/merabtenei/gestock/internal/httpx"
	"github.com/merabtenei/gestock/internal/services"
)

// FactureHandler exposes the facture lifecycle over JSON.
type FactureHandler struct {
	Svc *services.FactureService
}

func NewFactureHandler(svc *services.FactureService) *FactureHandler {
	return &FactureHandler{Svc: svc}
}

// writeServiceError maps service errors to envelope responses. notFound
// is the user-facing message for the NotFound case.
func writeServiceError(w http.ResponseWriter, err error, notFound, fallback string) {
	var verr *services.ValidationError
	var serr *services.StockError
	switch {
	case errors.As(err, &verr):
		httpx.Fail(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &serr):
		httpx.Fail(w, http.StatusBadRequest, serr.Error())
	case errors.Is(err, services.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, notFound)
	default:
		httpx.ServerError(w, fallback, err)
	}
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// List: GET /api/factures
func (h *FactureHandler) List(w http.ResponseWriter, r *http.Request) {
	vues, err := h.Svc.List()
	if err != nil {
		httpx.ServerError(w, "Erreur lors de la récupération des factures", err)
		return
	}
	if len(vues) == 0 {
		httpx.FailEmpty(w, http.StatusNotFound, "Aucune facture trouvée")
		return
	}
	httpx.OKCount(w, http.StatusOK, "Factures récupérées avec succès", vues, len(vues))
}

type createFactureReq struct {
	ClientID          uint                      `json:"client_id"`
	Produits          []services.LigneDemande   `json:"produits"`
	TypeVente         string                    `json:"type_vente,omitempty"`
	ModeVente         string                    `json:"mode_vente,omitempty"`
	LivraisonPar      string                    `json:"livraison_par,omitempty"`
	LivraisonPrix     float64                   `json:"livraison_prix,omitempty"`
	LivraisonCode     string                    `json:"livraison_code,omitempty"`
	RemarqueVersement string                    `json:"remarque_versement,omitempty"`
	Commentaire       string                    `json:"commentaire,omitempty"`
	Paiements         []services.PaiementInput  `json:"paiements,omitempty"`
	Client            *services.ClientInput     `json:"client,omitempty"`
}

func (req createFactureReq) toInput(withClient bool) services.CreateFactureInput {
	in := services.CreateFactureInput{
		ClientID:          req.ClientID,
		Produits:          req.Produits,
		TypeVente:         req.TypeVente,
		ModeVente:         req.ModeVente,
		LivraisonPar:      req.LivraisonPar,
		LivraisonPrix:     req.LivraisonPrix,
		LivraisonCode:     req.LivraisonCode,
		RemarqueVersement: req.RemarqueVersement,
		Commentaire:       req.Commentaire,
		Paiements:         req.Paiements,
	}
	if withClient {
		in.Client = req.Client
	}
	return in
}

// Create: POST /api/factures, a sale to an existing client.
func (h *FactureHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFactureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	vue, err := h.Svc.Create(req.toInput(false))
	if err != nil {
		writeServiceError(w, err, "Client introuvable", "Erreur lors de la création de la facture")
		return
	}
	httpx.OK(w, http.StatusCreated, "Facture créée avec succès", vue)
}

// CreateWithClient: POST /api/factures/with-client. The client record is
// created in the same transaction as the facture.
func (h *FactureHandler) CreateWithClient(w http.ResponseWriter, r *http.Request) {
	var req createFactureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	if req.Client == nil {
		httpx.Fail(w, http.StatusBadRequest, "Un client (avec au moins un nom) est requis")
		return
	}
	vue, err := h.Svc.Create(req.toInput(true))
	if err != nil {
		writeServiceError(w, err, "Client introuvable", "Erreur lors de la création de la facture")
		return
	}
	httpx.OK(w, http.StatusCreated, "Facture et client créés avec succès", vue)
}

// Amend: PUT /api/factures/{id}, warranty fields and/or installments.
func (h *FactureHandler) Amend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant de facture invalide")
		return
	}
	var in services.AmendFactureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	if err := h.Svc.Amend(id, in); err != nil {
		writeServiceError(w, err, "Facture introuvable", "Erreur lors de la mise à jour de la facture")
		return
	}
	vue, err := h.Svc.Get(id)
	if err != nil {
		httpx.ServerError(w, "Erreur lors de la relecture de la facture", err)
		return
	}
	httpx.OK(w, http.StatusOK, "Facture mise à jour avec succès", vue)
}

// UpdateStatus: PUT /api/factures/status/{id}
func (h *FactureHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant de facture invalide")
		return
	}
	var body struct {
		Statut string `json:"statut"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	if err := h.Svc.UpdateStatut(id, body.Statut); err != nil {
		writeServiceError(w, err, "Facture introuvable", "Erreur lors de la mise à jour du statut")
		return
	}
	httpx.OK(w, http.StatusOK, "Statut de la facture mis à jour avec succès", map[string]any{"id": id, "statut": body.Statut})
}

// Delete: DELETE /api/factures/{id}. Restores the stock of every line.
func (h *FactureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "Identifiant de facture invalide")
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		writeServiceError(w, err, "Facture introuvable", "Erreur lors de la suppression de la facture")
		return
	}
	httpx.OK(w, http.StatusOK, "Facture supprimée avec succès", nil)
}
