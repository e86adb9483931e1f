package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/merabtenei/gestock/internal/auth"
	"github.com/merabtenei/gestock/internal/config"
	"github.com/merabtenei/gestock/internal/httpx"
)

// AuthHandler authenticates the single admin account configured through
// the environment and issues the signed session token.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler { return &AuthHandler{Cfg: cfg} }

// Login: POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return
	}
	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		httpx.Fail(w, http.StatusBadRequest, "Nom d'utilisateur et mot de passe requis")
		return
	}
	if h.Cfg.AdminPasswordHash == "" {
		httpx.Fail(w, http.StatusServiceUnavailable, "Authentification non configurée")
		return
	}
	if body.Username != h.Cfg.AdminUser ||
		bcrypt.CompareHashAndPassword([]byte(h.Cfg.AdminPasswordHash), []byte(body.Password)) != nil {
		httpx.Fail(w, http.StatusUnauthorized, "Identifiants invalides")
		return
	}
	token := auth.CreateSession(w, 1)
	httpx.OK(w, http.StatusOK, "Connexion réussie", map[string]string{"token": token})
}

// Logout: POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.OK(w, http.StatusOK, "Déconnexion réussie", nil)
}
