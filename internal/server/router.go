package server

import (
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/merabtenei/gestock/internal/auth"
	"github.com/merabtenei/gestock/internal/config"
	"github.com/merabtenei/gestock/internal/handlers"
	"github.com/merabtenei/gestock/internal/httpx"
	"github.com/merabtenei/gestock/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Only login is reachable without a session token.
	ah := handlers.NewAuthHandler(cfg)
	mux.HandleFunc("POST /api/auth/login", ah.Login)

	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}

	mux.Handle("POST /api/auth/logout", protect(ah.Logout))

	// Facture lifecycle
	fh := handlers.NewFactureHandler(services.NewFactureService(db))
	mux.Handle("GET /api/factures", protect(fh.List))
	mux.Handle("POST /api/factures", protect(fh.Create))
	mux.Handle("POST /api/factures/with-client", protect(fh.CreateWithClient))
	mux.Handle("PUT /api/factures/status/{id}", protect(fh.UpdateStatus))
	mux.Handle("PUT /api/factures/{id}", protect(fh.Amend))
	mux.Handle("DELETE /api/factures/{id}", protect(fh.Delete))

	// Catalog
	ph := handlers.NewProduitHandler(db)
	mux.Handle("GET /api/produits", protect(ph.List))
	mux.Handle("POST /api/produits", protect(ph.Create))
	mux.Handle("GET /api/produits/{id}", protect(ph.Get))
	mux.Handle("PUT /api/produits/{id}", protect(ph.Update))
	mux.Handle("DELETE /api/produits/{id}", protect(ph.Delete))

	ch := handlers.NewCategorieHandler(db)
	mux.Handle("GET /api/categories", protect(ch.List))
	mux.Handle("POST /api/categories", protect(ch.Create))
	mux.Handle("PUT /api/categories/{id}", protect(ch.Update))
	mux.Handle("DELETE /api/categories/{id}", protect(ch.Delete))

	clh := handlers.NewClientHandler(db)
	mux.Handle("GET /api/clients", protect(clh.List))
	mux.Handle("POST /api/clients", protect(clh.Create))
	mux.Handle("GET /api/clients/{id}", protect(clh.Get))
	mux.Handle("PUT /api/clients/{id}", protect(clh.Update))
	mux.Handle("DELETE /api/clients/{id}", protect(clh.Delete))

	return withRecover(withLogging(mux))
}

// statusWriter captures the response code for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, sw.status, time.Since(start).Round(time.Millisecond))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic sur %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.Fail(w, http.StatusInternalServerError, "Erreur interne du serveur")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
