package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	token := Token(7)
	r := httptest.NewRequest(http.MethodGet, "/api/factures", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	uid, ok := ParseSession(r)
	if !ok || uid != 7 {
		t.Fatalf("got uid=%d ok=%v", uid, ok)
	}
}

func TestParseSessionRejectsTamperedToken(t *testing.T) {
	token := Token(7)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer 8."+token[2:])
	if _, ok := ParseSession(r); ok {
		t.Fatal("tampered token accepted")
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(RequireAuth(next))

	r := httptest.NewRequest(http.MethodGet, "/api/produits", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/produits", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: Token(1)})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("cookie session: %d", w.Code)
	}
}
