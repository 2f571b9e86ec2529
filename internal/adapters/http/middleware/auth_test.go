package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h := BasicAuth("admin", hash, "/health")(okHandler(http.StatusOK))

	tests := []struct {
		name       string
		path       string
		user, pass string
		setAuth    bool
		want       int
	}{
		{"valid credentials", "/api/branches/main/slots", "admin", "s3cret", true, http.StatusOK},
		{"wrong password", "/api/branches/main/slots", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong user", "/api/branches/main/slots", "root", "s3cret", true, http.StatusUnauthorized},
		{"no credentials", "/api/branches/main/slots", "", "", false, http.StatusUnauthorized},
		{"public path", "/health", "", "", false, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}

func TestBasicAuth_DisabledWithoutHash(t *testing.T) {
	rr := serve(BasicAuth("admin", nil)(okHandler(http.StatusOK)), http.MethodGet, "/api/x")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte("pw")) != nil {
		t.Error("hash does not match password")
	}
}
