// Package http provides the HTTP surface of the HomeKeeper log server:
// author registration, certificate login, the records API and the relay
// websocket endpoint.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/HomeKeeper/internal/certgen"
	"github.com/atinyakov/HomeKeeper/internal/service"
)

// Default CA locations, relative to the server working directory.
const (
	DefaultCACertPath = "certs/ca.crt"
	DefaultCAKeyPath  = "certs/ca.key"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// AuthorExists checks whether an author with the given login exists.
	AuthorExists(context.Context, string) (bool, error)
	// RegisterAuthor registers a new author with the given login.
	RegisterAuthor(context.Context, string) error
}

// AuthHandler handles HTTP requests for author registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// CACertPath and CAKeyPath locate the CA that signs author
	// certificates. Empty means the defaults above.
	CACertPath string
	CAKeyPath  string
}

// RegisterRequest represents the JSON payload for author registration.
type RegisterRequest struct {
	// Login is the identity public id to register.
	Login string `json:"login"`
}

func (h *AuthHandler) caPaths() (string, string) {
	certPath, keyPath := h.CACertPath, h.CAKeyPath
	if certPath == "" {
		certPath = DefaultCACertPath
	}
	if keyPath == "" {
		keyPath = DefaultCAKeyPath
	}
	return certPath, keyPath
}

// Register handles author registration requests.
// It expects a JSON body with a non-empty "login" field holding an identity
// public id. If the author does not already exist, it issues a client
// certificate with the login as Common Name, stores the author and returns
// the PEM-encoded certificate and private key.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	exists, err := h.AuthService.AuthorExists(r.Context(), req.Login)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "author already exists", http.StatusConflict)
		return
	}

	caCert, caKey, err := certgen.LoadCACredentials(h.caPaths())
	if err != nil {
		http.Error(w, "failed to load CA", http.StatusInternalServerError)
		return
	}

	certPEM, keyPEM, err := certgen.GenerateUserCertificate(req.Login, caCert, caKey)
	if err != nil {
		http.Error(w, "failed to generate certificate", http.StatusInternalServerError)
		return
	}

	if err := h.AuthService.RegisterAuthor(r.Context(), req.Login); err != nil {
		if errors.Is(err, service.ErrInvalidLogin) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to save author", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"cert": string(certPEM),
		"key":  string(keyPEM),
	})
}

// Login handles certificate-based login requests.
// The CommonName of the client certificate is used as the login. If the
// author exists, it returns a JSON status "ok" and the author id.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		http.Error(w, "client certificate required", http.StatusUnauthorized)
		return
	}

	login := r.TLS.PeerCertificates[0].Subject.CommonName

	exists, err := h.AuthService.AuthorExists(r.Context(), login)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "author not found", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"author": login,
	})
}
