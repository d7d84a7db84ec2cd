package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func TestCertAuth_RegisterPathBypass(t *testing.T) {
	dummy := &dummyHandler{}
	h := CertAuth(dummy)
	// simulate request to /api/register without TLS
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/register", nil)
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Error("expected next handler to be called for /api/register")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 OK, got %d", rec.Code)
	}
}

func TestCertAuth_NoCertificate(t *testing.T) {
	dummy := &dummyHandler{}
	h := CertAuth(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/records", nil)
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called when no certificate provided")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestCertAuth_ValidCertificate(t *testing.T) {
	// create fake certificate chain
	cert := &x509.Certificate{Subject: pkix.Name{CommonName: "alice"}}
	ts := &tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}

	dummy := &dummyHandler{}
	h := CertAuth(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/records", nil)
	req.TLS = ts
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Error("expected next handler to be called when valid certificate provided")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 OK, got %d", rec.Code)
	}
	// verify context contains correct author
	author := AuthorFromContext(dummy.ctx)
	if author != "alice" {
		t.Errorf("expected context author 'alice', got '%s'", author)
	}
}

func TestAuthorFromContext(t *testing.T) {
	// no value
	empty := AuthorFromContext(context.Background())
	if empty != "" {
		t.Errorf("expected empty string for missing author, got '%s'", empty)
	}
	// with value
	ctx := context.WithValue(context.Background(), authorKey, "bob")
	val := AuthorFromContext(ctx)
	if val != "bob" {
		t.Errorf("expected 'bob', got '%s'", val)
	}
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/records", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("expected status %d, got %v", http.StatusTeapot, fields["status"])
	}
	if fields["path"] != "/api/records" {
		t.Errorf("expected path /api/records, got %v", fields["path"])
	}
	if fields["size"] != int64(len("short and stout")) {
		t.Errorf("expected size %d, got %v", len("short and stout"), fields["size"])
	}
}
