package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
)

// Client certificate file names written by Register.
const (
	ClientCertFile = "client.crt"
	ClientKeyFile  = "client.key"
)

func loadCAPool(caPath string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	return pool, nil
}

// Register asks the log server at baseURL to admit identity as an author and
// stores the returned client certificate and key under outDir.
func Register(ctx context.Context, baseURL, identity, caPath, outDir string) error {
	pool, err := loadCAPool(caPath)
	if err != nil {
		return err
	}
	client := &http.Client{
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}},
		Timeout:   10 * time.Second,
	}

	b, _ := json.Marshal(map[string]string{"login": identity})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/register", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s", bytes.TrimSpace(data))
	}

	var certData struct {
		Cert string `json:"cert"`
		Key  string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&certData); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", outDir, err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ClientCertFile), []byte(certData.Cert), 0600); err != nil {
		return fmt.Errorf("failed to save %s: %w", ClientCertFile, err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ClientKeyFile), []byte(certData.Key), 0600); err != nil {
		return fmt.Errorf("failed to save %s: %w", ClientKeyFile, err)
	}
	return nil
}

// LoadClientCertificate builds an HTTP client that authenticates with the
// given client certificate and trusts only caFile.
func LoadClientCertificate(certFile, keyFile, caFile string) (*http.Client, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert/key: %w", err)
	}
	pool, err := loadCAPool(caFile)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      pool,
			MinVersion:   tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}, nil
}

// WSDialer returns a websocket dialer sharing client's TLS configuration, so
// wss:// relays see the same client certificate as the HTTP API.
func WSDialer(client *http.Client) *websocket.Dialer {
	d := *websocket.DefaultDialer
	if client == nil {
		return &d
	}
	if t, ok := client.Transport.(*http.Transport); ok && t.TLSClientConfig != nil {
		d.TLSClientConfig = t.TLSClientConfig.Clone()
	}
	return &d
}
