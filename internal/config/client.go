package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends of the preference client.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ClientOptions configures the homekeeper client.
type ClientOptions struct {
	// ServerURL is the HomeKeeper log server, used for registration and as
	// the first endpoint.
	ServerURL string `yaml:"server_url" validate:"omitempty,url"`
	// Relays are additional endpoints (ws://, wss://, couchdb://...).
	Relays []string `yaml:"relays" validate:"dive,url"`

	// DataDir holds the local preference store, the key pair and the client
	// certificate.
	DataDir string `yaml:"data_dir" validate:"required"`
	// KeyPath is the identity key pair file. Defaults to DataDir/identity.key.
	KeyPath string `yaml:"key_path"`
	// CAPath is the CA that signed the server certificate.
	CAPath string `yaml:"ca_path"`
	// Backend selects the local store: "file" or "sqlite".
	Backend string `yaml:"backend" validate:"oneof=file sqlite"`

	Debounce       time.Duration `yaml:"debounce" validate:"gte=0"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" validate:"gte=0"`
	PublishTimeout time.Duration `yaml:"publish_timeout" validate:"gte=0"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// DefaultClientPath returns ~/.homekeeper/config.yaml.
func DefaultClientPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".homekeeper"
	}
	return filepath.Join(home, ".homekeeper")
}

// LoadClient reads the client configuration from path (a missing file means
// defaults), then applies .env and HOMEKEEPER_* environment overrides.
func LoadClient(path string) (*ClientOptions, error) {
	opts := &ClientOptions{
		DataDir:  defaultDataDir(),
		Backend:  BackendFile,
		LogLevel: "warn",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, opts); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	strs := map[string]*string{
		"HOMEKEEPER_SERVER":    &opts.ServerURL,
		"HOMEKEEPER_DATA_DIR":  &opts.DataDir,
		"HOMEKEEPER_KEY":       &opts.KeyPath,
		"HOMEKEEPER_CA":        &opts.CAPath,
		"HOMEKEEPER_BACKEND":   &opts.Backend,
		"HOMEKEEPER_LOG_LEVEL": &opts.LogLevel,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("HOMEKEEPER_RELAYS"); v != "" {
		opts.Relays = splitList(v)
	}
	if v := os.Getenv("HOMEKEEPER_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("HOMEKEEPER_DEBOUNCE: %w", err)
		}
		opts.Debounce = d
	}

	if opts.KeyPath == "" {
		opts.KeyPath = filepath.Join(opts.DataDir, "identity.key")
	}
	if opts.CAPath == "" {
		opts.CAPath = filepath.Join(opts.DataDir, "ca.crt")
	}

	if err := validator.New().Struct(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// Endpoints returns the server URL followed by the configured relays,
// without duplicates.
func (o *ClientOptions) Endpoints() []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range append([]string{o.ServerURL}, o.Relays...) {
		e = strings.TrimRight(strings.TrimSpace(e), "/")
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
