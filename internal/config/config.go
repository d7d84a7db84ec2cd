// Package config provides the configuration of the log server (flags,
// environment variables and an optional JSON file) and of the preference
// client (a YAML file with environment overrides).
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Options holds the configuration values for the log server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port" validate:"required,hostname_port"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" validate:"required"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// TLS material. Author certificates are issued by the CA.
	CACert     string `json:"ca_cert" validate:"required"`
	CAKey      string `json:"ca_key" validate:"required"`
	ServerCert string `json:"server_cert" validate:"required"`
	ServerKey  string `json:"server_key" validate:"required"`

	// Retention is how long a superseded record is kept before pruning.
	Retention time.Duration `json:"-" validate:"gt=0"`
	// PruneInterval is how often the pruner runs.
	PruneInterval time.Duration `json:"-" validate:"gt=0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" validate:"oneof=debug info warn error"`
}

// fileOptions mirrors the durations of Options as strings for the JSON file.
type fileOptions struct {
	Retention     string `json:"retention"`
	PruneInterval string `json:"prune_interval"`
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It exits the process on invalid configuration.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return opts
}

// ParseArgs builds Options from args, a .env file, the JSON config file and
// the environment, in increasing order of precedence for everything but
// flags explicitly given on the command line.
func ParseArgs(args []string) (*Options, error) {
	options := &Options{}
	fs := flag.NewFlagSet("homekeeper-server", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.CACert, "ca-cert", "certs/ca.crt", "CA certificate")
	fs.StringVar(&options.CAKey, "ca-key", "certs/ca.key", "CA private key")
	fs.StringVar(&options.ServerCert, "tls-cert", "certs/server.crt", "server certificate")
	fs.StringVar(&options.ServerKey, "tls-key", "certs/server.key", "server private key")
	fs.DurationVar(&options.Retention, "retention", 30*24*time.Hour, "keep superseded records this long")
	fs.DurationVar(&options.PruneInterval, "prune-interval", time.Hour, "how often to prune superseded records")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if options.Config != "" {
		if err := loadFile(options, set); err != nil {
			return nil, err
		}
	}

	env := []struct {
		name, flag string
		dst        *string
	}{
		{"SERVER_ADDRESS", "a", &options.Port},
		{"DATABASE_DSN", "d", &options.DatabaseDSN},
		{"CA_CERT", "ca-cert", &options.CACert},
		{"CA_KEY", "ca-key", &options.CAKey},
		{"TLS_CERT", "tls-cert", &options.ServerCert},
		{"TLS_KEY", "tls-key", &options.ServerKey},
		{"LOG_LEVEL", "log-level", &options.LogLevel},
	}
	for _, e := range env {
		if v := os.Getenv(e.name); v != "" && !set[e.flag] {
			*e.dst = v
		}
	}
	for name, dst := range map[string]*time.Duration{"RETENTION": &options.Retention, "PRUNE_INTERVAL": &options.PruneInterval} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}

	if err := validator.New().Struct(options); err != nil {
		return nil, err
	}
	return options, nil
}

// loadFile applies the JSON config file, if present, to every option not
// given as a flag.
func loadFile(options *Options, set map[string]bool) error {
	data, err := os.ReadFile(options.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	fromFile := *options
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	var durations fileOptions
	if err := json.Unmarshal(data, &durations); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	apply := func(flagName string, dst *string, v string) {
		if !set[flagName] {
			*dst = v
		}
	}
	apply("a", &options.Port, fromFile.Port)
	apply("d", &options.DatabaseDSN, fromFile.DatabaseDSN)
	apply("ca-cert", &options.CACert, fromFile.CACert)
	apply("ca-key", &options.CAKey, fromFile.CAKey)
	apply("tls-cert", &options.ServerCert, fromFile.ServerCert)
	apply("tls-key", &options.ServerKey, fromFile.ServerKey)
	apply("log-level", &options.LogLevel, fromFile.LogLevel)

	for flagName, pair := range map[string]struct {
		raw string
		dst *time.Duration
	}{
		"retention":      {durations.Retention, &options.Retention},
		"prune-interval": {durations.PruneInterval, &options.PruneInterval},
	} {
		if pair.raw == "" || set[flagName] {
			continue
		}
		d, err := time.ParseDuration(pair.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %w", flagName, err)
		}
		*pair.dst = d
	}
	return nil
}
