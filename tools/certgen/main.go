// Package main bootstraps the PKI of a HomeKeeper log server: a CA and a
// server certificate, written as PEM files under an output directory.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/atinyakov/HomeKeeper/internal/certgen"
)

type options struct {
	dir   string
	hosts []string
	years int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "certgen",
		Short: "Generate the CA and server certificate of a HomeKeeper log server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := generate(opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "certificates generated into %s\n", opts.dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "certs", "output directory")
	cmd.Flags().StringSliceVar(&opts.hosts, "host", []string{"localhost", "127.0.0.1"}, "server host names and IPs")
	cmd.Flags().IntVar(&opts.years, "ca-years", 10, "CA validity in years")
	return cmd
}

// generate writes ca.crt, ca.key, server.crt and server.key into opts.dir.
// An existing CA is reused so that issued author certificates stay valid.
func generate(opts options) error {
	if err := os.MkdirAll(opts.dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", opts.dir, err)
	}
	caCertPath := filepath.Join(opts.dir, "ca.crt")
	caKeyPath := filepath.Join(opts.dir, "ca.key")

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if err != nil {
		cert, key, genErr := certgen.GenerateCA("HomeKeeper CA", time.Duration(opts.years)*365*24*time.Hour)
		if genErr != nil {
			return genErr
		}
		keyPEM, encErr := certgen.EncodeECKey(key)
		if encErr != nil {
			return encErr
		}
		if err := writePair(caCertPath, caKeyPath, certgen.EncodeCertificate(cert.Raw), keyPEM); err != nil {
			return err
		}
		caCert, caKey = cert, key
	}

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(opts.hosts, caCert, caKey)
	if err != nil {
		return err
	}
	return writePair(filepath.Join(opts.dir, "server.crt"), filepath.Join(opts.dir, "server.key"), certPEM, keyPEM)
}

func writePair(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}
