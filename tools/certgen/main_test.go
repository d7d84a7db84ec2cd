package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/HomeKeeper/internal/certgen"
)

func TestGenerate_WritesPKI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generate(options{dir: dir, hosts: []string{"localhost"}, years: 1}))

	for _, name := range []string{"ca.crt", "ca.key", "server.crt", "server.key"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	caCert, _, err := certgen.LoadCACredentials(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	pair, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	assert.NoError(t, leaf.CheckSignatureFrom(caCert))
	assert.Equal(t, []string{"localhost"}, leaf.DNSNames)
}

func TestGenerate_ReusesExistingCA(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generate(options{dir: dir, hosts: []string{"localhost"}, years: 1}))
	first, err := os.ReadFile(filepath.Join(dir, "ca.crt"))
	require.NoError(t, err)

	require.NoError(t, generate(options{dir: dir, hosts: []string{"relay.example"}, years: 1}))
	second, err := os.ReadFile(filepath.Join(dir, "ca.crt"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRootCmd(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--dir", dir, "--host", "localhost,10.0.0.1"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), dir)

	pair, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	require.Len(t, leaf.IPAddresses, 1)
	assert.Equal(t, "10.0.0.1", leaf.IPAddresses[0].String())
}
