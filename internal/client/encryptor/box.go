package encryptor

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/box"
)

const nonceSize = 24

// BoxCapability seals values to the identity's own X25519 public key with
// NaCl box. Ciphertext is base64(nonce || sealed).
type BoxCapability struct {
	shared [32]byte
}

// NewBoxCapability precomputes the self-encryption key for a keypair.
func NewBoxCapability(public, private *[32]byte) *BoxCapability {
	c := &BoxCapability{}
	box.Precompute(&c.shared, public, private)
	return c
}

// Encrypt implements Capability.
func (c *BoxCapability) Encrypt(plaintext []byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := box.SealAfterPrecomputation(nonce[:], plaintext, &nonce, &c.shared)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt implements Capability.
func (c *BoxCapability) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	if len(raw) < nonceSize+box.Overhead {
		return nil, ErrMalformedCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := box.OpenAfterPrecomputation(nil, raw[nonceSize:], &nonce, &c.shared)
	if !ok {
		return nil, ErrAuthentication
	}
	return plain, nil
}

// Identity is who the preferences belong to. Capability is nil for an
// identity known only by its public id (e.g. a watch-only session).
type Identity struct {
	PublicID   string
	Capability Capability
}

// CanEncrypt reports whether sensitive fields can be sealed and opened.
func (id Identity) CanEncrypt() bool {
	return id.Capability != nil
}

// PublicOnly returns an identity without an encryption capability.
func PublicOnly(publicID string) Identity {
	return Identity{PublicID: publicID}
}

// KeyPair is an X25519 identity keypair.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

type keyFile struct {
	Public  string `json:"public"`
	Private string `json:"private"`
}

// GenerateKeyPair creates a fresh identity keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyPair{Public: *pub, Private: *priv}, nil
}

// PublicID is the hex-encoded public key, used as the author id.
func (k *KeyPair) PublicID() string {
	return hex.EncodeToString(k.Public[:])
}

// Identity returns the identity with a BoxCapability.
func (k *KeyPair) Identity() Identity {
	return Identity{
		PublicID:   k.PublicID(),
		Capability: NewBoxCapability(&k.Public, &k.Private),
	}
}

// Save writes the keypair to path with owner-only permissions.
func (k *KeyPair) Save(path string) error {
	b, err := json.Marshal(keyFile{
		Public:  hex.EncodeToString(k.Public[:]),
		Private: hex.EncodeToString(k.Private[:]),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// LoadKeyPair reads a keypair written by Save.
func LoadKeyPair(path string) (*KeyPair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	kp := &KeyPair{}
	if err := decodeKey(kf.Public, &kp.Public); err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	if err := decodeKey(kf.Private, &kp.Private); err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return kp, nil
}

func decodeKey(s string, dst *[32]byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return errors.New("invalid key length")
	}
	copy(dst[:], b)
	return nil
}
