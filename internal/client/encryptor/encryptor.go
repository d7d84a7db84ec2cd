// Package encryptor seals sensitive preference fields with a capability bound
// to the user's identity keypair. Sealed values carry a fixed marker so that
// readers without the capability can still tell a field is encrypted.
package encryptor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Marker prefixes every ciphertext produced by Encrypt.
const Marker = "enc:v1:"

// Capability encrypts and decrypts for a single identity.
type Capability interface {
	// Encrypt seals plaintext and returns the encoded ciphertext (no marker).
	Encrypt(plaintext []byte) (string, error)
	// Decrypt opens an encoded ciphertext (no marker).
	Decrypt(ciphertext string) ([]byte, error)
}

// IsEncrypted reports whether value carries the ciphertext marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Marker)
}

// Encrypt seals plaintext with capability and returns Marker+ciphertext.
func Encrypt(plaintext string, capability Capability) (string, error) {
	if capability == nil {
		return "", ErrNoCapability
	}
	ct, err := capability.Encrypt([]byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return Marker + ct, nil
}

// Decrypt opens a marker-prefixed value. Values without the marker are legacy
// plaintext and come back unchanged with a nil error.
func Decrypt(value string, capability Capability) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if capability == nil {
		return "", &DecryptionError{Err: ErrNoCapability}
	}
	plain, err := capability.Decrypt(strings.TrimPrefix(value, Marker))
	if err != nil {
		return "", &DecryptionError{Err: err}
	}
	return string(plain), nil
}

// EncryptJSON marshals v and encrypts the resulting document.
func EncryptJSON(v any, capability Capability) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return Encrypt(string(b), capability)
}

// DecryptJSON decrypts value and unmarshals the document into out. A value
// that decrypts to something other than JSON is reported as a DecryptionError.
func DecryptJSON(value string, capability Capability, out any) error {
	plain, err := Decrypt(value, capability)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(plain), out); err != nil {
		return &DecryptionError{Err: fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)}
	}
	return nil
}
