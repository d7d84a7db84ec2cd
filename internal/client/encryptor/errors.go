package encryptor

import (
	"errors"
	"fmt"
)

var (
	// ErrDecryption matches every *DecryptionError via errors.Is.
	ErrDecryption = errors.New("decryption failed")
	// ErrNoCapability is returned when an identity cannot encrypt or decrypt.
	ErrNoCapability = errors.New("encryption capability unavailable")
	// ErrMalformedCiphertext is returned for payloads too short or badly encoded.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrAuthentication is returned when a sealed box fails to open.
	ErrAuthentication = errors.New("ciphertext authentication failed")
)

// DecryptionError reports a failure to decrypt a single marked value.
// Callers treat it as scoped to the one field that carried the value.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDecryption, e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDecryption) hold for any DecryptionError.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryption
}
