package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"tidy-go/internal/tidy"
)

// testHeader marks output of TestEncryptor so tests can tell ciphertext from plaintext.
var testHeader = []byte("TIDYENC\x00")

// TestEncryptor is a deterministic, reversible stand-in for AgeEncryptor.
// It prefixes a fixed header on Encrypt and strips it on Decrypt.
// Unlock accepts only the passphrase given to Setup, if Setup was called.
type TestEncryptor struct {
	passphrase  string
	setupCalled bool
}

var _ tidy.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (tidy.DecryptionContext, error) {
	if e.setupCalled && passphrase != e.passphrase {
		return nil, errors.New("incorrect passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ tidy.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return errors.New("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
