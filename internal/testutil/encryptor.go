package testutil

import (
	"tidy-go/internal/encryption"
	"tidy-go/internal/tidy"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() tidy.Encryptor {
	return encryption.NewTestEncryptor()
}
