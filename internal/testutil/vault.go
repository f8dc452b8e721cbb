package testutil

import (
	"tidy-go/internal/tidy"
	"tidy-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() tidy.Vault {
	return vault.NewMemoryVault("test-vault")
}
