// Package auth issues and verifies the bearer tokens that identify API callers.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// KeyFileName is the name of the token key file inside the data directory.
const KeyFileName = "auth.key"

// LoadOrGenerateKey returns the hex-encoded PASETO v4 symmetric key stored in
// <dataDir>/auth.key, creating the directory and a fresh random key on first start.
func LoadOrGenerateKey(dataDir string) (string, error) {
	keyPath := filepath.Join(dataDir, KeyFileName)

	//#nosec G304 -- key path is derived from the configured data directory
	raw, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != keyHexSize {
			return "", fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexSize, len(keyHex))
		}
		if _, err := hex.DecodeString(keyHex); err != nil {
			return "", fmt.Errorf("invalid auth key format: not valid hex: %w", err)
		}
		return keyHex, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, keyBytesSize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate auth key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("failed to save auth key: %w", err)
	}
	return keyHex, nil
}
