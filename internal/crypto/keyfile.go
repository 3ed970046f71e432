// Package crypto handles operator key material: loading the wallet private
// keys from config or from password-protected key files on disk.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	currentVersion   = 1
)

// keyFileJSON is the on-disk format for an encrypted wallet key.
type keyFileJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource carries the information LoadKey needs to resolve a private key.
type KeySource struct {
	// Raw is the key material itself (hex for EVM keys, base58 for Solana
	// keys). If non-empty, LoadKey returns it directly.
	Raw string

	// EncryptedPath points at a JSON file produced by EncryptKey.
	EncryptedPath string

	// Password decrypts the file at EncryptedPath.
	Password string
}

// EncryptKey seals raw key material with a password using PBKDF2-HMAC-SHA256
// derivation and AES-256-GCM, returning the JSON blob to write to disk.
func EncryptKey(raw, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	if raw == "" {
		return nil, errors.New("crypto: key material must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(raw), nil)

	out := keyFileJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptKey opens a blob produced by EncryptKey.
func DecryptKey(encrypted []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}

	var stored keyFileJSON
	if err := json.Unmarshal(encrypted, &stored); err != nil {
		return "", fmt.Errorf("crypto: parsing key file: %w", err)
	}
	if stored.Version != currentVersion {
		return "", fmt.Errorf("crypto: unsupported key file version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return "", fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("crypto: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}
	return string(plaintext), nil
}

// LoadKey resolves key material from src: a raw inline key wins, then an
// encrypted key file, otherwise an error.
func LoadKey(src KeySource) (string, error) {
	if src.Raw != "" {
		return strings.TrimSpace(src.Raw), nil
	}
	if src.EncryptedPath != "" {
		data, err := os.ReadFile(src.EncryptedPath)
		if err != nil {
			return "", fmt.Errorf("crypto: reading key file: %w", err)
		}
		return DecryptKey(data, src.Password)
	}
	return "", errors.New("crypto: no key source configured")
}

// ValidateEVMKeyHex checks that a raw EVM key parses as 32 bytes of hex.
func ValidateEVMKeyHex(raw string) error {
	k := strings.TrimPrefix(raw, "0x")
	b, err := hex.DecodeString(k)
	if err != nil {
		return fmt.Errorf("crypto: key is not valid hex: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("crypto: expected 32-byte key, got %d bytes", len(b))
	}
	return nil
}
