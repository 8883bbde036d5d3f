package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// EncryptedFileStore keeps the access token in an AES-GCM encrypted file,
// for machines without a usable keychain. The passphrase comes from
// VKARCHIVER_PASSPHRASE or, failing that, an interactive prompt.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

type encryptedFile struct {
	Salt   string `json:"salt"`
	Nonce  string `json:"nonce"`
	Cipher string `json:"cipher"`
}

// NewEncryptedFileStore creates a store backed by the file at path.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	passphrase := os.Getenv("VKARCHIVER_PASSPHRASE")
	if passphrase == "" {
		fmt.Fprint(os.Stderr, "Token store passphrase: ")
		var err error
		passphrase, err = readPassphrase()
		if err != nil {
			return nil, err
		}
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store implements TokenStore.
func (e *EncryptedFileStore) Store(token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if token == "" {
		return ErrInvalidToken
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, []byte(token), nil)

	payload := encryptedFile{
		Salt:   encodeB64(salt),
		Nonce:  encodeB64(nonce),
		Cipher: encodeB64(sealed),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}
	if err := os.WriteFile(e.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Retrieve implements TokenStore.
func (e *EncryptedFileStore) Retrieve() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var payload encryptedFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("corrupt token file: %w", err)
	}
	salt, err := decodeB64(payload.Salt)
	if err != nil {
		return "", fmt.Errorf("corrupt token file: %w", err)
	}
	nonce, err := decodeB64(payload.Nonce)
	if err != nil {
		return "", fmt.Errorf("corrupt token file: %w", err)
	}
	sealed, err := decodeB64(payload.Cipher)
	if err != nil {
		return "", fmt.Errorf("corrupt token file: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create gcm: %w", err)
	}
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token (wrong passphrase?): %w", err)
	}
	return string(plain), nil
}

// Delete implements TokenStore.
func (e *EncryptedFileStore) Delete() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
