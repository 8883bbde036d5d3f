package auth

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

var (
	// ErrTokenNotFound means no stored token exists in the chosen backend.
	ErrTokenNotFound = errors.New("access token not found")
	// ErrInvalidToken means the token is empty or unusable.
	ErrInvalidToken = errors.New("invalid access token")
)

// TokenStore persists the VK access token between runs.
type TokenStore interface {
	Store(token string) error
	Retrieve() (string, error)
	Delete() error
}

// NewStore picks the best available backend: the system keychain when it
// works, otherwise an encrypted file under the user config directory.
func NewStore() (TokenStore, error) {
	if ks, err := NewKeyringStore(); err == nil {
		return ks, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("no usable token store: %w", err)
	}
	return NewEncryptedFileStore(configDir + "/vkarchiver/token.enc")
}

// PromptToken reads a token from the terminal without echoing it.
func PromptToken() (string, error) {
	fmt.Fprint(os.Stderr, "VK access token: ")
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := string(data)
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
