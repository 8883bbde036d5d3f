package auth

import (
	"encoding/base64"
	"fmt"
	"os"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const envTokenKey = "VKARCHIVER_ACCESS_TOKEN"

// EnvStore reads the token from the environment, honoring a .env file in the
// working directory. It is read-only: storing or deleting is up to whoever
// manages the environment.
type EnvStore struct{}

// NewEnvStore creates an environment-backed token store.
func NewEnvStore() *EnvStore {
	_ = godotenv.Load()
	return &EnvStore{}
}

// Store implements TokenStore. Unsupported for environments.
func (s *EnvStore) Store(string) error {
	return fmt.Errorf("cannot store a token in the environment: set %s yourself", envTokenKey)
}

// Retrieve implements TokenStore.
func (s *EnvStore) Retrieve() (string, error) {
	token := os.Getenv(envTokenKey)
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// Delete implements TokenStore. Unsupported for environments.
func (s *EnvStore) Delete() error {
	return fmt.Errorf("cannot delete a token from the environment: unset %s yourself", envTokenKey)
}

func readPassphrase() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return string(data), nil
}

func encodeB64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func decodeB64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
