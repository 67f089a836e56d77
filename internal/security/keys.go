package security

import (
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when a signing secret is empty or too short.
var ErrInvalidKey = errors.New("invalid key")

// MinSecretLength is the minimum accepted HS256 secret length in bytes.
const MinSecretLength = 32

const filePrefix = "file:"

// LoadSecret resolves a signing secret. s is either the inline secret or
// "file:<path>", in which case the file content (whitespace-trimmed) is used.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, filePrefix) {
		b, err := os.ReadFile(strings.TrimPrefix(s, filePrefix))
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(string(b))
	}
	if len(s) < MinSecretLength {
		return nil, ErrInvalidKey
	}
	return []byte(s), nil
}
