package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const longSecret = "0123456789abcdef0123456789abcdef"

func TestLoadSecret_Inline(t *testing.T) {
	b, err := LoadSecret("  " + longSecret + "\n")
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if string(b) != longSecret {
		t.Errorf("LoadSecret = %q, want %q", b, longSecret)
	}
}

func TestLoadSecret_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.secret")
	if err := os.WriteFile(path, []byte(longSecret+"\n"), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}
	b, err := LoadSecret("file:" + path)
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if string(b) != longSecret {
		t.Errorf("LoadSecret = %q, want %q", b, longSecret)
	}
}

func TestLoadSecret_MissingFile(t *testing.T) {
	_, err := LoadSecret("file:" + filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("LoadSecret with missing file should fail")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want os.ErrNotExist, got %v", err)
	}
}

func TestLoadSecret_Rejects(t *testing.T) {
	for _, s := range []string{"", "   ", "short-secret"} {
		if _, err := LoadSecret(s); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("LoadSecret(%q): want ErrInvalidKey, got %v", s, err)
		}
	}
}
