package backend

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalSecret_CreatedOnceAndReused(t *testing.T) {
	dir := t.TempDir()

	first, err := LocalSecret(dir)
	if err != nil {
		t.Fatalf("LocalSecret: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("secret length = %d; want 64", len(first))
	}
	fi, err := os.Stat(filepath.Join(dir, secretKey))
	if err != nil {
		t.Fatal(err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o; want 600", perm)
	}

	again, err := LocalSecret(dir)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(first) {
		t.Fatal("secret changed between calls")
	}
	other, _ := LocalSecret(t.TempDir())
	if string(other) == string(first) {
		t.Fatal("distinct data dirs share a secret")
	}
}
