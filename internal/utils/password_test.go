package utils

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter22!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if hash == "" || hash == "hunter22!" {
		t.Error("hash must be non-empty and never the plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	hash1, _ := HashPassword("same-input")
	hash2, _ := HashPassword("same-input")

	if hash1 == hash2 {
		t.Error("two hashes of the same password must differ by salt")
	}
	if !CheckPassword("same-input", hash1) || !CheckPassword("same-input", hash2) {
		t.Error("both salted hashes must still verify")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, _ := HashPassword("correct horse battery staple")

	tests := []struct {
		name     string
		password string
		expected bool
	}{
		{"correct password", "correct horse battery staple", true},
		{"wrong password", "incorrect horse", false},
		{"empty password", "", false},
		{"trailing character", "correct horse battery staple1", false},
		{"case sensitive", "Correct Horse Battery Staple", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, hash); got != tt.expected {
				t.Errorf("CheckPassword(%q) = %v, expected %v", tt.password, got, tt.expected)
			}
		})
	}
}

func TestCheckPasswordBadHash(t *testing.T) {
	if CheckPassword("password", "not-a-bcrypt-hash") {
		t.Error("malformed hash must never verify")
	}
	if CheckPassword("password", "") {
		t.Error("empty hash must never verify")
	}
}
