package auth

import (
	"context"
	"strings"
	"testing"
)

func TestHashToken_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashToken("plt_admin_secret")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash should have 6 parts, got: %d", len(parts))
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" || parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("unexpected PHC header: %s", strings.Join(parts[:4], "$"))
	}
	if err := ValidateHash(hash); err != nil {
		t.Errorf("ValidateHash rejected a fresh hash: %v", err)
	}
}

func TestHashToken_SaltedAndVerifiable(t *testing.T) {
	t.Parallel()

	token := "plt_admin_same"
	hash1, err := HashToken(token)
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	hash2, err := HashToken(token)
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("Same token should produce different hashes due to random salt")
	}

	for _, h := range []string{hash1, hash2} {
		ok, err := VerifyToken(token, h)
		if err != nil || !ok {
			t.Errorf("VerifyToken(%q) = %v, %v; want true, nil", h, ok, err)
		}
	}

	ok, err := VerifyToken("plt_admin_other", hash1)
	if err != nil {
		t.Fatalf("wrong token should not error: %v", err)
	}
	if ok {
		t.Error("wrong token should not match")
	}
}

func TestVerifyToken_InvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"wrong format", "not-a-hash", ErrInvalidHash},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$salt$hash", ErrInvalidHash},
		{"missing parts", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"bad params", "$argon2id$v=19$m=x,t=3,p=4$c2FsdA$aGFzaA", ErrInvalidHash},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA", ErrInvalidHash},
		{"wrong version", "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJl", ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := VerifyToken("token", tt.hash)
			if err != tt.wantErr {
				t.Errorf("VerifyToken error = %v, want %v", err, tt.wantErr)
			}
			if ok {
				t.Error("invalid hash should never match")
			}
		})
	}
}

func TestGenerateAdminToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateAdminToken()
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}
	if !ValidateTokenFormat(tok.Plaintext) {
		t.Errorf("generated token has invalid format: %s", tok.Plaintext)
	}
	if len(tok.Plaintext) != len(TokenPrefix)+TokenSecretLen {
		t.Errorf("token length = %d", len(tok.Plaintext))
	}

	ok, err := VerifyToken(tok.Plaintext, tok.Hash)
	if err != nil || !ok {
		t.Errorf("generated hash does not verify: %v", err)
	}

	other, err := GenerateAdminToken()
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}
	if other.Plaintext == tok.Plaintext {
		t.Error("tokens should be unique")
	}
}

func TestValidateTokenFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  bool
	}{
		{TokenPrefix + strings.Repeat("a", TokenSecretLen), true},
		{TokenPrefix + strings.Repeat("A", TokenSecretLen), false},
		{TokenPrefix + strings.Repeat("a", TokenSecretLen-1), false},
		{"pk_live_abc123_" + strings.Repeat("a", 32), false},
		{"", false},
	}

	for _, tt := range tests {
		tt := tt
		if got := ValidateTokenFormat(tt.token); got != tt.want {
			t.Errorf("ValidateTokenFormat(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	if QuickHash("a") != QuickHash("a") {
		t.Error("Same input should produce same hash")
	}
	if QuickHash("a") == QuickHash("b") {
		t.Error("Different input should produce different hash")
	}
	if len(QuickHash(strings.Repeat("x", 1000))) != 32 {
		t.Error("Hash should be 32 chars")
	}
}

func TestSubjectContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if SubjectFromContext(ctx) != "" {
		t.Error("expected empty subject")
	}
	ctx = ContextWithSubject(ctx, "admin")
	if got := SubjectFromContext(ctx); got != "admin" {
		t.Errorf("SubjectFromContext = %q, want admin", got)
	}
}
