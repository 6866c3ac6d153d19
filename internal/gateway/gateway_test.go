package gateway_test

import (
	"errors"
	"regexp"
	"testing"

	"divimport/internal/gateway"
)

func TestIssueTokenProducesDistinctHexTokens(t *testing.T) {
	first, err := gateway.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	second, err := gateway.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	hexPattern := regexp.MustCompile(`^[0-9a-f]{64}$`)
	if !hexPattern.MatchString(first.Value()) {
		t.Fatalf("unexpected token format: %q", first.Value())
	}
	if first.Value() == second.Value() {
		t.Fatal("two issued tokens must differ")
	}
}

func TestAuthorize(t *testing.T) {
	token, err := gateway.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if !token.Authorize(token.Value()) {
		t.Fatal("issued token must authorize itself")
	}
	if token.Authorize("") {
		t.Fatal("empty candidate must not authorize")
	}
	if token.Authorize(token.Value() + "0") {
		t.Fatal("longer candidate must not authorize")
	}
	var nilToken *gateway.Token
	if nilToken.Authorize("anything") {
		t.Fatal("nil token must not authorize")
	}
}

func TestWithMnemonicZeroesBuffers(t *testing.T) {
	raw := []byte("  alpha \t beta\n")
	var seen []byte
	err := gateway.WithMnemonic(raw, func(mnemonic []byte) error {
		if string(mnemonic) != "alpha beta" {
			t.Fatalf("unexpected normalized mnemonic: %q", mnemonic)
		}
		seen = mnemonic
		return nil
	})
	if err != nil {
		t.Fatalf("WithMnemonic failed: %v", err)
	}
	for i, b := range raw {
		if b != 0 {
			t.Fatalf("raw buffer byte %d not zeroed", i)
		}
	}
	for i, b := range seen {
		if b != 0 {
			t.Fatalf("normalized buffer byte %d not zeroed", i)
		}
	}
}

func TestWithMnemonicZeroesOnError(t *testing.T) {
	raw := []byte("gamma delta")
	var seen []byte
	wantErr := errors.New("submit failed")
	err := gateway.WithMnemonic(raw, func(mnemonic []byte) error {
		seen = mnemonic
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
	for i, b := range append(raw, seen...) {
		if b != 0 {
			t.Fatalf("buffer byte %d not zeroed after error", i)
		}
	}
}

func TestWithMnemonicNormalizesCompatibilityForms(t *testing.T) {
	// Full-width letters from a mobile keyboard paste.
	raw := []byte("ａｂｃ word")
	err := gateway.WithMnemonic(raw, func(mnemonic []byte) error {
		if string(mnemonic) != "abc word" {
			t.Fatalf("expected NFKC folding to ASCII, got %q", mnemonic)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithMnemonic failed: %v", err)
	}
}

func TestWithMnemonicPreservesCase(t *testing.T) {
	raw := []byte("Alpha beta")
	err := gateway.WithMnemonic(raw, func(mnemonic []byte) error {
		if string(mnemonic) != "Alpha beta" {
			t.Fatalf("case must be preserved for the validator to reject, got %q", mnemonic)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithMnemonic failed: %v", err)
	}
}
