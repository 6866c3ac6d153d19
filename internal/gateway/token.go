// Package gateway handles the security boundary of the importer: the per-run
// session token and the scoped handling of mnemonic material.
package gateway

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Token authorizes every mutating operation for the lifetime of one importer
// run. It is generated fresh at startup and handed only to the local front end.
type Token struct {
	value string
}

// IssueToken generates a 256-bit random token.
func IssueToken() (*Token, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	return &Token{value: hex.EncodeToString(buf)}, nil
}

// Value returns the token string for injection into the front end.
func (t *Token) Value() string {
	if t == nil {
		return ""
	}
	return t.value
}

// Authorize reports whether candidate matches the issued token. The comparison
// is constant time.
func (t *Token) Authorize(candidate string) bool {
	if t == nil || t.value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t.value), []byte(candidate)) == 1
}
