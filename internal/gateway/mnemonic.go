package gateway

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

// Zero overwrites every byte of b. Go strings are immutable, so mnemonic
// material is kept in byte slices from entry to submission and wiped with
// this once no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WithMnemonic hands fn a normalized copy of the raw input and guarantees
// that both the raw buffer and the copy are zeroed before returning, on
// success and failure alike.
func WithMnemonic(raw []byte, fn func(mnemonic []byte) error) error {
	normalized := normalizeMnemonic(raw)
	defer func() {
		Zero(raw)
		Zero(normalized)
	}()
	return fn(normalized)
}

// normalizeMnemonic applies NFKC so pasted full-width or composed characters
// become their plain ASCII forms, and collapses runs of whitespace to single
// spaces. Letter case is preserved: an uppercase paste is a user error for
// the format validator to report, not something to silently repair.
func normalizeMnemonic(raw []byte) []byte {
	folded := norm.NFKC.Bytes(raw)
	out := bytes.Join(bytes.Fields(folded), []byte(" "))
	// norm may return the input slice unchanged; only wipe a distinct copy.
	if len(folded) > 0 && len(raw) > 0 && &folded[0] != &raw[0] {
		Zero(folded)
	}
	return out
}
