package recovery

import "bytes"

const mnemonicWordCount = 12

// ValidateMnemonicFormat checks that the buffer holds exactly twelve
// space-separated lowercase words shaped like BIP39 wordlist entries. This is
// a format check only; cryptographic validation belongs to the daemon. The
// buffer is never copied into a string so the caller retains sole ownership.
func ValidateMnemonicFormat(mnemonic []byte) error {
	words := bytes.Fields(mnemonic)
	if len(words) != mnemonicWordCount {
		return Wrap(ErrInvalidMnemonicFormat, "", "", "mnemonic must be exactly 12 words", nil)
	}
	for _, word := range words {
		if len(word) < 3 || len(word) > 8 {
			return Wrap(ErrInvalidMnemonicFormat, "", "", "mnemonic word has implausible length", nil)
		}
		for _, c := range word {
			if c < 'a' || c > 'z' {
				return Wrap(ErrInvalidMnemonicFormat, "", "", "mnemonic words must be lowercase letters", nil)
			}
		}
	}
	return nil
}
