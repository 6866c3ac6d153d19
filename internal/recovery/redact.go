package recovery

import (
	"regexp"
	"strings"
)

var credentialPattern = regexp.MustCompile(`(?i)(rpcpassword|rpcuser)\s*=\s*\S+`)

// redactDetail strips secrets from a diagnostic string before it is persisted
// or surfaced: every word of the mnemonic (when one is in flight) and any
// divi.conf credential assignment.
func redactDetail(detail string, secret []byte) string {
	if len(secret) > 0 {
		if full := string(secret); full != "" {
			detail = strings.ReplaceAll(detail, full, "[redacted]")
		}
		for _, word := range strings.Fields(string(secret)) {
			if len(word) < 3 {
				continue
			}
			detail = strings.ReplaceAll(detail, word, "[redacted]")
		}
	}
	return credentialPattern.ReplaceAllString(detail, "$1=[redacted]")
}
