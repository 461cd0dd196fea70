// Package identity derives stable author keys from git signatures.
package identity

import (
	"strings"

	"github.com/Sumatoshi-tech/blametally/pkg/gitlib"
)

// AuthorMissingName is the author key used when a signature carries neither
// an email nor a name.
const AuthorMissingName = "<unmatched>"

// Key returns the tally key for a signature. Emails are the primary
// identity and are lowercased so the same author is not split across
// clients that capitalize differently. Signatures without an email fall
// back to the name verbatim.
func Key(sig gitlib.Signature) string {
	email := strings.TrimSpace(sig.Email)
	if email != "" {
		return strings.ToLower(email)
	}

	name := strings.TrimSpace(sig.Name)
	if name != "" {
		return name
	}

	return AuthorMissingName
}
