package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the HMAC over the raw request body.
const SignatureHeader = "X-Approval-Signature"

const signaturePrefix = "sha256="

// Signature computes the header value for a body: "sha256=" plus the hex
// HMAC-SHA256 of the raw bytes under the shared secret.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header against the raw body. It is the sole
// authorization gate on the push path and must run before any payload field
// is parsed, trusted, or logged. Comparison is constant time; a missing or
// malformed header always fails.
func Verify(secret string, body []byte, header string) bool {
	if secret == "" {
		return false
	}

	encoded, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return false
	}
	provided, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
