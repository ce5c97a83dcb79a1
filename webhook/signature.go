package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// request body. The header carries "sha256=<hex digest>" of an HMAC-SHA256
// over the body keyed with the app secret. An empty secret disables
// verification; an empty header with a configured secret fails.
func VerifySignature(secret, header string, body []byte) bool {
	if secret == "" {
		return true
	}
	digest, ok := strings.CutPrefix(header, "sha256=")
	if !ok || digest == "" {
		return false
	}
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(want, mac.Sum(nil))
}
