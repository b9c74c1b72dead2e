package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var errSecretRequired = errors.New("payment key secret is required")

// Signer computes and checks provider callback signatures. A signature is the
// hex HMAC-SHA256 of "providerOrderID|providerPaymentID".
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errSecretRequired
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) Sign(providerOrderID, providerPaymentID string) string {
	return hex.EncodeToString(s.mac(providerOrderID, providerPaymentID))
}

// Verify reports whether signature matches. Comparison runs in constant time.
func (s *Signer) Verify(providerOrderID, providerPaymentID, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(got, s.mac(providerOrderID, providerPaymentID))
}

func (s *Signer) mac(providerOrderID, providerPaymentID string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return h.Sum(nil)
}
