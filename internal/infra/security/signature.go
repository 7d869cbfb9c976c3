package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrEmptySecret       = errors.New("signature secret is empty")
	ErrMissingInput      = errors.New("signature input missing")
	ErrSignatureEncoding = errors.New("signature is not hex encoded")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Signer computes and checks hex HMAC-SHA256 signatures with one secret.
// The secret never leaves this type.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the lowercase hex HMAC of payload.
func (s *Signer) Sign(payload []byte) string {
	return hex.EncodeToString(s.mac(payload))
}

// Verify compares signature against the HMAC of payload in constant time.
// The returned errors never describe where a mismatch occurred.
func (s *Signer) Verify(payload []byte, signature string) error {
	if len(payload) == 0 || signature == "" {
		return ErrMissingInput
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrSignatureEncoding
	}
	if !hmac.Equal(got, s.mac(payload)) {
		return ErrSignatureMismatch
	}
	return nil
}

// OrderPayload builds the "{orderID}|{paymentID}" message signed at checkout.
func OrderPayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

// VerifyOrder checks a checkout signature. Missing inputs fail before any
// HMAC is computed.
func (s *Signer) VerifyOrder(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrMissingInput
	}
	return s.Verify(OrderPayload(orderID, paymentID), signature)
}

func (s *Signer) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write(payload)
	return m.Sum(nil)
}
