package wallet

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// SignedFieldNames is the exact field list, in signing order, that the wallet
// provider verifies. Changing the order or the rendered amount string breaks
// the transaction on the provider side.
const SignedFieldNames = "total_amount,transaction_uuid,product_code"

// Signer computes the message-authentication code for redirect form posts.
type Signer struct {
	secret []byte
}

// NewSigner builds a signer for the shared provider secret.
func NewSigner(secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("wallet secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Signature signs the comma-joined key=value string of the three signed
// fields and returns the base64 digest.
func (s *Signer) Signature(totalAmount, transactionUUID, productCode string) string {
	message := fmt.Sprintf(
		"total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, productCode,
	)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the provided signature matches the signed fields.
func (s *Signer) Verify(totalAmount, transactionUUID, productCode, signature string) bool {
	expected := s.Signature(totalAmount, transactionUUID, productCode)
	return hmac.Equal([]byte(expected), []byte(signature))
}
