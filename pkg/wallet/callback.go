package wallet

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// CallbackPayload is the decoded body of the provider's success redirect.
// The provider base64-encodes this JSON document into a single `data` query
// parameter when it hands the browser back.
type CallbackPayload struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// Provider status strings observed on callbacks.
const (
	StatusComplete = "COMPLETE"
	StatusPending  = "PENDING"
	StatusCanceled = "CANCELED"
)

// DecodeCallback parses the opaque redirect parameter.
func DecodeCallback(data string) (*CallbackPayload, error) {
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("empty callback data")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		// Some providers emit URL-safe base64 on the redirect.
		raw, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("decode callback data: %w", err)
		}
	}
	var payload CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse callback data: %w", err)
	}
	if payload.TransactionUUID == "" {
		return nil, fmt.Errorf("callback data missing transaction_uuid")
	}
	return &payload, nil
}

// EncodeCallback is the inverse of DecodeCallback, used by tests and the
// provider stub.
func EncodeCallback(payload CallbackPayload) string {
	raw, _ := json.Marshal(payload)
	return base64.StdEncoding.EncodeToString(raw)
}

// OrderIDFromTransactionUUID recovers the order identifier from a per-attempt
// transaction UUID of the form "<orderID>-<suffix>". A bare order ID passes
// through unchanged.
func OrderIDFromTransactionUUID(transactionUUID string) string {
	if idx := strings.Index(transactionUUID, "-"); idx > 0 {
		return transactionUUID[:idx]
	}
	return transactionUUID
}
