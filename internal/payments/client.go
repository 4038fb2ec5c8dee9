package payments

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/restclient"
)

// Method identifies how the shopper pays.
type Method string

const (
	MethodCOD    Method = "cod"
	MethodWallet Method = "esewa"
)

// RecordStatus is the lifecycle of a payment record.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordVerified RecordStatus = "verified"
	RecordFailed   RecordStatus = "failed"
)

// Record is one payment attempt tracked by the payment service. Amount is the
// provider-facing string and must match the submitted form exactly.
type Record struct {
	ID              int64        `json:"id"`
	OrderID         int64        `json:"order"`
	Amount          string       `json:"amount"`
	Method          Method       `json:"payment_method"`
	Status          RecordStatus `json:"status"`
	TransactionUUID string       `json:"transaction_uuid"`
	CreatedAt       time.Time    `json:"created_at"`
}

// CreateRecordInput is the payload for a new payment record.
type CreateRecordInput struct {
	OrderID         int64  `json:"order"`
	Amount          string `json:"amount"`
	Method          Method `json:"payment_method"`
	TransactionUUID string `json:"transaction_uuid"`
}

// Client talks to the external payment-record service.
type Client struct {
	rest *restclient.Client
}

// NewClient wraps the shared REST client.
func NewClient(rest *restclient.Client) (*Client, error) {
	if rest == nil {
		return nil, fmt.Errorf("rest client required")
	}
	return &Client{rest: rest}, nil
}

// Create registers a new pending payment record.
func (c *Client) Create(ctx context.Context, input CreateRecordInput) (*Record, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var record Record
	if err := c.rest.Post(ctx, "/", input, &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment record")
	}
	return &record, nil
}

// ListForOrder returns every payment record attached to an order.
func (c *Client) ListForOrder(ctx context.Context, orderID int64) ([]Record, error) {
	query := url.Values{"order": []string{strconv.FormatInt(orderID, 10)}}
	var records []Record
	if err := c.rest.Get(ctx, "/", query, &records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment records")
	}
	return records, nil
}

// Delete removes a payment record.
func (c *Client) Delete(ctx context.Context, recordID int64) error {
	if err := c.rest.Delete(ctx, fmt.Sprintf("/%d/", recordID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment record")
	}
	return nil
}

// VerifyInput carries what the provider reported back to us.
type VerifyInput struct {
	TransactionUUID string `json:"transaction_uuid"`
	Amount          string `json:"total_amount"`
	TransactionCode string `json:"transaction_code,omitempty"`
}

// Verify asks the payment service to confirm the transaction against the
// provider. Errors are returned raw so callers can classify the status code.
func (c *Client) Verify(ctx context.Context, input VerifyInput) (*Record, error) {
	var record Record
	if err := c.rest.Post(ctx, "/verify/", input, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
