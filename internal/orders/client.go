package orders

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/restclient"
	"github.com/shopspring/decimal"
)

// Status values the order service reports.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
)

// Item is one order line handed to the order service.
type Item struct {
	VariantID int64 `json:"sku"`
	Qty       int   `json:"quantity_at_purchase"`
}

// CreateInput carries the shipping fields and priced totals for a new order.
// The service recalculates the authoritative total itself.
type CreateInput struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Contact      string `json:"contact"`
	Address      string `json:"address"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	TotalAmount  string `json:"total_amount"`
	Tax          string `json:"tax"`
	ShippingCost string `json:"shipping_cost"`
	CouponCode   string `json:"coupon_code,omitempty"`
	Items        []Item `json:"order_item"`
}

// Order is the service's view of a placed order.
type Order struct {
	ID           int64           `json:"id"`
	Status       Status          `json:"status"`
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Client talks to the external order service.
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

// Create submits a new order. Validation rejections surface the backend's
// richest field message.
func (c *Client) Create(ctx context.Context, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	var order Order
	if err := c.rest.Post(ctx, "/", input, &order); err != nil {
		if se, ok := err.(*restclient.StatusError); ok && se.Status < 500 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, se.Message)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return &order, nil
}

// Get fetches one order.
func (c *Client) Get(ctx context.Context, id int64) (*Order, error) {
	var order Order
	if err := c.rest.Get(ctx, fmt.Sprintf("/%d/", id), nil, &order); err != nil {
		if restclient.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// List fetches the caller's orders, newest first.
func (c *Client) List(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.rest.Get(ctx, "/", nil, &orders); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

type patchStatusRequest struct {
	Status Status `json:"status"`
}

// PatchStatus transitions an order's status.
func (c *Client) PatchStatus(ctx context.Context, id int64, status Status) error {
	if err := c.rest.Patch(ctx, fmt.Sprintf("/%d/", id), patchStatusRequest{Status: status}, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "patch order status")
	}
	return nil
}
