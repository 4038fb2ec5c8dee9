package coupons

import (
	"context"
	"fmt"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/money"
	"github.com/emarket-np/storefront/pkg/restclient"
	"github.com/shopspring/decimal"
)

// Validation is the coupon service's answer for a (code, subtotal) pair.
type Validation struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message"`
}

// Client validates coupon codes against the external coupon service.
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

type validateRequest struct {
	Code     string `json:"code"`
	Subtotal string `json:"subtotal"`
}

// Validate asks the service whether code applies at the given subtotal and
// returns the confirmed discount amount.
func (c *Client) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Validation, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	req := validateRequest{Code: code, Subtotal: subtotal.StringFixed(2)}
	var result Validation
	if err := c.rest.Post(ctx, "/validate/", req, &result); err != nil {
		if se, ok := err.(*restclient.StatusError); ok && se.Status < 500 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, se.Message)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate coupon")
	}
	if !result.Valid {
		msg := result.Message
		if msg == "" {
			msg = "coupon is not valid for this order"
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
	if result.Discount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coupon service returned a negative discount")
	}
	result.Discount = money.RoundCents(result.Discount)
	return &result, nil
}
