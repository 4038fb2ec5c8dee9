package catalog

import (
	"context"
	"fmt"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/restclient"
	"github.com/shopspring/decimal"
)

// Variant is one purchasable configuration as the catalog service reports it.
type Variant struct {
	ID         int64           `json:"id"`
	Code       string          `json:"sku_code"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	Attributes []Attribute     `json:"attributes,omitempty"`
}

// Attribute mirrors the ordered (name, value) pairs of a variant.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product is the authoritative catalog record.
type Product struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	SellerID string    `json:"seller"`
	ImageURL string    `json:"image"`
	Variants []Variant `json:"skus"`
}

// Client reads the external catalog service.
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

// GetProduct fetches the authoritative product record.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := c.rest.Get(ctx, fmt.Sprintf("/%d/", id), nil, &product); err != nil {
		if restclient.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// List fetches the full catalog listing.
func (c *Client) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.rest.Get(ctx, "/", nil, &products); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

// ResolveVariantID looks up the stable numeric identifier for a variant code
// on the authoritative product record.
func (c *Client) ResolveVariantID(ctx context.Context, productID int64, variantCode string) (int64, error) {
	product, err := c.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	for _, variant := range product.Variants {
		if variant.Code == variantCode {
			return variant.ID, nil
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found on product %d", variantCode, productID))
}
