package shipping

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/restclient"
	"github.com/shopspring/decimal"
)

// ZoneRate maps a shipping zone to its flat rate.
type ZoneRate struct {
	Zone string          `json:"zone"`
	Rate decimal.Decimal `json:"rate"`
}

// Client reads the external shipping-rate service.
type Client struct {
	rest        *restclient.Client
	homeCountry string
}

// NewClient wraps the shared REST client. homeCountry picks the national
// zone; every other destination uses the international zone.
func NewClient(rest *restclient.Client, homeCountry string) (*Client, error) {
	if rest == nil {
		return nil, fmt.Errorf("rest client required")
	}
	if strings.TrimSpace(homeCountry) == "" {
		return nil, fmt.Errorf("home country required")
	}
	return &Client{rest: rest, homeCountry: homeCountry}, nil
}

const (
	zoneNational      = "national"
	zoneInternational = "international"
)

// Rates lists the zone rate table.
func (c *Client) Rates(ctx context.Context) ([]ZoneRate, error) {
	var rates []ZoneRate
	if err := c.rest.Get(ctx, "/rates/", nil, &rates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping rates")
	}
	return rates, nil
}

// CostFor resolves a destination country to its shipping cost. An unknown
// zone costs zero, matching the backend default.
func (c *Client) CostFor(ctx context.Context, country string) (decimal.Decimal, error) {
	rates, err := c.Rates(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	zone := zoneInternational
	if strings.EqualFold(strings.TrimSpace(country), c.homeCountry) {
		zone = zoneNational
	}
	for _, rate := range rates {
		if strings.EqualFold(rate.Zone, zone) {
			return rate.Rate, nil
		}
	}
	return decimal.Zero, nil
}
