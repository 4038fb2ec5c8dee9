package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emarket-np/storefront/api/responses"
	"github.com/emarket-np/storefront/api/validators"
	cartsvc "github.com/emarket-np/storefront/internal/cart"
	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/money"
)

type cartAttribute struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

type addCartItemRequest struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	ProductName string          `json:"product_name" validate:"required"`
	SellerID    string          `json:"seller_id" validate:"required"`
	ImageURL    string          `json:"image_url"`
	VariantID   int64           `json:"variant_id"`
	VariantCode string          `json:"variant_code" validate:"required"`
	Price       string          `json:"price" validate:"required"`
	StockLimit  int             `json:"stock_limit"`
	Attributes  []cartAttribute `json:"attributes,omitempty" validate:"dive"`
	Qty         int             `json:"qty" validate:"required,gt=0"`
}

type setQuantityRequest struct {
	Qty int `json:"qty"`
}

type cartSellerGroup struct {
	SellerID string             `json:"seller_id"`
	Items    []cartsvc.LineItem `json:"items"`
}

type cartView struct {
	Items              []cartsvc.LineItem `json:"items"`
	Count              int                `json:"count"`
	Subtotal           string             `json:"subtotal"`
	Tax                string             `json:"tax"`
	GrandTotal         string             `json:"grand_total"`
	Sellers            []cartSellerGroup  `json:"sellers"`
	HasMultipleSellers bool               `json:"has_multiple_sellers"`
}

func newCartView(agg *cartsvc.Aggregator) cartView {
	groups := agg.GroupBySeller()
	sellers := make([]cartSellerGroup, 0, len(groups))
	for _, group := range groups {
		sellers = append(sellers, cartSellerGroup{SellerID: group.SellerID, Items: group.Items})
	}
	return cartView{
		Items:              agg.Items(),
		Count:              agg.Count(),
		Subtotal:           agg.Subtotal().StringFixed(2),
		Tax:                agg.Tax().StringFixed(2),
		GrandTotal:         agg.GrandTotal().StringFixed(2),
		Sellers:            sellers,
		HasMultipleSellers: agg.HasMultipleSellers(),
	}
}

// CartFetch returns the current cart with derived totals.
func CartFetch(agg *cartsvc.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCartView(agg))
	}
}

// CartAdd adds a variant or increments its quantity.
func CartAdd(agg *cartsvc.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := money.ParseAmount(payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		attributes := make([]cartsvc.Attribute, 0, len(payload.Attributes))
		for _, attr := range payload.Attributes {
			attributes = append(attributes, cartsvc.Attribute{Name: attr.Name, Value: attr.Value})
		}

		err = agg.AddItem(r.Context(),
			cartsvc.ProductRef{
				ID:       payload.ProductID,
				Name:     payload.ProductName,
				SellerID: payload.SellerID,
				ImageURL: payload.ImageURL,
			},
			cartsvc.VariantRef{
				ID:         payload.VariantID,
				Code:       payload.VariantCode,
				Price:      price,
				StockLimit: payload.StockLimit,
				Attributes: attributes,
			},
			payload.Qty,
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartView(agg))
	}
}

// CartRemove deletes a line item; unknown codes are a silent no-op.
func CartRemove(agg *cartsvc.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "variantCode")
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "variant code is required"))
			return
		}
		if err := agg.RemoveItem(r.Context(), code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(agg))
	}
}

// CartSetQuantity replaces a line's quantity; zero or less removes the line.
func CartSetQuantity(agg *cartsvc.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "variantCode")
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "variant code is required"))
			return
		}
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := agg.SetQuantity(r.Context(), code, payload.Qty); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(agg))
	}
}
