package controllers

import (
	"errors"
	"net/http"

	"github.com/emarket-np/storefront/api/responses"
	"github.com/emarket-np/storefront/api/validators"
	cartsvc "github.com/emarket-np/storefront/internal/cart"
	checkoutsvc "github.com/emarket-np/storefront/internal/checkout"
	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/logger"
)

type quoteRequest struct {
	Country string `json:"country" validate:"required"`
}

type submitRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Contact         string `json:"contact"`
	Address         string `json:"address"`
	City            string `json:"city"`
	PostalCode      string `json:"postal_code"`
	Country         string `json:"country"`
	PaymentMethod   string `json:"payment_method"`
	TypedCouponCode string `json:"typed_coupon_code"`
}

// CheckoutQuote prices the current cart for a destination country.
func CheckoutQuote(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := orch.Quote(r.Context(), payload.Country)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CheckoutSubmit places the order. Field-level validation problems come back
// as a message per field; an unresolvable variant is evicted from the cart so
// the shopper can retry immediately.
func CheckoutSubmit(orch *checkoutsvc.Orchestrator, agg *cartsvc.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		submission, err := orch.Submit(r.Context(), checkoutsvc.SubmitInput{
			Form: checkoutsvc.Form{
				FullName:      payload.FullName,
				Email:         payload.Email,
				Contact:       payload.Contact,
				Address:       payload.Address,
				City:          payload.City,
				PostalCode:    payload.PostalCode,
				Country:       payload.Country,
				PaymentMethod: payload.PaymentMethod,
			},
			TypedCouponCode: payload.TypedCouponCode,
		})
		if err != nil {
			var invalid *checkoutsvc.InvalidVariantError
			if errors.As(err, &invalid) {
				if removeErr := agg.RemoveItem(r.Context(), invalid.VariantCode); removeErr != nil {
					logg.Error(r.Context(), "evict unavailable variant", removeErr)
				}
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeConflict, invalid.Error()).
						WithDetails(map[string]string{"variant_code": invalid.VariantCode}))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submission)
	}
}

// OrderHistory returns the shopper's orders alongside the product catalog,
// fetched concurrently.
func OrderHistory(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := orch.LoadHistory(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
