package controllers

import (
	"net/http"

	"github.com/emarket-np/storefront/api/responses"
	"github.com/emarket-np/storefront/api/validators"
	checkoutsvc "github.com/emarket-np/storefront/internal/checkout"
	"github.com/emarket-np/storefront/pkg/logger"
)

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

type couponView struct {
	Code     string `json:"code"`
	Discount string `json:"discount"`
}

// CouponApply validates the code against the current subtotal and holds the
// discount for the rest of the session.
func CouponApply(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		validation, err := orch.ApplyCoupon(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, couponView{
			Code:     payload.Code,
			Discount: validation.Discount.StringFixed(2),
		})
	}
}

// CouponRemove clears the session discount.
func CouponRemove(orch *checkoutsvc.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch.RemoveCoupon()
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
