package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/emarket-np/storefront/api/responses"
	ordersvc "github.com/emarket-np/storefront/internal/orders"
	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/logger"
)

// OrderFetch returns one order, canceling it first if it sat pending past the
// TTL.
func OrderFetch(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || orderID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
