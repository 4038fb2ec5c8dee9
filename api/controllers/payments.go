package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/emarket-np/storefront/api/responses"
	paymentsvc "github.com/emarket-np/storefront/internal/payments"
	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/logger"
)

type verificationView struct {
	OrderID         int64  `json:"order_id"`
	TransactionUUID string `json:"transaction_uuid,omitempty"`
	Result          string `json:"result"`
	Message         string `json:"message"`
	OrderCanceled   bool   `json:"order_canceled,omitempty"`
}

func newVerificationView(outcome *paymentsvc.Outcome) verificationView {
	return verificationView{
		OrderID:         outcome.OrderID,
		TransactionUUID: outcome.TransactionUUID,
		Result:          string(outcome.Result),
		Message:         outcome.Message,
		OrderCanceled:   outcome.OrderCanceled,
	}
}

// PaymentSuccessCallback is where the provider redirects the shopper after a
// successful wallet payment. The opaque `data` parameter carries the signed
// transaction payload.
func PaymentSuccessCallback(rec *paymentsvc.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := r.URL.Query().Get("data")
		if data == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing callback data"))
			return
		}
		outcome, err := rec.HandleSuccess(r.Context(), data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if outcome.Result == paymentsvc.ResultFailure {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodePaymentFailed, outcome.Message).WithDetails(newVerificationView(outcome)))
			return
		}
		responses.WriteSuccess(w, newVerificationView(outcome))
	}
}

// PaymentFailureCallback is the provider's failure redirect; `oid` names the
// affected order.
func PaymentFailureCallback(rec *paymentsvc.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseInt(r.URL.Query().Get("oid"), 10, 64)
		if err != nil || orderID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing or invalid oid"))
			return
		}
		outcome, err := rec.HandleFailure(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodePaymentFailed, outcome.Message).WithDetails(newVerificationView(outcome)))
	}
}

// PaymentSwitchCOD converts a failed wallet attempt to cash on delivery.
func PaymentSwitchCOD(rec *paymentsvc.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil || orderID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}
		record, err := rec.SwitchToCOD(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
