package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/emarket-np/storefront/internal/orders"
	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/metrics"
	"github.com/emarket-np/storefront/pkg/money"
	"github.com/emarket-np/storefront/pkg/restclient"
	"github.com/emarket-np/storefront/pkg/wallet"
)

// RecordAPI is the slice of the payment-record client the reconciler needs.
type RecordAPI interface {
	Create(ctx context.Context, input CreateRecordInput) (*Record, error)
	ListForOrder(ctx context.Context, orderID int64) ([]Record, error)
	Delete(ctx context.Context, recordID int64) error
	Verify(ctx context.Context, input VerifyInput) (*Record, error)
}

// OrderAPI is the slice of the order client the reconciler needs.
type OrderAPI interface {
	Get(ctx context.Context, id int64) (*orders.Order, error)
	PatchStatus(ctx context.Context, id int64, status orders.Status) error
}

// Result classifies the end state of a reconciliation pass.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Outcome is what the callback controllers render to the shopper.
type Outcome struct {
	OrderID         int64
	TransactionUUID string
	Result          Result
	Message         string

	// RetriedCleanup is set when duplicate pending records were deleted and
	// verification was retried.
	RetriedCleanup bool

	// OrderCanceled is set when the failed online attempt auto-canceled the
	// order.
	OrderCanceled bool
}

// Reconciler drives wallet-callback verification and its remediation paths.
type Reconciler struct {
	records RecordAPI
	orders  OrderAPI
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// ReconcilerParams configures NewReconciler.
type ReconcilerParams struct {
	Records RecordAPI
	Orders  OrderAPI
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewReconciler validates params and builds the reconciler.
func NewReconciler(p ReconcilerParams) (*Reconciler, error) {
	if p.Records == nil {
		return nil, fmt.Errorf("record api required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("order api required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Reconciler{
		records: p.Records,
		orders:  p.Orders,
		metrics: p.Metrics,
		logg:    p.Logger,
		now:     p.Now,
	}, nil
}

// NewTransactionUUID derives the per-attempt provider identifier. The order ID
// prefix lets callbacks recover the order without extra state.
func NewTransactionUUID(orderID int64, t time.Time) string {
	return fmt.Sprintf("%d-%d", orderID, t.Unix())
}

// HandleSuccess reconciles the provider's success redirect. The redirect alone
// proves nothing; the payment service must confirm the transaction.
func (r *Reconciler) HandleSuccess(ctx context.Context, data string) (*Outcome, error) {
	payload, err := wallet.DecodeCallback(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable callback data")
	}

	orderID, err := strconv.ParseInt(wallet.OrderIDFromTransactionUUID(payload.TransactionUUID), 10, 64)
	if err != nil || orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("transaction uuid %q carries no order id", payload.TransactionUUID))
	}

	lctx := r.logg.WithTransactionUUID(ctx, payload.TransactionUUID)
	lctx = r.logg.WithOrderID(lctx, strconv.FormatInt(orderID, 10))

	if payload.Status != wallet.StatusComplete {
		r.logg.Warn(lctx, fmt.Sprintf("provider reported status %s", payload.Status))
		return r.fail(lctx, orderID, payload.TransactionUUID, fmt.Sprintf("payment not completed (provider status %s)", payload.Status)), nil
	}

	// The provider re-renders the number on the redirect ("500.0"), so the
	// callback amount goes back through the canonical formatting before it
	// reaches the verify endpoint.
	amount, err := money.ParseAmount(payload.TotalAmount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable callback amount")
	}

	input := VerifyInput{
		TransactionUUID: payload.TransactionUUID,
		Amount:          money.ProviderAmount(amount),
		TransactionCode: payload.TransactionCode,
	}

	if _, err := r.records.Verify(ctx, input); err != nil {
		return r.classifyVerifyFailure(lctx, orderID, input, err), nil
	}
	return r.succeed(lctx, orderID, payload.TransactionUUID), nil
}

// HandleFailure reconciles the provider's failure redirect.
func (r *Reconciler) HandleFailure(ctx context.Context, orderID int64) (*Outcome, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	lctx := r.logg.WithOrderID(ctx, strconv.FormatInt(orderID, 10))
	r.logg.Warn(lctx, "provider redirected to the failure url")
	return r.fail(lctx, orderID, "", "payment was declined or abandoned at the provider"), nil
}

func (r *Reconciler) classifyVerifyFailure(ctx context.Context, orderID int64, input VerifyInput, verifyErr error) *Outcome {
	var se *restclient.StatusError
	if !errors.As(verifyErr, &se) {
		r.logg.Error(ctx, "verification transport failure", verifyErr)
		return r.fail(ctx, orderID, input.TransactionUUID, "payment could not be verified")
	}

	switch {
	case restclient.IsNotFound(verifyErr):
		// The record can be missing because a parallel confirmation already
		// consumed it. A moved-on order proves the payment landed.
		order, err := r.orders.Get(ctx, orderID)
		if err == nil && order.Status != orders.StatusPending {
			r.logg.Info(ctx, "verification confirmed out of band")
			return r.succeed(ctx, orderID, input.TransactionUUID)
		}
		return r.fail(ctx, orderID, input.TransactionUUID, "no payment record matches this transaction")

	case restclient.IsServerError(verifyErr):
		outcome, handled := r.cleanupDuplicatesAndRetry(ctx, orderID, input)
		if handled {
			return outcome
		}
		return r.fail(ctx, orderID, input.TransactionUUID, "payment service is unavailable, verification failed")

	default:
		return r.fail(ctx, orderID, input.TransactionUUID, se.Message)
	}
}

// cleanupDuplicatesAndRetry handles the known 5xx mode where duplicate pending
// records confuse the verify endpoint. It keeps the record matching the
// current transaction UUID, falls back to the most recent, deletes the rest,
// and retries verification exactly once.
func (r *Reconciler) cleanupDuplicatesAndRetry(ctx context.Context, orderID int64, input VerifyInput) (*Outcome, bool) {
	records, err := r.records.ListForOrder(ctx, orderID)
	if err != nil {
		r.logg.Error(ctx, "list records for duplicate cleanup", err)
		return nil, false
	}

	var pendings []Record
	for _, rec := range records {
		if rec.Status == RecordPending {
			pendings = append(pendings, rec)
		}
	}
	if len(pendings) <= 1 {
		return nil, false
	}

	keep := retainedRecord(pendings, input.TransactionUUID)
	for _, rec := range pendings {
		if rec.ID == keep.ID {
			continue
		}
		if err := r.records.Delete(ctx, rec.ID); err != nil {
			r.logg.Error(ctx, fmt.Sprintf("delete duplicate record %d", rec.ID), err)
		}
	}
	r.logg.Info(ctx, fmt.Sprintf("removed %d duplicate pending records, retrying verification", len(pendings)-1))

	if _, err := r.records.Verify(ctx, input); err != nil {
		outcome := r.fail(ctx, orderID, input.TransactionUUID, "verification failed after duplicate cleanup")
		outcome.RetriedCleanup = true
		return outcome, true
	}
	outcome := r.succeed(ctx, orderID, input.TransactionUUID)
	outcome.RetriedCleanup = true
	return outcome, true
}

// retainedRecord picks which pending record survives duplicate cleanup.
func retainedRecord(pendings []Record, currentUUID string) Record {
	for _, rec := range pendings {
		if currentUUID != "" && rec.TransactionUUID == currentUUID {
			return rec
		}
	}
	keep := pendings[0]
	for _, rec := range pendings[1:] {
		if rec.CreatedAt.After(keep.CreatedAt) {
			keep = rec
		}
	}
	return keep
}

func (r *Reconciler) succeed(ctx context.Context, orderID int64, transactionUUID string) *Outcome {
	if err := r.orders.PatchStatus(ctx, orderID, orders.StatusProcessing); err != nil {
		r.logg.Error(ctx, "advance order after verified payment", err)
	}
	r.metrics.IncVerification(string(ResultSuccess))
	r.logg.Info(ctx, "payment verified")
	return &Outcome{
		OrderID:         orderID,
		TransactionUUID: transactionUUID,
		Result:          ResultSuccess,
		Message:         "payment verified",
	}
}

// fail records a failed online attempt. The order is auto-canceled only when a
// wallet record exists: COD-only orders and orders with no payment records are
// left alone.
func (r *Reconciler) fail(ctx context.Context, orderID int64, transactionUUID, message string) *Outcome {
	outcome := &Outcome{
		OrderID:         orderID,
		TransactionUUID: transactionUUID,
		Result:          ResultFailure,
		Message:         message,
	}
	r.metrics.IncVerification(string(ResultFailure))

	records, err := r.records.ListForOrder(ctx, orderID)
	if err != nil {
		r.logg.Error(ctx, "list records after failed verification", err)
		return outcome
	}
	hasWallet := false
	for _, rec := range records {
		if rec.Method == MethodWallet {
			hasWallet = true
			break
		}
	}
	if len(records) == 0 || !hasWallet {
		return outcome
	}

	if err := r.orders.PatchStatus(ctx, orderID, orders.StatusCanceled); err != nil {
		r.logg.Error(ctx, "cancel order after failed payment", err)
		return outcome
	}
	outcome.OrderCanceled = true
	r.logg.Warn(ctx, "order auto-canceled after failed online payment")
	return outcome
}

// SwitchToCOD converts a failed wallet attempt to cash on delivery. Pending
// records are wiped, the order returns to pending, and a single fresh COD
// record is created.
func (r *Reconciler) SwitchToCOD(ctx context.Context, orderID int64) (*Record, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	lctx := r.logg.WithOrderID(ctx, strconv.FormatInt(orderID, 10))

	order, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	records, err := r.records.ListForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Status != RecordPending {
			continue
		}
		if err := r.records.Delete(ctx, rec.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("delete pending record %d", rec.ID))
		}
	}

	if order.Status != orders.StatusPending {
		if err := r.orders.PatchStatus(ctx, orderID, orders.StatusPending); err != nil {
			return nil, err
		}
	}

	record, err := r.records.Create(ctx, CreateRecordInput{
		OrderID:         orderID,
		Amount:          money.ProviderAmount(order.TotalAmount),
		Method:          MethodCOD,
		TransactionUUID: NewTransactionUUID(orderID, r.now()),
	})
	if err != nil {
		return nil, err
	}
	r.logg.Info(lctx, "payment switched to cash on delivery")
	return record, nil
}
