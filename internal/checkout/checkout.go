package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emarket-np/storefront/internal/cart"
	"github.com/emarket-np/storefront/internal/catalog"
	"github.com/emarket-np/storefront/internal/coupons"
	"github.com/emarket-np/storefront/internal/orders"
	"github.com/emarket-np/storefront/internal/payments"
	"github.com/emarket-np/storefront/pkg/config"
	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/metrics"
	"github.com/emarket-np/storefront/pkg/money"
	"github.com/emarket-np/storefront/pkg/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// CatalogAPI is the slice of the catalog client checkout needs.
type CatalogAPI interface {
	List(ctx context.Context) ([]catalog.Product, error)
	ResolveVariantID(ctx context.Context, productID int64, variantCode string) (int64, error)
}

// CouponAPI validates coupon codes.
type CouponAPI interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*coupons.Validation, error)
}

// ShippingAPI resolves a destination country to a shipping cost.
type ShippingAPI interface {
	CostFor(ctx context.Context, country string) (decimal.Decimal, error)
}

// OrderAPI creates orders.
type OrderAPI interface {
	Create(ctx context.Context, input orders.CreateInput) (*orders.Order, error)
}

// OrderHistoryAPI lists orders with the stale-pending sweep already applied.
type OrderHistoryAPI interface {
	List(ctx context.Context) ([]orders.Order, error)
}

// PaymentAPI manages payment records for submitted orders.
type PaymentAPI interface {
	Create(ctx context.Context, input payments.CreateRecordInput) (*payments.Record, error)
	ListForOrder(ctx context.Context, orderID int64) ([]payments.Record, error)
	Delete(ctx context.Context, recordID int64) error
}

// InvalidVariantError names the exact cart line that failed to resolve so the
// caller can evict it and let the shopper retry.
type InvalidVariantError struct {
	VariantCode string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("variant %s is no longer available", e.VariantCode)
}

// Quote is a priced preview of the current cart.
type Quote struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	CouponCode string          `json:"coupon_code,omitempty"`
}

// RedirectForm is the auto-submitting provider form for wallet payments.
type RedirectForm struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// Submission is the result of one checkout attempt.
type Submission struct {
	State    State            `json:"state"`
	Method   payments.Method  `json:"method"`
	Order    *orders.Order    `json:"order"`
	Record   *payments.Record `json:"record,omitempty"`
	Redirect *RedirectForm    `json:"redirect,omitempty"`
	Quote    Quote            `json:"quote"`
}

// SubmitInput is the form plus whatever is sitting in the coupon input box.
type SubmitInput struct {
	Form Form

	// TypedCouponCode is the raw text of the coupon field. A typed code that
	// was never applied blocks submission without touching the network.
	TypedCouponCode string
}

// History is the order-history page data, fetched with an all-or-fail join.
type History struct {
	Orders   []orders.Order    `json:"orders"`
	Products []catalog.Product `json:"products"`
}

// Orchestrator drives the checkout flow end to end: totals, coupon session,
// order creation, and the payment branch.
type Orchestrator struct {
	cart     *cart.Aggregator
	catalog  CatalogAPI
	coupons  CouponAPI
	shipping ShippingAPI
	orders   OrderAPI
	history  OrderHistoryAPI
	records  PaymentAPI
	signer   *wallet.Signer
	wcfg     config.WalletConfig
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time

	mu            sync.Mutex
	appliedCode   string
	appliedAmount decimal.Decimal
}

// OrchestratorParams configures NewOrchestrator.
type OrchestratorParams struct {
	Cart     *cart.Aggregator
	Catalog  CatalogAPI
	Coupons  CouponAPI
	Shipping ShippingAPI
	Orders   OrderAPI
	History  OrderHistoryAPI
	Records  PaymentAPI
	Signer   *wallet.Signer
	Wallet   config.WalletConfig
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewOrchestrator validates params and builds the orchestrator.
func NewOrchestrator(p OrchestratorParams) (*Orchestrator, error) {
	switch {
	case p.Cart == nil:
		return nil, fmt.Errorf("cart required")
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog api required")
	case p.Coupons == nil:
		return nil, fmt.Errorf("coupon api required")
	case p.Shipping == nil:
		return nil, fmt.Errorf("shipping api required")
	case p.Orders == nil:
		return nil, fmt.Errorf("order api required")
	case p.History == nil:
		return nil, fmt.Errorf("order history api required")
	case p.Records == nil:
		return nil, fmt.Errorf("payment api required")
	case p.Signer == nil:
		return nil, fmt.Errorf("wallet signer required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Orchestrator{
		cart:     p.Cart,
		catalog:  p.Catalog,
		coupons:  p.Coupons,
		shipping: p.Shipping,
		orders:   p.Orders,
		history:  p.History,
		records:  p.Records,
		signer:   p.Signer,
		wcfg:     p.Wallet,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      p.Now,
	}, nil
}

// ApplyCoupon validates the code against the current subtotal and holds the
// discount in session memory. The discount is never persisted.
func (o *Orchestrator) ApplyCoupon(ctx context.Context, code string) (*coupons.Validation, error) {
	code = strings.TrimSpace(code)
	validation, err := o.coupons.Validate(ctx, code, o.cart.Subtotal())
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.appliedCode = code
	o.appliedAmount = validation.Discount
	o.mu.Unlock()
	return validation, nil
}

// RemoveCoupon resets the session discount to zero.
func (o *Orchestrator) RemoveCoupon() {
	o.mu.Lock()
	o.appliedCode = ""
	o.appliedAmount = decimal.Zero
	o.mu.Unlock()
}

// AppliedCoupon returns the session coupon, if any.
func (o *Orchestrator) AppliedCoupon() (string, decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.appliedCode, o.appliedAmount
}

// Quote prices the current cart for a destination country.
func (o *Orchestrator) Quote(ctx context.Context, country string) (*Quote, error) {
	shippingCost, err := o.shipping.CostFor(ctx, country)
	if err != nil {
		return nil, err
	}
	quote := o.buildQuote(shippingCost)
	return &quote, nil
}

func (o *Orchestrator) buildQuote(shippingCost decimal.Decimal) Quote {
	subtotal := o.cart.Subtotal()
	tax := o.cart.Tax()
	code, discount := o.AppliedCoupon()

	total := subtotal.Add(tax).Add(shippingCost).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Quote{
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shippingCost,
		Discount:   discount,
		Total:      money.RoundCents(total),
		CouponCode: code,
	}
}

// Submit runs one checkout attempt. The returned submission carries the
// machine's final state; wallet submissions stop at the redirect form.
func (o *Orchestrator) Submit(ctx context.Context, input SubmitInput) (*Submission, error) {
	machine := NewMachine()
	if err := machine.To(StateSubmitting); err != nil {
		return nil, err
	}
	method := payments.Method(input.Form.PaymentMethod)

	if messages := ValidateForm(input.Form); messages != nil {
		_ = machine.To(StateFormEntry)
		o.metrics.IncSubmission(string(method), "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout form is invalid").WithDetails(messages)
	}

	appliedCode, _ := o.AppliedCoupon()
	typed := strings.TrimSpace(input.TypedCouponCode)
	if typed != "" && !strings.EqualFold(typed, appliedCode) {
		_ = machine.To(StateFormEntry)
		o.metrics.IncSubmission(string(method), "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("coupon %q was typed but never applied; apply or clear it first", typed))
	}

	items := o.cart.Items()
	if len(items) == 0 {
		_ = machine.To(StateFormEntry)
		o.metrics.IncSubmission(string(method), "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	orderItems, err := o.resolveItems(ctx, items)
	if err != nil {
		_ = machine.To(StateFormEntry)
		o.metrics.IncSubmission(string(method), "rejected")
		return nil, err
	}

	shippingCost, err := o.shipping.CostFor(ctx, input.Form.Country)
	if err != nil {
		o.metrics.IncSubmission(string(method), "failed")
		return nil, err
	}
	quote := o.buildQuote(shippingCost)

	order, err := o.orders.Create(ctx, orders.CreateInput{
		FullName:     input.Form.FullName,
		Email:        input.Form.Email,
		Contact:      input.Form.Contact,
		Address:      input.Form.Address,
		City:         input.Form.City,
		PostalCode:   input.Form.PostalCode,
		Country:      input.Form.Country,
		TotalAmount:  quote.Total.StringFixed(2),
		Tax:          quote.Tax.StringFixed(2),
		ShippingCost: quote.Shipping.StringFixed(2),
		CouponCode:   quote.CouponCode,
		Items:        orderItems,
	})
	if err != nil {
		o.metrics.IncSubmission(string(method), "failed")
		return nil, err
	}
	lctx := o.logg.WithOrderID(ctx, strconv.FormatInt(order.ID, 10))

	var submission *Submission
	switch method {
	case payments.MethodCOD:
		submission, err = o.submitCOD(lctx, machine, order, quote)
	case payments.MethodWallet:
		submission, err = o.submitWallet(lctx, machine, order, quote)
	default:
		err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", method))
	}
	if err != nil {
		o.metrics.IncSubmission(string(method), "failed")
		return nil, err
	}

	o.metrics.IncSubmission(string(method), "accepted")
	o.RemoveCoupon()
	if err := o.cart.Clear(ctx); err != nil {
		o.logg.Warn(lctx, fmt.Sprintf("clear cart after checkout: %v", err))
	}
	return submission, nil
}

func (o *Orchestrator) submitCOD(ctx context.Context, machine *Machine, order *orders.Order, quote Quote) (*Submission, error) {
	if err := machine.To(StateOrderCreatedCOD); err != nil {
		return nil, err
	}
	record, err := o.records.Create(ctx, payments.CreateRecordInput{
		OrderID:         order.ID,
		Amount:          money.ProviderAmount(quote.Total),
		Method:          payments.MethodCOD,
		TransactionUUID: payments.NewTransactionUUID(order.ID, o.now()),
	})
	if err != nil {
		return nil, err
	}
	if err := machine.To(StatePaymentRecorded); err != nil {
		return nil, err
	}
	if err := machine.To(StateDone); err != nil {
		return nil, err
	}
	o.logg.Info(ctx, "cash-on-delivery order placed")
	return &Submission{
		State:  machine.Current(),
		Method: payments.MethodCOD,
		Order:  order,
		Record: record,
		Quote:  quote,
	}, nil
}

func (o *Orchestrator) submitWallet(ctx context.Context, machine *Machine, order *orders.Order, quote Quote) (*Submission, error) {
	if err := machine.To(StateOrderCreatedWallet); err != nil {
		return nil, err
	}

	// Exactly one pending record may exist per order before a redirect.
	existing, err := o.records.ListForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	var deleteErr error
	for _, rec := range existing {
		if rec.Status != payments.RecordPending {
			continue
		}
		deleteErr = multierr.Append(deleteErr, o.records.Delete(ctx, rec.ID))
	}
	if deleteErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, deleteErr, "clear stale pending records")
	}

	transactionUUID := payments.NewTransactionUUID(order.ID, o.now())
	amount := money.ProviderAmount(quote.Total)
	record, err := o.records.Create(ctx, payments.CreateRecordInput{
		OrderID:         order.ID,
		Amount:          amount,
		Method:          payments.MethodWallet,
		TransactionUUID: transactionUUID,
	})
	if err != nil {
		return nil, err
	}

	if err := machine.To(StateRedirected); err != nil {
		return nil, err
	}
	o.logg.Info(o.logg.WithTransactionUUID(ctx, transactionUUID), "redirecting to wallet provider")
	return &Submission{
		State:    machine.Current(),
		Method:   payments.MethodWallet,
		Order:    order,
		Record:   record,
		Redirect: o.buildRedirectForm(quote, amount, transactionUUID),
		Quote:    quote,
	}, nil
}

// buildRedirectForm assembles the signed provider form. The signature covers
// total_amount, transaction_uuid and product_code in that exact order.
func (o *Orchestrator) buildRedirectForm(quote Quote, totalAmount, transactionUUID string) *RedirectForm {
	base := quote.Subtotal.Add(quote.Shipping).Sub(quote.Discount)
	if base.IsNegative() {
		base = decimal.Zero
	}
	return &RedirectForm{
		URL: o.wcfg.FormURL,
		Fields: map[string]string{
			"amount":                  money.ProviderAmount(base),
			"tax_amount":              money.ProviderAmount(quote.Tax),
			"total_amount":            totalAmount,
			"transaction_uuid":        transactionUUID,
			"product_code":            o.wcfg.ProductCode,
			"product_service_charge":  "0",
			"product_delivery_charge": "0",
			"success_url":             o.wcfg.SuccessURL,
			"failure_url":             o.wcfg.FailureURL,
			"signed_field_names":      wallet.SignedFieldNames,
			"signature":               o.signer.Signature(totalAmount, transactionUUID, o.wcfg.ProductCode),
		},
	}
}

// resolveItems turns cart lines into order items, re-resolving any line whose
// numeric variant ID is unknown.
func (o *Orchestrator) resolveItems(ctx context.Context, items []cart.LineItem) ([]orders.Item, error) {
	out := make([]orders.Item, 0, len(items))
	for _, item := range items {
		variantID := item.Variant.ID
		if variantID == 0 {
			resolved, err := o.catalog.ResolveVariantID(ctx, item.Product.ID, item.Variant.Code)
			if err != nil {
				if pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
					return nil, &InvalidVariantError{VariantCode: item.Variant.Code}
				}
				return nil, err
			}
			variantID = resolved
		}
		out = append(out, orders.Item{VariantID: variantID, Qty: item.Qty})
	}
	return out, nil
}

// LoadHistory fetches the order list and the catalog concurrently. Either
// failure fails the page.
func (o *Orchestrator) LoadHistory(ctx context.Context) (*History, error) {
	group, gctx := errgroup.WithContext(ctx)

	var (
		orderList []orders.Order
		products  []catalog.Product
	)
	group.Go(func() error {
		var err error
		orderList, err = o.history.List(gctx)
		return err
	})
	group.Go(func() error {
		var err error
		products, err = o.catalog.List(gctx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return &History{Orders: orderList, Products: products}, nil
}
