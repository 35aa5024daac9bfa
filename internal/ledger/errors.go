// Package ledger implements the pure core of the invoicing ledger: totals
// calculation, the invoice status state machine, payment application, and
// quota arithmetic. Everything here is side-effect free; repositories run
// these rules inside row-locked transactions and persist the result.
package ledger

import "errors"

// Error kinds surfaced to callers. Only ErrContention is safe to retry.
var (
	ErrInvalidLineItem   = errors.New("invalid line item")
	ErrInvalidDiscount   = errors.New("invalid discount")
	ErrInvalidTaxRate    = errors.New("invalid tax rate")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrInvoiceImmutable  = errors.New("invoice is paid and immutable")

	ErrInvalidPaymentAmount    = errors.New("payment amount must be positive")
	ErrPaymentExceedsAmountDue = errors.New("payment exceeds amount due")
	ErrInvoiceAlreadyPaid      = errors.New("invoice already paid")
	ErrPaymentImmutable        = errors.New("completed payment is immutable")
	ErrTotalBelowAmountPaid    = errors.New("total cannot drop below amount already paid")

	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrNoSubscription  = errors.New("no subscription")
	ErrUnknownPlan     = errors.New("unknown plan")
	ErrInvalidResource = errors.New("unknown quota resource")

	// ErrNotFound covers both absence and rows owned by another account,
	// so existence never leaks across tenants.
	ErrNotFound = errors.New("not found")

	// ErrContention means a row lock could not be acquired in bounded
	// time. Callers should retry with backoff.
	ErrContention = errors.New("contention, retry")
)
