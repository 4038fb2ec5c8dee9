package checkout

import (
	"fmt"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
)

// State is one step of the checkout lifecycle.
type State string

const (
	StateFormEntry          State = "form_entry"
	StateSubmitting         State = "submitting"
	StateOrderCreatedCOD    State = "order_created_cod"
	StatePaymentRecorded    State = "payment_recorded"
	StateOrderCreatedWallet State = "order_created_wallet"
	StateRedirected         State = "redirected"
	StateVerifySuccess      State = "verify_success"
	StateVerifyFailure      State = "verify_failure"
	StateOrderAutoCanceled  State = "order_auto_canceled"
	StateCleanupDuplicates  State = "cleanup_duplicates"
	StateRetryVerify        State = "retry_verify"
	StateDone               State = "done"
)

// transitions enumerates every legal edge of the checkout lifecycle.
var transitions = map[State][]State{
	StateFormEntry:          {StateSubmitting},
	StateSubmitting:         {StateFormEntry, StateOrderCreatedCOD, StateOrderCreatedWallet},
	StateOrderCreatedCOD:    {StatePaymentRecorded},
	StatePaymentRecorded:    {StateDone},
	StateOrderCreatedWallet: {StateRedirected},
	StateRedirected:         {StateVerifySuccess, StateVerifyFailure, StateCleanupDuplicates},
	StateCleanupDuplicates:  {StateRetryVerify},
	StateRetryVerify:        {StateVerifySuccess, StateVerifyFailure},
	StateVerifySuccess:      {StateDone},
	StateVerifyFailure:      {StateOrderAutoCanceled, StatePaymentRecorded, StateDone},
	StateOrderAutoCanceled:  {StatePaymentRecorded, StateDone},
	StateDone:               nil,
}

// Machine tracks one checkout attempt through its lifecycle and rejects
// transitions the flow does not allow.
type Machine struct {
	current State
}

// NewMachine starts a fresh attempt at the form.
func NewMachine() *Machine {
	return &Machine{current: StateFormEntry}
}

// Current returns the present state.
func (m *Machine) Current() State {
	return m.current
}

// To advances the machine or fails with a state-conflict error.
func (m *Machine) To(next State) error {
	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move from %s to %s", m.current, next))
}

// Terminal reports whether the attempt is finished.
func (m *Machine) Terminal() bool {
	return m.current == StateDone
}
