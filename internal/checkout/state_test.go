package checkout

import (
	"testing"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
)

func walk(t *testing.T, m *Machine, states ...State) {
	t.Helper()
	for _, next := range states {
		if err := m.To(next); err != nil {
			t.Fatalf("transition %s -> %s: %v", m.Current(), next, err)
		}
	}
}

func TestMachineCODPath(t *testing.T) {
	m := NewMachine()
	walk(t, m, StateSubmitting, StateOrderCreatedCOD, StatePaymentRecorded, StateDone)
	if !m.Terminal() {
		t.Fatal("cod path should end terminal")
	}
}

func TestMachineWalletHappyPath(t *testing.T) {
	m := NewMachine()
	walk(t, m, StateSubmitting, StateOrderCreatedWallet, StateRedirected, StateVerifySuccess, StateDone)
	if !m.Terminal() {
		t.Fatal("wallet path should end terminal")
	}
}

func TestMachineCleanupRetryPath(t *testing.T) {
	m := NewMachine()
	walk(t, m,
		StateSubmitting, StateOrderCreatedWallet, StateRedirected,
		StateCleanupDuplicates, StateRetryVerify, StateVerifyFailure,
		StateOrderAutoCanceled, StatePaymentRecorded, StateDone,
	)
}

func TestMachineValidationBounce(t *testing.T) {
	m := NewMachine()
	walk(t, m, StateSubmitting, StateFormEntry, StateSubmitting)
}

func TestMachineRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		from []State
		to   State
	}{
		{nil, StateDone},
		{nil, StateRedirected},
		{[]State{StateSubmitting, StateOrderCreatedCOD}, StateRedirected},
		{[]State{StateSubmitting, StateOrderCreatedWallet, StateRedirected, StateVerifySuccess, StateDone}, StateSubmitting},
		{[]State{StateSubmitting, StateOrderCreatedWallet, StateRedirected, StateCleanupDuplicates}, StateCleanupDuplicates},
	}
	for _, tc := range cases {
		m := NewMachine()
		walk(t, m, tc.from...)
		err := m.To(tc.to)
		if err == nil {
			t.Fatalf("transition %s -> %s should be rejected", m.Current(), tc.to)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	}
}
