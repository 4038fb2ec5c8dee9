package wallet

import (
	"testing"
)

func TestSignatureIsDeterministic(t *testing.T) {
	signer, err := NewSigner("8gBm/:&EnhH.1/q")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	first := signer.Signature("100", "7-123", "EPAYTEST")
	second := signer.Signature("100", "7-123", "EPAYTEST")
	if first != second {
		t.Fatalf("signature not deterministic: %q vs %q", first, second)
	}
	if first == "" {
		t.Fatal("empty signature")
	}

	if signer.Signature("100.50", "7-123", "EPAYTEST") == first {
		t.Fatal("changing the amount must change the digest")
	}
	if signer.Signature("100", "7-124", "EPAYTEST") == first {
		t.Fatal("changing the transaction uuid must change the digest")
	}
	if signer.Signature("100", "7-123", "OTHER") == first {
		t.Fatal("changing the product code must change the digest")
	}

	if !signer.Verify("100", "7-123", "EPAYTEST", first) {
		t.Fatal("expected signature to verify")
	}
	if signer.Verify("100", "7-123", "EPAYTEST", "bogus") {
		t.Fatal("expected bogus signature to fail")
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestDecodeCallbackRoundTrip(t *testing.T) {
	payload := CallbackPayload{
		TransactionCode:  "000AWEO",
		Status:           StatusComplete,
		TotalAmount:      "282.50",
		TransactionUUID:  "17-1700000000",
		ProductCode:      "EPAYTEST",
		SignedFieldNames: SignedFieldNames,
		Signature:        "abc=",
	}

	decoded, err := DecodeCallback(EncodeCallback(payload))
	if err != nil {
		t.Fatalf("DecodeCallback: %v", err)
	}
	if *decoded != payload {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestDecodeCallbackRejectsBadInput(t *testing.T) {
	if _, err := DecodeCallback(""); err == nil {
		t.Fatal("expected error for empty data")
	}
	if _, err := DecodeCallback("!!!not-base64!!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestOrderIDFromTransactionUUID(t *testing.T) {
	if got := OrderIDFromTransactionUUID("17-1700000000"); got != "17" {
		t.Fatalf("got %q, want 17", got)
	}
	if got := OrderIDFromTransactionUUID("17"); got != "17" {
		t.Fatalf("got %q, want 17", got)
	}
	// Retry suffixes keep only the first split.
	if got := OrderIDFromTransactionUUID("17-1700000000-2"); got != "17" {
		t.Fatalf("got %q, want 17", got)
	}
}
