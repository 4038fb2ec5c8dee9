package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "call payment service")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be findable")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", err.Code())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	inner := New(CodeNotFound, "order not found")
	outer := fmt.Errorf("while verifying: %w", inner)
	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestRemoteMessagePriorityChain(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		cause error
		want  string
	}{
		{
			name: "field specific error wins",
			body: `{"order_item":["invalid sku"],"detail":"bad request"}`,
			want: "invalid sku",
		},
		{
			name: "detail when no field errors",
			body: `{"detail":"coupon expired"}`,
			want: "coupon expired",
		},
		{
			name: "error key as third choice",
			body: `{"error":"verification failed"}`,
			want: "verification failed",
		},
		{
			name:  "cause message when body is opaque",
			body:  `not-json`,
			cause: stdErrors.New("connection refused"),
			want:  "connection refused",
		},
		{
			name: "generic fallback",
			body: ``,
			want: "something went wrong",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := DecodeRemotePayload([]byte(tc.body))
			got := RemoteMessage(payload, tc.cause, "something went wrong")
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
