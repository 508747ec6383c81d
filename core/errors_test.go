package core

import (
	"context"
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestNewError_UsesRPCCodesForWireErrors(t *testing.T) {
	err := NewError("rpc: method not found", goerrors.CategoryNotFound, ErrorMethodNotFound, map[string]any{"method": "foo"})
	if err.Code != RPCCodeMethodNotFound {
		t.Fatalf("expected %d, got %d", RPCCodeMethodNotFound, err.Code)
	}
	if err.TextCode != ErrorMethodNotFound {
		t.Fatalf("expected text code %q, got %q", ErrorMethodNotFound, err.TextCode)
	}

	denied := NewError("provider: authorization denied", goerrors.CategoryAuth, ErrorAuthorizationDenied, nil)
	if denied.Code != http.StatusUnauthorized {
		t.Fatalf("expected auth status code, got %d", denied.Code)
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{errors.New("method not found: foo"), ErrorMethodNotFound},
		{errors.New("challenge rejected"), ErrorChallengeFailed},
		{errors.New("channel disposed"), ErrorDisposed},
		{errors.New("source is required"), ErrorBadInput},
		{NewError("x", goerrors.CategoryAuthz, ErrorNotAuthorized, nil), ErrorNotAuthorized},
	}
	for _, tc := range cases {
		mapped := MapError(tc.err)
		if mapped.TextCode != tc.code {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.code, mapped.TextCode)
		}
	}
	if MapError(nil) != nil {
		t.Fatalf("expected nil mapping for nil error")
	}
}

func TestRPCCodeRoundTrip(t *testing.T) {
	for _, code := range []string{ErrorMethodNotFound, ErrorHandlerFailed, ErrorNotAuthorized, ErrorDisposed, ErrorInternal} {
		if got := TextCodeForRPC(RPCCode(code)); got != code {
			t.Fatalf("expected %q after round trip, got %q", code, got)
		}
	}
}

func TestWrapError_KeepsTextCode(t *testing.T) {
	err := WrapError(errors.New("boom"), goerrors.CategoryOperation, "rpc: handler failed", ErrorHandlerFailed, nil)
	if !HasTextCode(err, ErrorHandlerFailed) {
		t.Fatalf("expected handler failed text code, got %q", TextCode(err))
	}
	if TextCode(errors.New("plain")) != "" {
		t.Fatalf("expected empty text code for plain errors")
	}
}

func TestMemoryErrorReporter(t *testing.T) {
	reporter := &MemoryErrorReporter{}
	reporter.ReportUncaught(context.Background(), errors.New("first"))
	reporter.ReportUncaught(context.Background(), nil)
	if got := len(reporter.Errors()); got != 1 {
		t.Fatalf("expected 1 reported error, got %d", got)
	}
}
