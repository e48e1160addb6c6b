package chain_test

import (
	"errors"
	"fmt"
	"testing"

	"chaindice-backend/internal/chain"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		code chain.ErrorCode
		want bool
	}{
		{chain.CodeTimeout, true},
		{chain.CodeThrottled, true},
		{chain.CodeStaleRoute, true},
		{chain.CodeUnregisteredSigner, false},
		{chain.CodeInsufficientFunds, false},
		{chain.CodeRejected, false},
		{chain.CodeInvalidRequest, false},
	}

	for _, tc := range cases {
		err := chain.NewError(tc.code, "test")
		if got := chain.IsTransient(err); got != tc.want {
			t.Errorf("IsTransient(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsTransientWrapped(t *testing.T) {
	inner := chain.NewError(chain.CodeInsufficientFunds, "balance too low")
	wrapped := fmt.Errorf("submit failed: %w", inner)

	if chain.IsTransient(wrapped) {
		t.Error("wrapped permanent error should stay permanent")
	}
	if chain.CodeOf(wrapped) != chain.CodeInsufficientFunds {
		t.Errorf("CodeOf should see through wrapping, got %s", chain.CodeOf(wrapped))
	}
}

func TestIsTransientUnknownError(t *testing.T) {
	if !chain.IsTransient(errors.New("connection reset by peer")) {
		t.Error("unclassified errors should be treated as transient")
	}
}
