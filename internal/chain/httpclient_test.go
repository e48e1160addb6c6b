package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientGetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts/wallet-1/balance" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("asset") != "TON" {
			t.Errorf("unexpected asset %s", r.URL.Query().Get("asset"))
		}
		w.Write([]byte(`{"balance": 123.45}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	balance, err := c.GetBalance(context.Background(), "wallet-1", "TON")
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if balance != 123.45 {
		t.Errorf("expected 123.45, got %f", balance)
	}
}

func TestHTTPClientSubmitTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transfers" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"tx_ref": "tx-abc"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	txRef, err := c.SubmitTransfer(context.Background(), TransferRequest{
		From:      "a",
		To:        "b",
		Amount:    5,
		Asset:     "TON",
		Payload:   []byte("p"),
		Signature: []byte("s"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if txRef != "tx-abc" {
		t.Errorf("expected tx-abc, got %s", txRef)
	}
}

func TestHTTPClientConfirmationStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "confirmed"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	status, err := c.ConfirmationStatus(context.Background(), "tx-abc")
	if err != nil {
		t.Fatalf("confirmation status failed: %v", err)
	}
	if status != StatusConfirmed {
		t.Errorf("expected confirmed, got %s", status)
	}
}

// Gateway statuses must land on the right side of the transient/permanent
// split, since the settlement retry loop keys off it.
func TestHTTPClientErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		code      ErrorCode
		transient bool
	}{
		{http.StatusTooManyRequests, CodeThrottled, true},
		{http.StatusInternalServerError, CodeTimeout, true},
		{http.StatusBadRequest, CodeInvalidRequest, false},
		{http.StatusPaymentRequired, CodeInsufficientFunds, false},
		{http.StatusForbidden, CodeRejected, false},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		c := NewHTTPClient(srv.URL, time.Second)
		_, err := c.GetBalance(context.Background(), "wallet-1", "TON")
		srv.Close()

		if err == nil {
			t.Errorf("status %d: expected an error", tc.status)
			continue
		}
		if CodeOf(err) != tc.code {
			t.Errorf("status %d: expected code %s, got %v", tc.status, tc.code, err)
		}
		if IsTransient(err) != tc.transient {
			t.Errorf("status %d: expected transient=%v", tc.status, tc.transient)
		}
	}
}

func TestHTTPClientUnreachableNodeIsTransient(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", 100*time.Millisecond)

	_, err := c.GetBalance(context.Background(), "wallet-1", "TON")
	if err == nil {
		t.Fatal("unreachable node must fail")
	}
	if !IsTransient(err) {
		t.Errorf("connection failure should be transient, got %v", err)
	}
}
