package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to a ledger gateway node over its JSON API. It maps
// transport and gateway failures onto the error taxonomy so the settlement
// retry loop can classify them.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetBalance(ctx context.Context, owner, asset string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/balance?asset=%s",
		c.baseURL, url.PathEscape(owner), url.QueryEscape(asset))

	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *HTTPClient) SubmitTransfer(ctx context.Context, req TransferRequest) (string, error) {
	body, err := json.Marshal(map[string]any{
		"from":      req.From,
		"to":        req.To,
		"amount":    req.Amount,
		"asset":     req.Asset,
		"payload":   base64.StdEncoding.EncodeToString(req.Payload),
		"signature": base64.StdEncoding.EncodeToString(req.Signature),
	})
	if err != nil {
		return "", NewError(CodeInvalidRequest, "failed to encode transfer: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return "", NewError(CodeInvalidRequest, "failed to build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", NewError(CodeTimeout, "transfer submission failed: %v", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return "", err
	}

	var out struct {
		TxRef string `json:"tx_ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", NewError(CodeTimeout, "malformed submit response: %v", err)
	}
	if out.TxRef == "" {
		return "", NewError(CodeRejected, "node accepted transfer but returned no reference")
	}
	return out.TxRef, nil
}

func (c *HTTPClient) ConfirmationStatus(ctx context.Context, txRef string) (ConfirmationStatus, error) {
	endpoint := fmt.Sprintf("%s/v1/transfers/%s", c.baseURL, url.PathEscape(txRef))

	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return "", err
	}

	switch ConfirmationStatus(out.Status) {
	case StatusPending, StatusConfirmed, StatusRejected:
		return ConfirmationStatus(out.Status), nil
	default:
		return "", NewError(CodeStaleRoute, "unknown confirmation status %q", out.Status)
	}
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewError(CodeInvalidRequest, "failed to build request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return NewError(CodeTimeout, "node request failed: %v", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError(CodeTimeout, "malformed node response: %v", err)
	}
	return nil
}

func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return NewError(CodeThrottled, "node throttled the request")
	case status == http.StatusBadRequest:
		return NewError(CodeInvalidRequest, "node rejected the request as malformed")
	case status == http.StatusPaymentRequired || status == http.StatusUnprocessableEntity:
		return NewError(CodeInsufficientFunds, "node reported insufficient funds")
	case status >= 500:
		return NewError(CodeTimeout, "node error %d", status)
	default:
		return NewError(CodeRejected, "node returned status %d", status)
	}
}

var _ Client = (*HTTPClient)(nil)
