// Package chain defines the contracts the engine consumes from the external
// ledger network and the wallet key store. The engine never talks to a node
// or touches key material except through these interfaces.
package chain

import "context"

type ConfirmationStatus string

const (
	StatusPending   ConfirmationStatus = "pending"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusRejected  ConfirmationStatus = "rejected"
)

// TransferRequest is a fully built and signed transfer ready for submission.
type TransferRequest struct {
	From      string
	To        string
	Amount    float64
	Asset     string
	Payload   []byte
	Signature []byte
}

// Client is the ledger network client. The Balance Oracle and the Settlement
// Executor are its only callers.
type Client interface {
	GetBalance(ctx context.Context, owner, asset string) (float64, error)
	SubmitTransfer(ctx context.Context, req TransferRequest) (txRef string, err error)
	ConfirmationStatus(ctx context.Context, txRef string) (ConfirmationStatus, error)
}

// Signer can sign transfer payloads for one wallet. Keys stay inside the
// key store process.
type Signer interface {
	Address() string
	Sign(payload []byte) ([]byte, error)
}

// KeyStore resolves the signing capability for a wallet, if the wallet is
// registered with the custody subsystem.
type KeyStore interface {
	Signer(wallet string) (Signer, bool)
}
