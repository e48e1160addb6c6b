package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

type walletSigner struct {
	address string
	key     ed25519.PrivateKey
}

func (s *walletSigner) Address() string { return s.address }

func (s *walletSigner) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.key, payload), nil
}

// MemoryKeyStore holds ed25519 signing keys for registered wallets. Keys
// never leave the store; callers get a Signer, not key material.
type MemoryKeyStore struct {
	signers map[string]Signer
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{signers: make(map[string]Signer)}
}

// Register adds a wallet with its hex-encoded 32-byte ed25519 seed.
func (ks *MemoryKeyStore) Register(wallet, seedHex string) error {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return fmt.Errorf("invalid key seed for %s: %v", wallet, err)
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("key seed for %s must be %d bytes, got %d", wallet, ed25519.SeedSize, len(seed))
	}

	ks.signers[wallet] = &walletSigner{
		address: wallet,
		key:     ed25519.NewKeyFromSeed(seed),
	}
	return nil
}

func (ks *MemoryKeyStore) Signer(wallet string) (Signer, bool) {
	s, ok := ks.signers[wallet]
	return s, ok
}

// LoadKeyStore parses "wallet:seedHex" pairs separated by commas, the
// format of the WALLET_KEYS env var.
func LoadKeyStore(spec string) (*MemoryKeyStore, error) {
	ks := NewMemoryKeyStore()
	if spec == "" {
		return ks, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed key entry %q, want wallet:seedHex", entry)
		}
		if err := ks.Register(parts[0], parts[1]); err != nil {
			return nil, err
		}
	}
	return ks, nil
}

var _ KeyStore = (*MemoryKeyStore)(nil)
