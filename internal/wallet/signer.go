package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is the custody capability the trade pipeline depends on. The
// permit and order authorizations are signed separately, each over its
// own typed-data structure.
type Signer interface {
	Address() string
	SignTypedData(ctx context.Context, td apitypes.TypedData) (string, error)
}

// LocalSigner signs EIP-712 typed data with an in-process ECDSA key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	raw := strings.TrimSpace(privateKeyHex)
	raw = strings.TrimPrefix(raw, "0x")
	if raw == "" {
		return nil, fmt.Errorf("empty private key")
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *LocalSigner) Address() string {
	return s.address.Hex()
}

// SignTypedData hashes the typed data per EIP-712 and signs the digest.
// The recovery byte is shifted to the 27/28 convention expected by
// on-chain verifiers.
func (s *LocalSigner) SignTypedData(_ context.Context, td apitypes.TypedData) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return "", fmt.Errorf("hash typed data: %w", err)
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fmt.Errorf("sign typed data: %w", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}
