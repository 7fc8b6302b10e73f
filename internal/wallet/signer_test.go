package wallet

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func permitTypedData(owner string) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": {
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              "USD Coin",
			Version:           "2",
			ChainId:           math.NewHexOrDecimal256(137),
			VerifyingContract: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		},
		Message: apitypes.TypedDataMessage{
			"owner":    owner,
			"spender":  "0x4Bf62a39d4D06d4e941E4c3C4D3C4d7C0C35296d",
			"value":    "300000000",
			"nonce":    "0",
			"deadline": "1900000000",
		},
	}
}

func TestNewLocalSigner(t *testing.T) {
	s, err := NewLocalSigner("0x" + testKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.Address(), "0x"))

	_, err = NewLocalSigner("")
	assert.Error(t, err)

	_, err = NewLocalSigner("not-a-key")
	assert.Error(t, err)
}

func TestSignTypedDataRecoversSigner(t *testing.T) {
	s, err := NewLocalSigner(testKey)
	require.NoError(t, err)

	td := permitTypedData(s.Address())
	sigHex, err := s.SignTypedData(context.Background(), td)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sigHex, "0x"))

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.GreaterOrEqual(t, sig[64], byte(27))

	sig[64] -= 27
	hash, _, err := apitypes.TypedDataAndHash(td)
	require.NoError(t, err)

	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub).Hex())
}

func TestSignaturesAreIndependentPerPayload(t *testing.T) {
	s, err := NewLocalSigner(testKey)
	require.NoError(t, err)

	permit := permitTypedData(s.Address())
	order := permitTypedData(s.Address())
	order.Message["value"] = "150000000"

	sig1, err := s.SignTypedData(context.Background(), permit)
	require.NoError(t, err)
	sig2, err := s.SignTypedData(context.Background(), order)
	require.NoError(t, err)

	assert.NotEqual(t, sig1, sig2)
}
