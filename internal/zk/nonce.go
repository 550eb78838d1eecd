package zk

import (
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/and161185/suizk/internal/crypto/ephemeral"
)

// NonceLength is the length of a base64url nonce over 20 bytes.
const NonceLength = 27

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// Nonce commits the ephemeral public key, the epoch bound and the randomness
// into the value sent as the OpenID nonce.
func Nonce(suiPublicKey []byte, maxEpoch uint64, randomness ephemeral.Randomness) (string, error) {
	r, ok := randomness.BigInt()
	if !ok {
		return "", fmt.Errorf("nonce: invalid randomness %q", randomness)
	}
	pk := new(big.Int).SetBytes(suiPublicKey)
	hi, lo := new(big.Int).QuoRem(pk, two128, new(big.Int))

	h, err := PoseidonHash([]*big.Int{hi, lo, new(big.Int).SetUint64(maxEpoch), r})
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	nonce := base64.RawURLEncoding.EncodeToString(paddedBE(h, 20))
	if len(nonce) != NonceLength {
		return "", fmt.Errorf("nonce: length %d, want %d", len(nonce), NonceLength)
	}
	return nonce, nil
}
