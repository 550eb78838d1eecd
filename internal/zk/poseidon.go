// Package zk implements the zkLogin commitments: nonce binding, address seeds,
// address derivation and composite signature assembly.
package zk

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Claim field sizes used by the zkLogin circuit.
const (
	MaxKeyClaimNameLength  = 32
	MaxKeyClaimValueLength = 115
	MaxAudValueLength      = 145

	packWidth = 248
)

// PoseidonHash hashes up to 32 field elements the way the zkLogin circuit does:
// inputs above 16 are split into two halves hashed separately.
func PoseidonHash(inputs []*big.Int) (*big.Int, error) {
	switch {
	case len(inputs) == 0:
		return nil, fmt.Errorf("poseidon: no inputs")
	case len(inputs) <= 16:
		return poseidon.Hash(inputs)
	case len(inputs) <= 32:
		h1, err := PoseidonHash(inputs[:16])
		if err != nil {
			return nil, err
		}
		h2, err := PoseidonHash(inputs[16:])
		if err != nil {
			return nil, err
		}
		return PoseidonHash([]*big.Int{h1, h2})
	default:
		return nil, fmt.Errorf("poseidon: %d inputs exceed 32", len(inputs))
	}
}

// HashASCIIStrToField zero-pads s to maxSize bytes, packs it into 31-byte
// big-endian chunks and hashes the chunks. Chunks are aligned to the end of
// the padded buffer: the first chunk holds the maxSize%31 leading bytes.
func HashASCIIStrToField(s string, maxSize int) (*big.Int, error) {
	if len(s) > maxSize {
		return nil, fmt.Errorf("string %q longer than %d", s, maxSize)
	}
	padded := make([]byte, maxSize)
	copy(padded, s)
	return PoseidonHash(packChunks(padded, packWidth/8))
}

// packChunks splits b into size-byte big-endian integers counted from the end.
func packChunks(b []byte, size int) []*big.Int {
	n := (len(b) + size - 1) / size
	out := make([]*big.Int, n)
	end := len(b)
	for i := n - 1; i >= 0; i-- {
		start := max(end-size, 0)
		out[i] = new(big.Int).SetBytes(b[start:end])
		end = start
	}
	return out
}

// GenAddressSeed binds salt to one identity claim and the audience.
func GenAddressSeed(salt *big.Int, name, value, aud string) (*big.Int, error) {
	hName, err := HashASCIIStrToField(name, MaxKeyClaimNameLength)
	if err != nil {
		return nil, err
	}
	hValue, err := HashASCIIStrToField(value, MaxKeyClaimValueLength)
	if err != nil {
		return nil, err
	}
	hAud, err := HashASCIIStrToField(aud, MaxAudValueLength)
	if err != nil {
		return nil, err
	}
	hSalt, err := PoseidonHash([]*big.Int{salt})
	if err != nil {
		return nil, err
	}
	return PoseidonHash([]*big.Int{hName, hValue, hAud, hSalt})
}

// paddedBE renders v as exactly width big-endian bytes, keeping the low bytes.
func paddedBE(v *big.Int, width int) []byte {
	b := v.Bytes()
	out := make([]byte, width)
	if len(b) > width {
		b = b[len(b)-width:]
	}
	copy(out[width-len(b):], b)
	return out
}
