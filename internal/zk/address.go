package zk

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"

	"github.com/and161185/suizk/internal/model"
)

// SchemeZkLogin is the Sui signature scheme flag for zkLogin.
const SchemeZkLogin byte = 0x05

const googleIssuer = "https://accounts.google.com"

// ParseSalt parses a decimal salt string.
func ParseSalt(salt string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(salt, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid salt %q", salt)
	}
	return v, nil
}

// AddressSeed computes the seed for the "sub" claim of the given identity.
func AddressSeed(salt, sub, aud string) (*big.Int, error) {
	s, err := ParseSalt(salt)
	if err != nil {
		return nil, err
	}
	return GenAddressSeed(s, model.KeyClaimName, sub, aud)
}

// DeriveAddress computes the account address from token claims and salt.
// It is pure: equal inputs always give the same address.
func DeriveAddress(claims model.Claims, salt string) (string, error) {
	seed, err := AddressSeed(salt, claims.Subject, claims.Audience)
	if err != nil {
		return "", fmt.Errorf("address seed: %w", err)
	}
	return AddressFromSeed(seed, claims.Issuer)
}

// AddressFromSeed hashes flag || len(iss) || iss || seed(32 BE).
func AddressFromSeed(seed *big.Int, iss string) (string, error) {
	if iss == "accounts.google.com" {
		iss = googleIssuer
	}
	if iss == "" {
		return "", fmt.Errorf("missing issuer")
	}
	if len(iss) > 255 {
		return "", fmt.Errorf("issuer too long: %d", len(iss))
	}
	buf := make([]byte, 0, 2+len(iss)+32)
	buf = append(buf, SchemeZkLogin, byte(len(iss)))
	buf = append(buf, iss...)
	buf = append(buf, paddedBE(seed, 32)...)

	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:]), nil
}
