// Package ephemeral contains the client-side one-time signing keys used for zkLogin.
package ephemeral

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/bech32"
	"golang.org/x/crypto/blake2b"

	"github.com/and161185/suizk/internal/errs"
)

// Params
const (
	// SchemeEd25519 is the Sui signature scheme flag for Ed25519.
	SchemeEd25519 byte = 0x00

	// PrivateKeyHRP is the bech32 prefix of serialized Sui private keys.
	PrivateKeyHRP = "suiprivkey"

	randomnessLen = 16
)

// Randomness is the decimal string form of a 128-bit random integer.
type Randomness string

// Keypair is an Ed25519 signing keypair.
type Keypair struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// Rand returns n cryptographically secure random bytes.
func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Generate creates a fresh keypair and randomness for one login attempt.
func Generate() (*Keypair, Randomness, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, "", err
	}
	r, err := NewRandomness()
	if err != nil {
		return nil, "", err
	}
	return &Keypair{private: priv, public: pub}, r, nil
}

// NewRandomness draws 128 random bits and renders them as a decimal integer.
func NewRandomness() (Randomness, error) {
	b, err := Rand(randomnessLen)
	if err != nil {
		return "", err
	}
	return Randomness(new(big.Int).SetBytes(b).String()), nil
}

// BigInt parses r; ok is false when r is not a non-negative decimal integer.
func (r Randomness) BigInt() (*big.Int, bool) {
	v, ok := new(big.Int).SetString(string(r), 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// FromSeed builds a keypair from a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed length %d", errs.ErrDecode, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub, _ := priv.Public().(ed25519.PublicKey)
	return &Keypair{private: priv, public: pub}, nil
}

// Serialize encodes the private key as a bech32 "suiprivkey1..." string.
func Serialize(kp *Keypair) string {
	payload := make([]byte, 0, 1+ed25519.SeedSize)
	payload = append(payload, SchemeEd25519)
	payload = append(payload, kp.private.Seed()...)
	s, err := bech32.EncodeFromBase256(PrivateKeyHRP, payload)
	if err != nil {
		// payload is fixed-size; encoding cannot fail.
		panic(err)
	}
	return s
}

// Deserialize parses a string produced by Serialize.
func Deserialize(s string) (*Keypair, error) {
	hrp, payload, err := bech32.DecodeToBase256(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDecode, err)
	}
	if hrp != PrivateKeyHRP {
		return nil, fmt.Errorf("%w: unexpected prefix %q", errs.ErrDecode, hrp)
	}
	if len(payload) != 1+ed25519.SeedSize {
		return nil, fmt.Errorf("%w: payload length %d", errs.ErrDecode, len(payload))
	}
	if payload[0] != SchemeEd25519 {
		return nil, fmt.Errorf("%w: unsupported scheme 0x%02x", errs.ErrDecode, payload[0])
	}
	return FromSeed(payload[1:])
}

// PublicKey returns a copy of the raw 32-byte public key.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	out := make([]byte, len(k.public))
	copy(out, k.public)
	return out
}

// SuiPublicKey returns flag || pubkey as used in Sui addresses and nonces.
func (k *Keypair) SuiPublicKey() []byte {
	out := make([]byte, 0, 1+ed25519.PublicKeySize)
	out = append(out, SchemeEd25519)
	return append(out, k.public...)
}

// ExtendedPublicKey returns the Sui public key bytes as a big-endian decimal integer.
func (k *Keypair) ExtendedPublicKey() string {
	return new(big.Int).SetBytes(k.SuiPublicKey()).String()
}

// intentTransactionData prefixes transaction bytes: scope TransactionData, version V0, app Sui.
var intentTransactionData = []byte{0, 0, 0}

// TransactionDigest returns blake2b-256(intent || txBytes), the message actually signed.
func TransactionDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(intentTransactionData)+len(txBytes))
	msg = append(msg, intentTransactionData...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

// SignTransaction signs txBytes and returns the serialized Sui signature
// (flag || sig || pubkey) in base64.
func (k *Keypair) SignTransaction(txBytes []byte) string {
	digest := TransactionDigest(txBytes)
	sig := ed25519.Sign(k.private, digest[:])

	out := make([]byte, 0, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	out = append(out, SchemeEd25519)
	out = append(out, sig...)
	out = append(out, k.public...)
	return base64.StdEncoding.EncodeToString(out)
}

// VerifyTransaction checks a serialized signature produced by SignTransaction.
func VerifyTransaction(txBytes []byte, serialized string) bool {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil || len(raw) != 1+ed25519.SignatureSize+ed25519.PublicKeySize || raw[0] != SchemeEd25519 {
		return false
	}
	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])
	digest := TransactionDigest(txBytes)
	return ed25519.Verify(pub, digest[:], sig)
}
