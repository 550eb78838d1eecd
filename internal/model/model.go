// Package model defines domain entities shared by services and repositories.
package model

import "encoding/json"

// Provider names an OpenID provider supported for login.
type Provider string

// ProviderGoogle is the only provider wired today.
const ProviderGoogle Provider = "Google"

// Providers lists the providers offered for login.
var Providers = []Provider{ProviderGoogle}

// KeyClaimName is the JWT claim the address is bound to.
const KeyClaimName = "sub"

// EphemeralSetup is the pre-redirect state of one login attempt.
type EphemeralSetup struct {
	Provider            Provider `json:"provider"`
	MaxEpoch            uint64   `json:"maxEpoch"`
	Randomness          string   `json:"randomness"`          // decimal big integer
	EphemeralPrivateKey string   `json:"ephemeralPrivateKey"` // suiprivkey1...
}

// Account is a fully provisioned zkLogin account.
type Account struct {
	Provider            Provider        `json:"provider"`
	UserAddr            string          `json:"userAddr"`
	ZkProofs            json.RawMessage `json:"zkProofs"` // opaque prover response, compacted
	EphemeralPrivateKey string          `json:"ephemeralPrivateKey"`
	UserSalt            string          `json:"userSalt"` // decimal big integer
	Sub                 string          `json:"sub"`
	Aud                 string          `json:"aud"`
	MaxEpoch            uint64          `json:"maxEpoch"`
}

// Claims are the identity-token claims the client relies on.
type Claims struct {
	Subject  string
	Audience string // first element when the token carries a list
	Issuer   string
	Nonce    string
}

// ProofRequest is the body sent to the proving service.
type ProofRequest struct {
	MaxEpoch                   uint64 `json:"maxEpoch"`
	JwtRandomness              string `json:"jwtRandomness"`
	ExtendedEphemeralPublicKey string `json:"extendedEphemeralPublicKey"`
	JWT                        string `json:"jwt"`
	Salt                       string `json:"salt"`
	KeyClaimName               string `json:"keyClaimName"`
}

// Balance is a last-known account balance in MIST.
type Balance struct {
	Address string `json:"address"`
	Mist    uint64 `json:"mist"`
}
