// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested slot or entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDecode indicates malformed stored or serialized key material.
	ErrDecode = errors.New("decode error")

	// ErrMalformedToken indicates an identity token without the required claims.
	ErrMalformedToken = errors.New("malformed token")

	// ErrNetwork indicates a failed or malformed remote call (salt, prover, ledger).
	ErrNetwork = errors.New("network failure")

	// ErrDuplicateIdentity indicates a login for an address that is already stored.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrCorruptState indicates persisted session state that cannot be parsed.
	ErrCorruptState = errors.New("corrupt state")

	// ErrExpiredCredential indicates the network epoch is past the account's maxEpoch.
	ErrExpiredCredential = errors.New("expired credential")

	// ErrNoPendingLogin indicates a redirect without a matching pending setup.
	ErrNoPendingLogin = errors.New("no pending login")

	// ErrRateLimited indicates the request was throttled locally.
	ErrRateLimited = errors.New("rate limited")
)
