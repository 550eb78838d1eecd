package zk

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// ProofPoints are the Groth16 points returned by the proving service.
type ProofPoints struct {
	A []string   `json:"a"`
	B [][]string `json:"b"`
	C []string   `json:"c"`
}

// IssBase64Details locates the "iss" claim inside the token payload.
type IssBase64Details struct {
	Value     string `json:"value"`
	IndexMod4 uint8  `json:"indexMod4"`
}

// ProofInputs is the proving-service response plus the address seed.
type ProofInputs struct {
	ProofPoints      ProofPoints      `json:"proofPoints"`
	IssBase64Details IssBase64Details `json:"issBase64Details"`
	HeaderBase64     string           `json:"headerBase64"`
	AddressSeed      string           `json:"addressSeed,omitempty"`
}

// DecodeProof parses the opaque prover response kept on the account.
func DecodeProof(raw json.RawMessage) (ProofInputs, error) {
	var in ProofInputs
	if len(raw) == 0 {
		return in, errors.New("empty proof")
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("decode proof: %w", err)
	}
	if len(in.ProofPoints.A) == 0 || len(in.ProofPoints.B) == 0 || len(in.ProofPoints.C) == 0 {
		return in, errors.New("decode proof: missing proof points")
	}
	return in, nil
}

// AssembleSignature composes proof, address seed, epoch bound and the
// serialized ephemeral signature into a base64 zkLogin signature.
func AssembleSignature(inputs ProofInputs, addressSeed *big.Int, maxEpoch uint64, userSignature string) (string, error) {
	sig, err := base64.StdEncoding.DecodeString(userSignature)
	if err != nil {
		return "", fmt.Errorf("user signature: %w", err)
	}
	inputs.AddressSeed = addressSeed.String()

	var w bcsWriter
	w.u8(SchemeZkLogin)

	w.strs(inputs.ProofPoints.A)
	w.uleb128(uint64(len(inputs.ProofPoints.B)))
	for _, row := range inputs.ProofPoints.B {
		w.strs(row)
	}
	w.strs(inputs.ProofPoints.C)

	w.str(inputs.IssBase64Details.Value)
	w.u8(inputs.IssBase64Details.IndexMod4)
	w.str(inputs.HeaderBase64)
	w.str(inputs.AddressSeed)

	w.u64(maxEpoch)
	w.bytes(sig)

	return base64.StdEncoding.EncodeToString(w.buf.Bytes()), nil
}
