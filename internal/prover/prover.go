// Package prover requests zero-knowledge proofs from the proving service.
package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/httpx"
	"github.com/and161185/suizk/internal/metrics"
	"github.com/and161185/suizk/internal/model"
)

// Requester obtains a proof for one login attempt.
type Requester interface {
	// Request returns the opaque proof; failures wrap errs.ErrNetwork.
	Request(ctx context.Context, req model.ProofRequest) (json.RawMessage, error)
}

// HTTPRequester implements Requester over HTTP.
type HTTPRequester struct {
	url string
	hc  *http.Client
}

// NewHTTPRequester constructs a requester for the given prover URL.
// Proving can take several seconds; hc should have a generous timeout.
func NewHTTPRequester(url string, hc *http.Client) *HTTPRequester {
	if hc == nil {
		hc = httpx.NewClient(2 * time.Minute)
	}
	return &HTTPRequester{url: url, hc: hc}
}

// Request posts req and returns the compacted JSON response.
func (p *HTTPRequester) Request(ctx context.Context, req model.ProofRequest) (json.RawMessage, error) {
	if req.KeyClaimName == "" {
		req.KeyClaimName = model.KeyClaimName
	}
	start := time.Now()
	data, err := httpx.Do(ctx, p.hc, http.MethodPost, p.url, req)
	metrics.ProofDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: proof is not JSON: %v", errs.ErrNetwork, err)
	}
	if buf.Len() == 0 || buf.Bytes()[0] != '{' {
		return nil, fmt.Errorf("%w: proof is not an object", errs.ErrNetwork)
	}
	return json.RawMessage(buf.Bytes()), nil
}
