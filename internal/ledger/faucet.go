package ledger

import (
	"context"
	"net/http"
	"time"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/httpx"
	"github.com/and161185/suizk/internal/limiter"
)

// Faucet requests dev-network SUI top-ups.
type Faucet struct {
	url string
	hc  *http.Client
	lim limiter.Limiter
}

// NewFaucet constructs a faucet client. lim may be nil (no local pacing).
func NewFaucet(url string, hc *http.Client, lim limiter.Limiter) *Faucet {
	if hc == nil {
		hc = httpx.NewClient(0)
	}
	return &Faucet{url: url, hc: hc, lim: lim}
}

type faucetRequest struct {
	FixedAmountRequest struct {
		Recipient string `json:"recipient"`
	} `json:"FixedAmountRequest"`
}

// Request asks the faucet to fund addr. The response body is ignored; the
// effect shows up in the next balance refresh.
func (f *Faucet) Request(ctx context.Context, addr string) error {
	if f.lim != nil {
		ok, _, err := f.lim.Allow(ctx, addr)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrRateLimited
		}
	}
	var body faucetRequest
	body.FixedAmountRequest.Recipient = addr
	_, err := httpx.Do(ctx, f.hc, http.MethodPost, f.url, body)
	return err
}

// RequestAsync fires Request in the background and reports the result on the
// returned channel. The call is bounded by timeout.
func (f *Faucet) RequestAsync(ctx context.Context, addr string, timeout time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		done <- f.Request(ctx, addr)
	}()
	return done
}
