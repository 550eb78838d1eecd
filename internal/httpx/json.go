// Package httpx holds the small JSON-over-HTTP helpers shared by remote clients.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/and161185/suizk/internal/errs"
)

const maxBody = 4 << 20

// NewClient returns an http.Client with the given timeout (30s when zero).
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Do sends method to url with an optional JSON body and returns the raw response
// body. Transport failures and non-2xx statuses are wrapped in errs.ErrNetwork.
func Do(ctx context.Context, hc *http.Client, method, url string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errs.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: status %d", errs.ErrNetwork, method, url, resp.StatusCode)
	}
	return data, nil
}

// DoJSON is Do followed by decoding the response into out.
func DoJSON(ctx context.Context, hc *http.Client, method, url string, body, out any) error {
	data, err := Do(ctx, hc, method, url, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", errs.ErrNetwork, err)
	}
	return nil
}
