// Package salt obtains the per-user salt from the salt service.
package salt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/httpx"
	"github.com/and161185/suizk/internal/zk"
)

// Mode selects how the salt service is called.
type Mode int

const (
	// ModeDev reads a static JSON resource (same salt for everyone).
	ModeDev Mode = iota
	// ModeProd posts the token to a real salt server.
	ModeProd
)

// Resolver fetches a salt for an identity token.
type Resolver interface {
	// Resolve returns the decimal salt; failures wrap errs.ErrNetwork.
	Resolve(ctx context.Context, token string) (string, error)
}

// HTTPResolver implements Resolver over HTTP.
type HTTPResolver struct {
	url  string
	mode Mode
	hc   *http.Client
}

// ModeFor picks ModeDev when url points at the dev resource.
func ModeFor(url, devResource string) Mode {
	if devResource != "" && strings.HasSuffix(url, devResource) {
		return ModeDev
	}
	return ModeProd
}

// NewHTTPResolver constructs a resolver for url in the given mode.
func NewHTTPResolver(url string, mode Mode, hc *http.Client) *HTTPResolver {
	if hc == nil {
		hc = httpx.NewClient(0)
	}
	return &HTTPResolver{url: url, mode: mode, hc: hc}
}

type saltResponse struct {
	Salt string `json:"salt"`
}

// Resolve calls the salt service and validates the returned value.
func (r *HTTPResolver) Resolve(ctx context.Context, token string) (string, error) {
	var out saltResponse
	var err error
	switch r.mode {
	case ModeDev:
		err = httpx.DoJSON(ctx, r.hc, http.MethodGet, r.url, nil, &out)
	default:
		err = httpx.DoJSON(ctx, r.hc, http.MethodPost, r.url, map[string]string{"jwt": token}, &out)
	}
	if err != nil {
		return "", err
	}
	if _, err := zk.ParseSalt(out.Salt); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	return out.Salt, nil
}
