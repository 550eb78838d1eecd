// Package idtoken handles the OpenID round trip: building the provider URL,
// reading the token back from the redirect and decoding its claims.
package idtoken

import (
	"fmt"
	"net/url"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/model"
)

const googleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// LoginURL builds the provider authorization URL carrying nonce and state.
func LoginURL(provider model.Provider, clientID, redirectURI, nonce, state string) (string, error) {
	var base string
	switch provider {
	case model.ProviderGoogle:
		base = googleAuthURL
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}
	if clientID == "" {
		return "", fmt.Errorf("missing client id for %s", provider)
	}
	q := url.Values{}
	q.Set("nonce", nonce)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "id_token")
	q.Set("scope", "openid")
	q.Set("client_id", clientID)
	if state != "" {
		q.Set("state", state)
	}
	return base + "?" + q.Encode(), nil
}

// Redirect is what the provider handed back in the URL fragment.
type Redirect struct {
	Token string
	State string
}

// ParseRedirect reads id_token (and state) from the URL fragment. The query
// string is ignored. ok is false when no token is present.
func ParseRedirect(rawURL string) (Redirect, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Fragment == "" {
		return Redirect{}, false
	}
	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return Redirect{}, false
	}
	tok := params.Get("id_token")
	if tok == "" {
		return Redirect{}, false
	}
	return Redirect{Token: tok, State: params.Get("state")}, true
}

// StripFragment returns rawURL without its fragment, safe to log or keep.
func StripFragment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce,omitempty"`
}

// Decode extracts claims without verifying the signature; the proving
// service checks the token against the provider keys.
func Decode(token string) (model.Claims, error) {
	var c tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return model.Claims{}, fmt.Errorf("%w: %v", errs.ErrMalformedToken, err)
	}
	if c.Subject == "" || len(c.Audience) == 0 || c.Audience[0] == "" {
		return model.Claims{}, fmt.Errorf("%w: missing sub or aud", errs.ErrMalformedToken)
	}
	if c.Issuer == "" {
		return model.Claims{}, fmt.Errorf("%w: missing iss", errs.ErrMalformedToken)
	}
	return model.Claims{
		Subject:  c.Subject,
		Audience: c.Audience[0],
		Issuer:   c.Issuer,
		Nonce:    c.Nonce,
	}, nil
}
