package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/suizk/internal/errs"
)

func TestDoJSON_RoundTrip(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["v"]})
	}))
	defer srv.Close()

	var out map[string]string
	require.NoError(t, DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, map[string]string{"v": "x"}, &out))
	assert.Equal(t, "x", out["echo"])
}

func TestDo_Failures(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := Do(context.Background(), srv.Client(), http.MethodGet, srv.URL+"/bad", nil)
	require.ErrorIs(t, err, errs.ErrNetwork)

	var out map[string]any
	err = DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, &out)
	require.ErrorIs(t, err, errs.ErrNetwork)

	_, err = Do(context.Background(), NewClient(time.Second), http.MethodGet, "http://127.0.0.1:1/", nil)
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 30*time.Second, NewClient(0).Timeout)
	assert.Equal(t, time.Second, NewClient(time.Second).Timeout)
}
