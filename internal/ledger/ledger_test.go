package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/suizk/internal/errs"
)

type rpcCall struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// node serves one JSON-RPC method per test and records the last call.
func node(t *testing.T, reply func(c rpcCall) (any, *rpcError)) (*Client, *rpcCall) {
	t.Helper()
	var last rpcCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		res, rerr := reply(last)
		out := map[string]any{"jsonrpc": "2.0", "id": last.ID}
		if rerr != nil {
			out["error"] = rerr
		} else {
			out["result"] = res
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client()), &last
}

func TestClient_CurrentEpochAndBalance(t *testing.T) {
	t.Parallel()
	c, last := node(t, func(c rpcCall) (any, *rpcError) {
		switch c.Method {
		case "suix_getLatestSuiSystemState":
			return map[string]string{"epoch": "431"}, nil
		case "suix_getBalance":
			return map[string]string{"coinType": SuiCoinType, "totalBalance": "1000000000"}, nil
		}
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	})

	ep, err := c.CurrentEpoch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(431), ep)
	assert.Equal(t, "2.0", last.JSONRPC)

	bal, err := c.Balance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(MistPerSui), bal)
	require.Len(t, last.Params, 2)
	assert.JSONEq(t, `"0xabc"`, string(last.Params[0]))
	assert.JSONEq(t, `"0x2::sui::SUI"`, string(last.Params[1]))

	_, err = c.Object(context.Background(), "0x1")
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
	assert.Equal(t, "sui_getObject", rpcErr.Method)
}

func TestClient_BadNumbersAreNetworkErrors(t *testing.T) {
	t.Parallel()
	c, _ := node(t, func(rpcCall) (any, *rpcError) {
		return map[string]string{"epoch": "x", "totalBalance": "-1"}, nil
	})
	_, err := c.CurrentEpoch(context.Background())
	require.ErrorIs(t, err, errs.ErrNetwork)
	_, err = c.Balance(context.Background(), "0x1")
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestClient_BuildMoveCall(t *testing.T) {
	t.Parallel()
	c, last := node(t, func(rpcCall) (any, *rpcError) {
		return map[string]string{"txBytes": base64.StdEncoding.EncodeToString([]byte("unsigned"))}, nil
	})

	tx, err := c.BuildMoveCall(context.Background(), MoveCall{
		Sender: "0xs", Package: "0xp", Module: "Game", Function: "enter_game", Arguments: []any{"0xo"},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("unsigned"), tx)

	assert.Equal(t, "unsafe_moveCall", last.Method)
	require.Len(t, last.Params, 8)
	assert.JSONEq(t, `"0xs"`, string(last.Params[0]))
	assert.JSONEq(t, `[]`, string(last.Params[4]), "type args never null")
	assert.JSONEq(t, `["0xo"]`, string(last.Params[5]))
	assert.JSONEq(t, `null`, string(last.Params[6]), "node picks gas")
	assert.JSONEq(t, `"10000000"`, string(last.Params[7]))
}

func TestClient_Execute(t *testing.T) {
	t.Parallel()
	digest := base58.Encode(bytes.Repeat([]byte{7}, 32))
	status := "success"
	c, last := node(t, func(rpcCall) (any, *rpcError) {
		return map[string]any{
			"digest":  digest,
			"effects": map[string]any{"status": map[string]string{"status": status, "error": "MoveAbort"}},
		}, nil
	})

	res, err := c.Execute(context.Background(), []byte("tx"), "sig")
	require.NoError(t, err)
	assert.Equal(t, digest, res.Digest)
	assert.Equal(t, "sui_executeTransactionBlock", last.Method)
	assert.JSONEq(t, `"dHg="`, string(last.Params[0]))
	assert.JSONEq(t, `["sig"]`, string(last.Params[1]))
	assert.JSONEq(t, `"WaitForLocalExecution"`, string(last.Params[3]))

	status = "failure"
	res, err = c.Execute(context.Background(), []byte("tx"), "sig")
	require.Error(t, err)
	assert.Equal(t, "MoveAbort", res.Error)
}

func TestClient_ExecuteRejectsBadDigest(t *testing.T) {
	t.Parallel()
	c, _ := node(t, func(rpcCall) (any, *rpcError) {
		return map[string]any{"digest": "short"}, nil
	})
	_, err := c.Execute(context.Background(), []byte("tx"), "sig")
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestClient_Object(t *testing.T) {
	t.Parallel()
	c, _ := node(t, func(c rpcCall) (any, *rpcError) {
		var id string
		_ = json.Unmarshal(c.Params[0], &id)
		if id != "0x1" {
			return map[string]any{"error": map[string]string{"code": "notExists"}}, nil
		}
		return map[string]any{"data": map[string]any{
			"objectId": "0x1",
			"content":  map[string]any{"type": "0xp::Game::Game", "fields": map[string]any{"seed": "5"}},
		}}, nil
	})

	obj, err := c.Object(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "0xp::Game::Game", obj.Type)
	assert.Equal(t, "5", obj.Fields["seed"])

	_, err = c.Object(context.Background(), "0x2")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL, srv.Client()).CurrentEpoch(context.Background())
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestValidateDigest(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateDigest(base58.Encode(make([]byte, 32))))
	require.Error(t, ValidateDigest(base58.Encode(make([]byte, 31))))
	require.Error(t, ValidateDigest("0OIl"))
}
