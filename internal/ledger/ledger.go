// Package ledger is a minimal Sui JSON-RPC client: balances, epoch,
// move-call transaction building, execution and object reads.
package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/mr-tron/base58"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/httpx"
)

// SuiCoinType is the native coin type.
const SuiCoinType = "0x2::sui::SUI"

// MistPerSui converts MIST to SUI.
const MistPerSui = 1_000_000_000

// DefaultGasBudget is used for move calls when none is given.
const DefaultGasBudget = 10_000_000

// Ledger is the subset of the Sui RPC surface the client uses.
type Ledger interface {
	// CurrentEpoch returns the latest system-state epoch.
	CurrentEpoch(ctx context.Context) (uint64, error)
	// Balance returns the SUI balance of owner in MIST.
	Balance(ctx context.Context, owner string) (uint64, error)
	// BuildMoveCall returns unsigned transaction bytes for call.
	BuildMoveCall(ctx context.Context, call MoveCall) ([]byte, error)
	// Execute submits signed transaction bytes.
	Execute(ctx context.Context, txBytes []byte, signature string) (*ExecResult, error)
	// Object reads an object with its content.
	Object(ctx context.Context, id string) (*Object, error)
}

// MoveCall describes one entry-function call.
type MoveCall struct {
	Sender        string
	Package       string
	Module        string
	Function      string
	TypeArguments []string
	Arguments     []any
	GasBudget     uint64
}

// ExecResult summarizes an executed transaction.
type ExecResult struct {
	Digest string
	Status string
	Error  string
}

// Object is a Move object with its decoded fields.
type Object struct {
	ID     string
	Type   string
	Fields map[string]any
}

// Client talks JSON-RPC 2.0 to a full node.
type Client struct {
	url string
	hc  *http.Client
	seq atomic.Uint64
}

// NewClient constructs a client for the given full-node URL.
func NewClient(url string, hc *http.Client) *Client {
	if hc == nil {
		hc = httpx.NewClient(0)
	}
	return &Client{url: url, hc: hc}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	req := rpcRequest{JSONRPC: "2.0", ID: c.seq.Add(1), Method: method, Params: params}
	var resp rpcResponse
	if err := httpx.DoJSON(ctx, c.hc, http.MethodPost, c.url, req, &resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return &RPCError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: %w: decode result: %v", method, errs.ErrNetwork, err)
	}
	return nil
}

// CurrentEpoch implements Ledger.
func (c *Client) CurrentEpoch(ctx context.Context) (uint64, error) {
	var st struct {
		Epoch string `json:"epoch"`
	}
	if err := c.call(ctx, "suix_getLatestSuiSystemState", nil, &st); err != nil {
		return 0, err
	}
	return parseU64("epoch", st.Epoch)
}

// Balance implements Ledger.
func (c *Client) Balance(ctx context.Context, owner string) (uint64, error) {
	var b struct {
		TotalBalance string `json:"totalBalance"`
	}
	if err := c.call(ctx, "suix_getBalance", []any{owner, SuiCoinType}, &b); err != nil {
		return 0, err
	}
	return parseU64("totalBalance", b.TotalBalance)
}

// BuildMoveCall implements Ledger using unsafe_moveCall; the node selects gas.
func (c *Client) BuildMoveCall(ctx context.Context, call MoveCall) ([]byte, error) {
	budget := call.GasBudget
	if budget == 0 {
		budget = DefaultGasBudget
	}
	typeArgs := call.TypeArguments
	if typeArgs == nil {
		typeArgs = []string{}
	}
	args := call.Arguments
	if args == nil {
		args = []any{}
	}
	var out struct {
		TxBytes string `json:"txBytes"`
	}
	params := []any{call.Sender, call.Package, call.Module, call.Function, typeArgs, args, nil, strconv.FormatUint(budget, 10)}
	if err := c.call(ctx, "unsafe_moveCall", params, &out); err != nil {
		return nil, err
	}
	tx, err := base64.StdEncoding.DecodeString(out.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("unsafe_moveCall: %w: txBytes: %v", errs.ErrNetwork, err)
	}
	return tx, nil
}

// Execute implements Ledger. A failed effects status is returned as an error.
func (c *Client) Execute(ctx context.Context, txBytes []byte, signature string) (*ExecResult, error) {
	var out struct {
		Digest  string `json:"digest"`
		Effects struct {
			Status struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"status"`
		} `json:"effects"`
	}
	params := []any{
		base64.StdEncoding.EncodeToString(txBytes),
		[]string{signature},
		map[string]bool{"showEffects": true},
		"WaitForLocalExecution",
	}
	if err := c.call(ctx, "sui_executeTransactionBlock", params, &out); err != nil {
		return nil, err
	}
	if err := ValidateDigest(out.Digest); err != nil {
		return nil, fmt.Errorf("sui_executeTransactionBlock: %w: %v", errs.ErrNetwork, err)
	}
	res := &ExecResult{Digest: out.Digest, Status: out.Effects.Status.Status, Error: out.Effects.Status.Error}
	if res.Status != "" && res.Status != "success" {
		return res, fmt.Errorf("transaction %s failed: %s", res.Digest, res.Error)
	}
	return res, nil
}

// Object implements Ledger.
func (c *Client) Object(ctx context.Context, id string) (*Object, error) {
	var out struct {
		Data *struct {
			ObjectID string `json:"objectId"`
			Content  struct {
				Type   string         `json:"type"`
				Fields map[string]any `json:"fields"`
			} `json:"content"`
		} `json:"data"`
		Error json.RawMessage `json:"error"`
	}
	if err := c.call(ctx, "sui_getObject", []any{id, map[string]bool{"showContent": true}}, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("object %s: %w", id, errs.ErrNotFound)
	}
	return &Object{ID: out.Data.ObjectID, Type: out.Data.Content.Type, Fields: out.Data.Content.Fields}, nil
}

// ValidateDigest checks that d is a base58 32-byte transaction digest.
func ValidateDigest(d string) error {
	raw, err := base58.Decode(d)
	if err != nil {
		return fmt.Errorf("digest %q: %v", d, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("digest %q: length %d", d, len(raw))
	}
	return nil
}

func parseU64(field, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", errs.ErrNetwork, field, v)
	}
	return n, nil
}
