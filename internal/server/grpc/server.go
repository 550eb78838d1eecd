// Package grpcserver exposes the agent's query API over gRPC.
package grpcserver

import (
	"context"
	"slices"
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/suizk/internal/balance"
	"github.com/and161185/suizk/internal/model"
)

// AccountLister returns the stored accounts.
type AccountLister func(ctx context.Context) ([]model.Account, error)

// Faucet tops up an address.
type Faucet interface {
	Request(ctx context.Context, addr string) error
}

// Server wires session state, the balance refresher and the faucet into
// gRPC handlers.
type Server struct {
	accounts  AccountLister
	refresher *balance.Refresher
	faucet    Faucet
}

var _ AgentServer = (*Server)(nil)

// New constructs a Server. faucet may be nil when the network has none.
func New(accounts AccountLister, refresher *balance.Refresher, faucet Faucet) *Server {
	return &Server{accounts: accounts, refresher: refresher, faucet: faucet}
}

// ListAccounts returns public account data, newest first.
func (s *Server) ListAccounts(ctx context.Context, _ *ListAccountsRequest) (*ListAccountsResponse, error) {
	list, err := s.accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListAccountsResponse{Accounts: make([]AccountInfo, 0, len(list))}
	for _, a := range list {
		out.Accounts = append(out.Accounts, AccountInfo{Address: a.UserAddr, Provider: string(a.Provider), MaxEpoch: a.MaxEpoch})
	}
	return out, nil
}

func balanceInfo(addr string, mist uint64) BalanceInfo {
	return BalanceInfo{Address: addr, Mist: mist, Sui: balance.FormatSUI(mist)}
}

// Balances returns cached balances; unknown addresses are skipped.
func (s *Server) Balances(_ context.Context, req *BalancesRequest) (*BalancesResponse, error) {
	snap := s.refresher.Cache().Snapshot()
	addrs := req.Addresses
	if len(addrs) == 0 {
		for a := range snap {
			addrs = append(addrs, a)
		}
		sort.Strings(addrs)
	}
	out := &BalancesResponse{Balances: []BalanceInfo{}}
	for _, a := range addrs {
		if v, ok := snap[a]; ok {
			out.Balances = append(out.Balances, balanceInfo(a, v))
		}
	}
	return out, nil
}

// Refresh looks up one stored account's balance now.
func (s *Server) Refresh(ctx context.Context, req *RefreshRequest) (*RefreshResponse, error) {
	if err := s.requireAccount(ctx, req.Address); err != nil {
		return nil, err
	}
	got := s.refresher.Refresh(ctx, req.Address)
	v, ok := got[req.Address]
	if !ok {
		return nil, status.Error(codes.Unavailable, "balance lookup failed")
	}
	return &RefreshResponse{Balance: balanceInfo(req.Address, v)}, nil
}

// RequestFaucet tops up one stored account.
func (s *Server) RequestFaucet(ctx context.Context, req *FaucetRequest) (*FaucetResponse, error) {
	if s.faucet == nil {
		return nil, status.Error(codes.FailedPrecondition, "no faucet on this network")
	}
	if err := s.requireAccount(ctx, req.Address); err != nil {
		return nil, err
	}
	if err := s.faucet.Request(ctx, req.Address); err != nil {
		return nil, err
	}
	return &FaucetResponse{}, nil
}

func (s *Server) requireAccount(ctx context.Context, addr string) error {
	if addr == "" {
		return status.Error(codes.InvalidArgument, "empty address")
	}
	list, err := s.accounts(ctx)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(list, func(a model.Account) bool { return a.UserAddr == addr }) {
		return status.Error(codes.NotFound, "unknown account")
	}
	return nil
}
