package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "suizk.agent.v1.Agent"

// Full method names of the agent API.
const (
	MethodListAccounts  = "/" + serviceName + "/ListAccounts"
	MethodBalances      = "/" + serviceName + "/Balances"
	MethodRefresh       = "/" + serviceName + "/Refresh"
	MethodRequestFaucet = "/" + serviceName + "/RequestFaucet"
)

// AccountInfo is the public part of a stored account.
type AccountInfo struct {
	Address  string `json:"address"`
	Provider string `json:"provider"`
	MaxEpoch uint64 `json:"maxEpoch"`
}

// BalanceInfo is one cached balance.
type BalanceInfo struct {
	Address string `json:"address"`
	Mist    uint64 `json:"mist"`
	Sui     string `json:"sui"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []AccountInfo `json:"accounts"`
}

// BalancesRequest selects addresses; empty means every cached balance.
type BalancesRequest struct {
	Addresses []string `json:"addresses,omitempty"`
}

type BalancesResponse struct {
	Balances []BalanceInfo `json:"balances"`
}

type RefreshRequest struct {
	Address string `json:"address"`
}

type RefreshResponse struct {
	Balance BalanceInfo `json:"balance"`
}

type FaucetRequest struct {
	Address string `json:"address"`
}

type FaucetResponse struct{}

// AgentServer is the server API of the agent.
type AgentServer interface {
	ListAccounts(context.Context, *ListAccountsRequest) (*ListAccountsResponse, error)
	Balances(context.Context, *BalancesRequest) (*BalancesResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	RequestFaucet(context.Context, *FaucetRequest) (*FaucetResponse, error)
}

// RegisterAgentServer registers srv on s.
func RegisterAgentServer(s grpc.ServiceRegistrar, srv AgentServer) {
	s.RegisterService(&agentServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(AgentServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AgentServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AgentServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var agentServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAccounts", Handler: unaryHandler(MethodListAccounts, AgentServer.ListAccounts)},
		{MethodName: "Balances", Handler: unaryHandler(MethodBalances, AgentServer.Balances)},
		{MethodName: "Refresh", Handler: unaryHandler(MethodRefresh, AgentServer.Refresh)},
		{MethodName: "RequestFaucet", Handler: unaryHandler(MethodRequestFaucet, AgentServer.RequestFaucet)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "suizk/agent/v1",
}

// AgentClient calls the agent API over a client connection.
type AgentClient struct {
	cc grpc.ClientConnInterface
}

// NewAgentClient wraps cc.
func NewAgentClient(cc grpc.ClientConnInterface) *AgentClient {
	return &AgentClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAccounts lists stored accounts.
func (c *AgentClient) ListAccounts(ctx context.Context, in *ListAccountsRequest, opts ...grpc.CallOption) (*ListAccountsResponse, error) {
	return invoke[ListAccountsResponse](ctx, c.cc, MethodListAccounts, in, opts)
}

// Balances returns cached balances.
func (c *AgentClient) Balances(ctx context.Context, in *BalancesRequest, opts ...grpc.CallOption) (*BalancesResponse, error) {
	return invoke[BalancesResponse](ctx, c.cc, MethodBalances, in, opts)
}

// Refresh forces a balance lookup for one address.
func (c *AgentClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error) {
	return invoke[RefreshResponse](ctx, c.cc, MethodRefresh, in, opts)
}

// RequestFaucet asks the agent to top up an address.
func (c *AgentClient) RequestFaucet(ctx context.Context, in *FaucetRequest, opts ...grpc.CallOption) (*FaucetResponse, error) {
	return invoke[FaucetResponse](ctx, c.cc, MethodRequestFaucet, in, opts)
}
