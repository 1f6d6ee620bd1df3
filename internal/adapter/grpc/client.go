package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the SplitLedger service using the same typed bodies as the server
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	in, err := encodeStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := decodeResponse(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) CreateGroup(ctx context.Context, req *CreateGroupRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	return invoke[GroupResponse](ctx, c, "CreateGroup", req, opts...)
}

func (c *Client) AddMember(ctx context.Context, req *AddMemberRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	return invoke[GroupResponse](ctx, c, "AddMember", req, opts...)
}

func (c *Client) GetGroup(ctx context.Context, req *GroupRequest, opts ...grpc.CallOption) (*GroupResponse, error) {
	return invoke[GroupResponse](ctx, c, "GetGroup", req, opts...)
}

func (c *Client) PreviewSplit(ctx context.Context, req *PreviewSplitRequest, opts ...grpc.CallOption) (*SplitResponse, error) {
	return invoke[SplitResponse](ctx, c, "PreviewSplit", req, opts...)
}

func (c *Client) RecordExpense(ctx context.Context, req *RecordExpenseRequest, opts ...grpc.CallOption) (*ExpenseResponse, error) {
	return invoke[ExpenseResponse](ctx, c, "RecordExpense", req, opts...)
}

func (c *Client) ReverseExpense(ctx context.Context, req *ExpenseRequest, opts ...grpc.CallOption) (*ExpenseResponse, error) {
	return invoke[ExpenseResponse](ctx, c, "ReverseExpense", req, opts...)
}

func (c *Client) CorrectExpense(ctx context.Context, req *CorrectExpenseRequest, opts ...grpc.CallOption) (*CorrectExpenseResponse, error) {
	return invoke[CorrectExpenseResponse](ctx, c, "CorrectExpense", req, opts...)
}

func (c *Client) ListExpenses(ctx context.Context, req *ListExpensesRequest, opts ...grpc.CallOption) (*ListExpensesResponse, error) {
	return invoke[ListExpensesResponse](ctx, c, "ListExpenses", req, opts...)
}

func (c *Client) GetBalances(ctx context.Context, req *GroupRequest, opts ...grpc.CallOption) (*BalancesResponse, error) {
	return invoke[BalancesResponse](ctx, c, "GetBalances", req, opts...)
}

func (c *Client) PlanSettlement(ctx context.Context, req *GroupRequest, opts ...grpc.CallOption) (*SettlementResponse, error) {
	return invoke[SettlementResponse](ctx, c, "PlanSettlement", req, opts...)
}

func (c *Client) RecordPayment(ctx context.Context, req *RecordPaymentRequest, opts ...grpc.CallOption) (*PaymentResponse, error) {
	return invoke[PaymentResponse](ctx, c, "RecordPayment", req, opts...)
}

func (c *Client) ListPayments(ctx context.Context, req *GroupRequest, opts ...grpc.CallOption) (*ListPaymentsResponse, error) {
	return invoke[ListPaymentsResponse](ctx, c, "ListPayments", req, opts...)
}
