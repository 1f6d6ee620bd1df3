package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "splitledger.v1.SplitLedger"

// SplitLedgerServer is the set of RPCs served under ServiceName
type SplitLedgerServer interface {
	CreateGroup(context.Context, *CreateGroupRequest) (*GroupResponse, error)
	AddMember(context.Context, *AddMemberRequest) (*GroupResponse, error)
	GetGroup(context.Context, *GroupRequest) (*GroupResponse, error)
	PreviewSplit(context.Context, *PreviewSplitRequest) (*SplitResponse, error)
	RecordExpense(context.Context, *RecordExpenseRequest) (*ExpenseResponse, error)
	ReverseExpense(context.Context, *ExpenseRequest) (*ExpenseResponse, error)
	CorrectExpense(context.Context, *CorrectExpenseRequest) (*CorrectExpenseResponse, error)
	ListExpenses(context.Context, *ListExpensesRequest) (*ListExpensesResponse, error)
	GetBalances(context.Context, *GroupRequest) (*BalancesResponse, error)
	PlanSettlement(context.Context, *GroupRequest) (*SettlementResponse, error)
	RecordPayment(context.Context, *RecordPaymentRequest) (*PaymentResponse, error)
	ListPayments(context.Context, *GroupRequest) (*ListPaymentsResponse, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ServiceDesc describes the SplitLedger service. Every request and response
// is a google.protobuf.Struct so that no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SplitLedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateGroup", SplitLedgerServer.CreateGroup),
		unary("AddMember", SplitLedgerServer.AddMember),
		unary("GetGroup", SplitLedgerServer.GetGroup),
		unary("PreviewSplit", SplitLedgerServer.PreviewSplit),
		unary("RecordExpense", SplitLedgerServer.RecordExpense),
		unary("ReverseExpense", SplitLedgerServer.ReverseExpense),
		unary("CorrectExpense", SplitLedgerServer.CorrectExpense),
		unary("ListExpenses", SplitLedgerServer.ListExpenses),
		unary("GetBalances", SplitLedgerServer.GetBalances),
		unary("PlanSettlement", SplitLedgerServer.PlanSettlement),
		unary("RecordPayment", SplitLedgerServer.RecordPayment),
		unary("ListPayments", SplitLedgerServer.ListPayments),
	},
	Metadata: "splitledger/v1/splitledger.proto",
}

// RegisterSplitLedgerServer registers the service on a gRPC server
func RegisterSplitLedgerServer(s grpc.ServiceRegistrar, srv SplitLedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(SplitLedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}

			handler := func(ctx context.Context, req any) (any, error) {
				body, ok := req.(*structpb.Struct)
				if !ok {
					return nil, status.Errorf(codes.Internal, "unexpected request type %T", req)
				}
				dto := new(Req)
				if err := decodeStruct(body, dto); err != nil {
					return nil, err
				}
				out, err := call(srv.(SplitLedgerServer), ctx, dto)
				if err != nil {
					return nil, err
				}
				return encodeStruct(out)
			}

			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fmt.Sprintf("/%s/%s", ServiceName, name),
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// decodeStruct fills dst from the request body and validates it
func decodeStruct(body *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(body)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// decodeResponse fills dst from a response body without validation
func decodeResponse(body *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(body)
	if err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

func encodeStruct(src any) (*structpb.Struct, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}
