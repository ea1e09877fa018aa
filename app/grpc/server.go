package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/callmind/ms-go-billing/app/mapper"
	"github.com/callmind/ms-go-billing/app/service"
	"github.com/callmind/ms-go-billing/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "callmind.billing.v1.BillingService"

type BillingServiceServer interface {
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPrices(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateCheckout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUserCredits(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterBillingServiceServer(registrar grpc.ServiceRegistrar, srv BillingServiceServer) {
	registrar.RegisterService(&BillingServiceDesc, srv)
}

var BillingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BillingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: healthHandler},
		{MethodName: "GetPrices", Handler: structHandler("GetPrices", BillingServiceServer.GetPrices)},
		{MethodName: "CreateCheckout", Handler: structHandler("CreateCheckout", BillingServiceServer.CreateCheckout)},
		{MethodName: "GetUserCredits", Handler: structHandler("GetUserCredits", BillingServiceServer.GetUserCredits)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "callmind/billing/v1/billing.proto",
}

func healthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillingServiceServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Health"}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BillingServiceServer).Health(ctx, req.(*emptypb.Empty))
	})
}

func structHandler(
	method string,
	call func(BillingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BillingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(BillingServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

type Server struct {
	billingService *service.BillingService
}

func NewServer(billingService *service.BillingService) *Server {
	return &Server{billingService: billingService}
}

func (s *Server) Health(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(&types.HealthResponse{Status: "ok"})
}

func (s *Server) GetPrices(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &types.PricesRequest{Provider: strings.ToLower(stringField(in, "provider"))}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	quotes, err := s.billingService.Prices(req.GetProvider())
	if err != nil {
		return nil, statusFromError(ctx, err, "List prices failed")
	}
	return toStruct(mapper.PricesToResponse(req.GetProvider(), quotes))
}

func (s *Server) CreateCheckout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &types.CheckoutRequest{
		Provider:     strings.ToLower(stringField(in, "provider")),
		Plan:         strings.ToLower(stringField(in, "plan")),
		UserID:       stringField(in, "user_id"),
		BillingCycle: strings.ToLower(stringField(in, "billing_cycle")),
		Phone:        stringField(in, "phone"),
	}
	if req.BillingCycle == "" {
		if v, ok := in.GetFields()["yearly"]; ok {
			if v.GetBoolValue() {
				req.BillingCycle = "yearly"
			} else {
				req.BillingCycle = "monthly"
			}
		}
	}
	if err := req.Validate(); err != nil {
		loggerWithContext(ctx).WithError(err).Debug("Create checkout validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.billingService.BuildCheckout(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Create checkout failed")
	}
	return toStruct(mapper.CheckoutToResponse(result))
}

func (s *Server) GetUserCredits(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &types.UserCreditsRequest{UserID: stringField(in, "user_id")}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	user, grants, err := s.billingService.GetUserCredits(ctx, req.GetUserID())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get user credits failed")
	}
	return toStruct(mapper.UserCreditsToResponse(user, grants))
}

func statusFromError(ctx context.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidPlan):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrConfiguration):
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.FailedPrecondition, service.ErrConfiguration.Error())
	case errors.Is(err, service.ErrUpstream):
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Unavailable, err.Error())
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}

func stringField(in *structpb.Struct, name string) string {
	value, ok := in.GetFields()[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(value.GetStringValue())
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
