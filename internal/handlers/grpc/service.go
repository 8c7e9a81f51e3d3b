package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "weatherpush.v1.NotificationService"

const (
	sendTestMethod        = "/" + ServiceName + "/SendTest"
	getSubscriptionMethod = "/" + ServiceName + "/GetSubscription"
	setSubscriptionMethod = "/" + ServiceName + "/SetSubscription"
)

// NotificationServer is built on protobuf well-known types only:
// SendTest and GetSubscription take the push token as a StringValue,
// SetSubscription takes a Struct {token: string, active: bool}.
type NotificationServer interface {
	SendTest(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error)
	GetSubscription(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	SetSubscription(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
}

var NotificationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NotificationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendTest", Handler: sendTestHandler},
		{MethodName: "GetSubscription", Handler: getSubscriptionHandler},
		{MethodName: "SetSubscription", Handler: setSubscriptionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "weatherpush/v1/notification.proto",
}

func RegisterNotificationServer(s grpc.ServiceRegistrar, srv NotificationServer) {
	s.RegisterService(&NotificationServiceDesc, srv)
}

func sendTestHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotificationServer).SendTest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sendTestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotificationServer).SendTest(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getSubscriptionHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotificationServer).GetSubscription(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSubscriptionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotificationServer).GetSubscription(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func setSubscriptionHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotificationServer).SetSubscription(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: setSubscriptionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotificationServer).SetSubscription(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
