package grpc

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/controller"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

type subscriptionController interface {
	SetSubscriptionActive(ctx context.Context, pushToken string, active bool) error
	ReadSubscriptionActive(ctx context.Context, pushToken string) (bool, error)
	TestSubscription(ctx context.Context, pushToken string) error
}

type NotificationGRPCServer struct {
	ctrl   subscriptionController
	logger zerolog.Logger
}

func NewNotificationGRPCServer(ctrl subscriptionController, logger zerolog.Logger) *NotificationGRPCServer {
	logger = logger.With().Str("component", "NotificationGRPCServer").Logger()
	return &NotificationGRPCServer{ctrl: ctrl, logger: logger}
}

func (s *NotificationGRPCServer) SendTest(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.ctrl.TestSubscription(ctx, in.GetValue()); err != nil {
		return nil, s.toStatus("send test", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *NotificationGRPCServer) GetSubscription(
	ctx context.Context,
	in *wrapperspb.StringValue,
) (*wrapperspb.BoolValue, error) {
	active, err := s.ctrl.ReadSubscriptionActive(ctx, in.GetValue())
	if err != nil {
		return nil, s.toStatus("get subscription", err)
	}
	return wrapperspb.Bool(active), nil
}

func (s *NotificationGRPCServer) SetSubscription(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	fields := in.GetFields()

	token := fields["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}
	activeValue, ok := fields["active"].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "active must be a boolean")
	}

	if err := s.ctrl.SetSubscriptionActive(ctx, token, activeValue.BoolValue); err != nil {
		return nil, s.toStatus("set subscription", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *NotificationGRPCServer) toStatus(op string, err error) error {
	var (
		storageErr   *models.StorageError
		transportErr *models.TransportError
		upstreamErr  *models.UpstreamError
	)
	switch {
	case errors.Is(err, models.ErrMalformedIdentity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, controller.ErrOperationInFlight):
		return status.Error(codes.Aborted, err.Error())
	case errors.As(err, &storageErr):
		s.logger.Error().Err(err).Str("op", op).Msg("storage failure")
		return status.Error(codes.Internal, err.Error())
	case errors.As(err, &transportErr), errors.As(err, &upstreamErr):
		// Unavailable is left to the channel itself.
		s.logger.Warn().Err(err).Str("op", op).Msg("downstream failure")
		return status.Error(codes.Internal, err.Error())
	default:
		s.logger.Error().Err(err).Str("op", op).Msg("unexpected failure")
		return status.Error(codes.Internal, err.Error())
	}
}
