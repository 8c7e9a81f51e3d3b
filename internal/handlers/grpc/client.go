package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// NotificationClient calls NotificationService over an established connection.
type NotificationClient struct {
	cc grpc.ClientConnInterface
}

func NewNotificationClient(cc grpc.ClientConnInterface) *NotificationClient {
	return &NotificationClient{cc: cc}
}

func (c *NotificationClient) SendTest(ctx context.Context, pushToken string) error {
	return c.cc.Invoke(ctx, sendTestMethod, wrapperspb.String(pushToken), new(emptypb.Empty))
}

func (c *NotificationClient) GetSubscription(ctx context.Context, pushToken string) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, getSubscriptionMethod, wrapperspb.String(pushToken), out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *NotificationClient) SetSubscription(ctx context.Context, pushToken string, active bool) error {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"token":  structpb.NewStringValue(pushToken),
		"active": structpb.NewBoolValue(active),
	}}
	return c.cc.Invoke(ctx, setSubscriptionMethod, in, new(emptypb.Empty))
}
