package grpc_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/controller"
	grpchandler "github.com/Nazarious-ucu/weather-push-notifier/internal/handlers/grpc"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const bufSize = 1024 * 1024

type memoryStore struct {
	mu   sync.Mutex
	docs map[string]models.Subscription
}

func (s *memoryStore) Get(_ context.Context, identity string) (models.Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.docs[identity]
	return sub, ok, nil
}

func (s *memoryStore) Upsert(_ context.Context, identity string, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[identity] = sub
	return nil
}

type stubTester struct {
	err error
}

func (s stubTester) Test(context.Context, string) error {
	return s.err
}

func dial(t *testing.T, tester stubTester) (*grpchandler.NotificationClient, *grpc.ClientConn) {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	m := metrics.NewMetrics("grpc_test")

	srv := grpc.NewServer(grpc.UnaryInterceptor(m.UnaryServerInterceptor()))
	ctrl := controller.New(&memoryStore{docs: map[string]models.Subscription{}}, tester, zerolog.Nop())
	grpchandler.RegisterNotificationServer(srv, grpchandler.NewNotificationGRPCServer(ctrl, zerolog.Nop()))
	m.GRPC.InitializeMetrics(srv)

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return grpchandler.NewNotificationClient(conn), conn
}

func TestSubscriptionRoundTrip(t *testing.T) {
	client, _ := dial(t, stubTester{})
	ctx := context.Background()

	active, err := client.GetSubscription(ctx, "ExponentPushToken[abcd]")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, client.SetSubscription(ctx, "ExponentPushToken[abcd]", true))

	active, err = client.GetSubscription(ctx, "ExponentPushToken[abcd]")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestMalformedToken_InvalidArgument(t *testing.T) {
	client, _ := dial(t, stubTester{})

	_, err := client.GetSubscription(context.Background(), "no-brackets")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = client.SendTest(context.Background(), "no-brackets")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSetSubscription_RequiresBoolean(t *testing.T) {
	_, conn := dial(t, stubTester{})

	in, err := structpb.NewStruct(map[string]any{"token": "ExponentPushToken[abcd]", "active": "yes"})
	require.NoError(t, err)

	err = conn.Invoke(context.Background(), "/"+grpchandler.ServiceName+"/SetSubscription", in, new(emptypb.Empty))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSendTest(t *testing.T) {
	client, _ := dial(t, stubTester{})
	require.NoError(t, client.SendTest(context.Background(), "ExponentPushToken[abcd]"))

	failing, _ := dial(t, stubTester{err: &models.UpstreamError{Service: "ExpoPush", Status: 500, Message: "down"}})
	err := failing.SendTest(context.Background(), "ExponentPushToken[abcd]")
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "ExpoPush error (status 500): down")

	broken, _ := dial(t, stubTester{err: errors.New("boom")})
	err = broken.SendTest(context.Background(), "ExponentPushToken[abcd]")
	assert.Equal(t, codes.Internal, status.Code(err))
}
