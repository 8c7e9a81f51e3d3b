package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/controller"
	grpchandler "github.com/Nazarious-ucu/weather-push-notifier/internal/handlers/grpc"
	httphandler "github.com/Nazarious-ucu/weather-push-notifier/internal/handlers/http"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const token = "ExponentPushToken[abcd]"

type memoryStore struct {
	mu     sync.Mutex
	docs   map[string]models.Subscription
	tokens map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string]models.Subscription{}, tokens: map[string]string{}}
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

func (s *memoryStore) SetPushToken(_ context.Context, userID, pushToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = pushToken
	return nil
}

func (s *memoryStore) doc(identity string) models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[identity]
}

type stubNotifier struct {
	err error
}

func (n stubNotifier) SendTest(context.Context, string) (models.PushReceipt, error) {
	if n.err != nil {
		return models.PushReceipt{}, n.err
	}
	return models.PushReceipt{Accepted: 1}, nil
}

func (stubNotifier) NotifyComment(context.Context, models.CommentEvent) {}

func newAPI(t *testing.T, n stubNotifier) (*httptest.Server, *memoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemoryStore()
	ctrl := controller.New(store, controller.NewNotifierTester(n), zerolog.Nop())

	router := gin.New()
	httphandler.Handlers{
		Test:          httphandler.NewTestHandler(n, true, 0, zerolog.Nop()),
		Subscriptions: httphandler.NewSubscriptionHandler(store, ctrl, zerolog.Nop()),
		Events:        httphandler.NewEventsHandler(store, n, zerolog.Nop()),
	}.Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func newGRPC(t *testing.T, n stubNotifier) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctrl := controller.New(newMemoryStore(), controller.NewNotifierTester(n), zerolog.Nop())
	srv := grpc.NewServer()
	grpchandler.RegisterNotificationServer(srv, grpchandler.NewNotificationGRPCServer(ctrl, zerolog.Nop()))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func pushctl(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String())
}

func TestPushctl_API(t *testing.T) {
	srv, store := newAPI(t, stubNotifier{})

	code, out, _ := pushctl("-api", srv.URL, "-token", token, "status")
	require.Equal(t, 0, code)
	assert.Equal(t, "inactive", out)

	code, out, _ = pushctl("-api", srv.URL, "-token", token, "subscribe")
	require.Equal(t, 0, code)
	assert.Equal(t, "subscribed", out)
	assert.Equal(t, models.Subscription{Identity: "abcd", Active: true, Token: token}, store.doc("abcd"))

	code, out, _ = pushctl("-api", srv.URL, "-token", token, "status")
	require.Equal(t, 0, code)
	assert.Equal(t, "active", out)

	code, out, _ = pushctl("-api", srv.URL, "-token", token, "unsubscribe")
	require.Equal(t, 0, code)
	assert.Equal(t, "unsubscribed", out)
	assert.False(t, store.doc("abcd").Active)

	code, out, _ = pushctl("-api", srv.URL, "-token", token, "test")
	require.Equal(t, 0, code)
	assert.Equal(t, "test notification sent", out)
}

func TestPushctl_API_Failures(t *testing.T) {
	srv, _ := newAPI(t, stubNotifier{err: &models.UpstreamError{Service: "ExpoPush", Status: 500, Message: "down"}})

	code, _, errOut := pushctl("-api", srv.URL, "-token", token, "test")
	assert.Equal(t, 1, code)
	assert.Equal(t, controller.MsgSomethingWrong, errOut)

	code, _, errOut = pushctl("-api", srv.URL, "-token", "not-a-token", "subscribe")
	assert.Equal(t, 1, code)
	assert.Equal(t, controller.MsgMalformedToken, errOut)
}

func TestPushctl_GRPC(t *testing.T) {
	addr := newGRPC(t, stubNotifier{})

	code, out, _ := pushctl("-grpc", addr, "-token", token, "subscribe")
	require.Equal(t, 0, code)
	assert.Equal(t, "subscribed", out)

	code, out, _ = pushctl("-grpc", addr, "-token", token, "status")
	require.Equal(t, 0, code)
	assert.Equal(t, "active", out)

	code, _, errOut := pushctl("-grpc", addr, "-token", "not-a-token", "status")
	assert.Equal(t, 1, code)
	assert.Equal(t, controller.MsgMalformedToken, errOut)
}

func TestPushctl_GRPC_TestFailure(t *testing.T) {
	addr := newGRPC(t, stubNotifier{err: errors.New("relay down")})

	code, _, errOut := pushctl("-grpc", addr, "-token", token, "test")
	assert.Equal(t, 1, code)
	assert.Equal(t, controller.MsgSomethingWrong, errOut)
}

func TestPushctl_GRPC_DownstreamFailure(t *testing.T) {
	addr := newGRPC(t, stubNotifier{err: &models.UpstreamError{Service: "ExpoPush", Status: 500, Message: "down"}})

	code, _, errOut := pushctl("-grpc", addr, "-token", token, "test")
	assert.Equal(t, 1, code)
	assert.Equal(t, controller.MsgSomethingWrong, errOut)
}

func TestPushctl_GRPC_Unreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	code, _, errOut := pushctl("-grpc", addr, "-token", token, "status")
	assert.Equal(t, 1, code)
	assert.Equal(t, controller.MsgNetwork, errOut)
}

func TestPushctl_Usage(t *testing.T) {
	cases := [][]string{
		{"status"},
		{"-api", "http://x", "-grpc", "y:1", "status"},
		{"-api", "http://x"},
	}
	for _, args := range cases {
		code, _, errOut := pushctl(args...)
		assert.Equal(t, 2, code, args)
		assert.Contains(t, errOut, "usage: pushctl")
	}

	srv, _ := newAPI(t, stubNotifier{})
	code, _, errOut := pushctl("-api", srv.URL, "-token", token, "explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage: pushctl")
}
