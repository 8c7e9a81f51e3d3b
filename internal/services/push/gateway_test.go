package push_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/push"
)

type mockSender struct {
	mock.Mock
	release chan struct{}
}

func (m *mockSender) Send(ctx context.Context, msgs []models.PushMessage) (models.PushReceipt, error) {
	if m.release != nil {
		<-m.release
	}
	args := m.Called(ctx, msgs)
	receipt, _ := args.Get(0).(models.PushReceipt)
	return receipt, args.Error(1)
}

func TestGateway_SubmitAndWait(t *testing.T) {
	s := &mockSender{}
	msgs := messages(2)
	s.On("Send", mock.Anything, msgs).Return(models.PushReceipt{Accepted: 2}, nil).Once()

	gw := push.NewGateway(s, zerolog.Nop(), time.Second)

	receipt, err := gw.Submit(context.Background(), msgs).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Accepted)
	s.AssertExpectations(t)
}

func TestGateway_SubmitIsAsynchronous(t *testing.T) {
	s := &mockSender{release: make(chan struct{})}
	s.On("Send", mock.Anything, mock.Anything).Return(models.PushReceipt{Accepted: 1}, nil).Once()

	gw := push.NewGateway(s, zerolog.Nop(), time.Second)
	sub := gw.Submit(context.Background(), messages(1))

	select {
	case <-sub.Done():
		t.Fatal("submission finished before the relay answered")
	default:
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sub.Wait(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(s.release)
	gw.Close()

	receipt, err := sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.Accepted)
}

func TestGateway_CallerCancellationDoesNotAbortSend(t *testing.T) {
	s := &mockSender{release: make(chan struct{})}
	s.On("Send", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(models.PushReceipt{Accepted: 1}, nil).Once()

	gw := push.NewGateway(s, zerolog.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	sub := gw.Submit(ctx, messages(1))
	cancel()
	close(s.release)

	_, err := sub.Wait(context.Background())
	require.NoError(t, err)
	s.AssertExpectations(t)
}

func TestGateway_SendFailure(t *testing.T) {
	s := &mockSender{}
	s.On("Send", mock.Anything, mock.Anything).Return(models.PushReceipt{}, errors.New("relay down")).Once()

	gw := push.NewGateway(s, zerolog.Nop(), time.Second)

	_, err := gw.Submit(context.Background(), messages(1)).Wait(context.Background())
	assert.EqualError(t, err, "relay down")
}

func TestGateway_EmptyBatch(t *testing.T) {
	s := &mockSender{}
	gw := push.NewGateway(s, zerolog.Nop(), time.Second)

	receipt, err := gw.Submit(context.Background(), nil).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PushReceipt{}, receipt)
	s.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
