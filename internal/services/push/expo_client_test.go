package push_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/push"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, ok := args.Get(0).(*http.Response)
	if !ok {
		return nil, args.Error(1)
	}
	return resp, args.Error(1)
}

func messages(n int) []models.PushMessage {
	msgs := make([]models.PushMessage, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, models.PushMessage{
			To:    fmt.Sprintf("ExponentPushToken[%d]", i),
			Title: "Barcelona is Clear today",
			Body:  "20 ºC",
			Data:  map[string]any{"temperature": 20},
		})
	}
	return msgs
}

func TestExpoClient_Send_ChunksAndCountsTickets(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var chunk []models.PushMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&chunk))
		assert.LessOrEqual(t, len(chunk), push.MaxChunkSize)

		tickets := make([]models.PushTicket, 0, len(chunk))
		for i := range chunk {
			if i == 0 {
				tickets = append(tickets, models.PushTicket{Status: models.TicketStatusError, Message: "DeviceNotRegistered"})
				continue
			}
			tickets = append(tickets, models.PushTicket{Status: models.TicketStatusOK, ID: fmt.Sprint(i)})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": tickets})
	}))
	t.Cleanup(srv.Close)

	client := push.NewExpoClient(srv.URL, "secret", srv.Client(), zerolog.Nop())

	receipt, err := client.Send(context.Background(), messages(150))
	require.NoError(t, err)

	assert.EqualValues(t, 2, requests.Load())
	assert.Equal(t, 148, receipt.Accepted)
	assert.Equal(t, 2, receipt.Rejected)
	assert.Len(t, receipt.Tickets, 150)
}

func TestExpoClient_Send_RequestErrors(t *testing.T) {
	m := &mockHTTPClient{}
	m.On("Do", mock.Anything).Return(&http.Response{
		StatusCode: http.StatusBadRequest,
		Body: io.NopCloser(strings.NewReader(
			`{"errors":[{"code":"VALIDATION_ERROR","message":"\"to\" must be a string"}]}`)),
	}, nil).Once()

	t.Cleanup(func() {
		m.AssertExpectations(t)
	})

	client := push.NewExpoClient("https://exp.host/--/api/v2/push/send", "", m, zerolog.Nop())

	_, err := client.Send(context.Background(), messages(1))

	var upstream *models.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.Status)
	assert.Equal(t, `"to" must be a string`, upstream.Message)
}

func TestExpoClient_Send_TransportError(t *testing.T) {
	m := &mockHTTPClient{}
	m.On("Do", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	t.Cleanup(func() {
		m.AssertExpectations(t)
	})

	client := push.NewExpoClient("https://exp.host/--/api/v2/push/send", "", m, zerolog.Nop())

	_, err := client.Send(context.Background(), messages(3))

	var transport *models.TransportError
	assert.ErrorAs(t, err, &transport)
}

func TestChunk(t *testing.T) {
	cases := []struct {
		n    int
		want []int
	}{
		{n: 0, want: []int{}},
		{n: 1, want: []int{1}},
		{n: 100, want: []int{100}},
		{n: 201, want: []int{100, 100, 1}},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.n), func(t *testing.T) {
			chunks := push.Chunk(messages(tc.n), push.MaxChunkSize)

			sizes := make([]int, 0, len(chunks))
			for _, c := range chunks {
				sizes = append(sizes, len(c))
			}
			assert.Equal(t, tc.want, sizes)
		})
	}
}
