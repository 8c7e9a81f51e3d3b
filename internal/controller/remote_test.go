package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/controller"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

func TestHTTPTester(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test", r.URL.Path)
		switch r.URL.Query().Get("token") {
		case "ExponentPushToken[ok]":
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"ok":false,"data":"OpenWeatherMap error (status 401): Invalid API key"}`))
		}
	}))
	t.Cleanup(srv.Close)

	tester := controller.NewHTTPTester(srv.URL+"/", srv.Client(), zerolog.Nop())

	require.NoError(t, tester.Test(context.Background(), "ExponentPushToken[ok]"))

	err := tester.Test(context.Background(), "ExponentPushToken[bad]")
	var upstream *models.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
	assert.Equal(t, "OpenWeatherMap error (status 401): Invalid API key", upstream.Message)
}

func TestHTTPTester_Unreachable(t *testing.T) {
	tester := controller.NewHTTPTester("http://127.0.0.1:1", http.DefaultClient, zerolog.Nop())

	err := tester.Test(context.Background(), "ExponentPushToken[ok]")

	var transport *models.TransportError
	assert.ErrorAs(t, err, &transport)
	assert.Equal(t, controller.MsgNetwork, controller.DisplayMessage(err))
}

func TestHTTPStore_RoundTrip(t *testing.T) {
	var (
		mu   sync.Mutex
		docs = map[string][]byte{}
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/subscriptions/{identity}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		identity := r.PathValue("identity")
		switch r.Method {
		case http.MethodGet:
			doc, ok := docs[identity]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"not found"}`))
				return
			}
			_, _ = w.Write(doc)
		case http.MethodPut:
			var sub models.Subscription
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
			docs[identity], _ = json.Marshal(sub)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := controller.NewHTTPStore(srv.URL, srv.Client())
	c := controller.New(store, &mockTester{}, zerolog.Nop())
	ctx := context.Background()

	active, err := c.ReadSubscriptionActive(ctx, "ExponentPushToken[abcd]")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, c.SetSubscriptionActive(ctx, "ExponentPushToken[abcd]", true))

	active, err = c.ReadSubscriptionActive(ctx, "ExponentPushToken[abcd]")
	require.NoError(t, err)
	assert.True(t, active)
	assert.JSONEq(t, `{"active":true,"token":"ExponentPushToken[abcd]"}`, string(docs["abcd"]))
}

func TestHTTPStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"storage get \"abcd\": database is locked"}`))
	}))
	t.Cleanup(srv.Close)

	store := controller.NewHTTPStore(srv.URL, srv.Client())

	_, _, err := store.Get(context.Background(), "abcd")

	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	var upstream *models.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, `storage get "abcd": database is locked`, upstream.Message)
}
