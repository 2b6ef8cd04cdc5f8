package optimizer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	outcomes []string
	retries  int
}

func (m *recordingMetrics) ObserveOptimizerCall(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) ObserveOptimizerRetry() {
	m.retries++
}

func testClient(t *testing.T, endpoint string, metrics Metrics) *Client {
	t.Helper()
	return New(Config{
		Endpoint:   endpoint,
		Username:   "fleet",
		Password:   "secret",
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:    metrics,
	})
}

func sampleLocations() []Location {
	return []Location{
		{Address: "Depot", Lat: 52.0, Lng: 4.0, ServiceTime: 0},
		{Address: "Customer A", Lat: 52.1, Lng: 4.1, ServiceTime: 10},
	}
}

func TestOptimizeEmptyInputNoNetworkCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL, nil)
	_, err := client.Optimize(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoLocations)
	require.Zero(t, atomic.LoadInt32(&calls))
	require.True(t, client.permit.TryAcquire(1), "permit must not be held")
	client.permit.Release(1)
}

func TestOptimizeWireContract(t *testing.T) {
	var gotUser, gotPass, gotContentType, gotLocations string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotLocations = r.PostFormValue("locations")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Id": "plan-7",
			"Count": 2,
			"Feasible": true,
			"Route": {
				"stop-b": {"Name": "Customer A", "Arrival": 840, "Distance": 12.5},
				"stop-a": {"Name": "Depot", "Arrival": 0, "Distance": 0}
			}
		}`))
	}))
	defer srv.Close()

	metrics := &recordingMetrics{}
	client := testClient(t, srv.URL, metrics)

	plan, err := client.Optimize(context.Background(), sampleLocations())
	require.NoError(t, err)

	require.Equal(t, "fleet", gotUser)
	require.Equal(t, "secret", gotPass)
	require.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	var sent []Location
	require.NoError(t, json.Unmarshal([]byte(gotLocations), &sent))
	require.Len(t, sent, 2)
	require.Equal(t, "Depot", sent[0].Address)

	require.Equal(t, "plan-7", plan.ID)
	require.Equal(t, 2, plan.Count)
	require.True(t, plan.Feasible)
	require.Len(t, plan.Stops, 2)
	// stops come back ordered by arrival regardless of map iteration
	require.Equal(t, "stop-a", plan.Stops[0].Key)
	require.Equal(t, "stop-b", plan.Stops[1].Key)

	require.Equal(t, []string{"ok"}, metrics.outcomes)
	require.Zero(t, metrics.retries)
}

func TestOptimizeRetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Id":"plan-1","Count":2,"Feasible":true,"Route":{}}`))
	}))
	defer srv.Close()

	metrics := &recordingMetrics{}
	client := testClient(t, srv.URL, metrics)

	plan, err := client.Optimize(context.Background(), sampleLocations())
	require.NoError(t, err)
	require.Equal(t, "plan-1", plan.ID)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Equal(t, 2, metrics.retries)
	require.Equal(t, []string{"ok"}, metrics.outcomes)

	require.True(t, client.permit.TryAcquire(1), "permit must be released after success")
	client.permit.Release(1)
}

func TestOptimizeFatalOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	metrics := &recordingMetrics{}
	client := testClient(t, srv.URL, metrics)

	_, err := client.Optimize(context.Background(), sampleLocations())
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", fatal.CorrelationID.String())
	require.ErrorContains(t, fatal.Cause, "unexpected status 500")

	require.Equal(t, []string{"fatal"}, metrics.outcomes)
	require.True(t, client.permit.TryAcquire(1), "permit must be released after fatal error")
	client.permit.Release(1)
}

func TestOptimizeFatalOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL, &recordingMetrics{})
	_, err := client.Optimize(context.Background(), sampleLocations())
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestOptimizeHonorsCancellationWhileQueued(t *testing.T) {
	client := testClient(t, "http://127.0.0.1:0", nil)

	// hold the permit so the call queues
	require.True(t, client.permit.TryAcquire(1))
	defer client.permit.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Optimize(ctx, sampleLocations())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
