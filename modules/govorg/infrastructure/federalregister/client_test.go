package federalregister

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(baseURL string, attempts int) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		MinRequestGap: time.Millisecond,
		RetryAttempts: attempts,
	}, testLogger())
}

func TestClient_FetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agencies", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "Department of Justice", "short_name": "DOJ", "slug": "justice-department"},
			{"id": 2, "name": "Federal Bureau of Investigation", "short_name": "FBI", "parent_id": 1}
		]`))
	}))
	defer server.Close()

	agencies, err := newTestClient(server.URL, 3).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, agencies, 2)
	assert.Equal(t, "Department of Justice", agencies[0].Name)
	assert.Equal(t, "DOJ", agencies[0].ShortName)
	require.NotNil(t, agencies[1].ParentID)
	assert.Equal(t, int64(1), *agencies[1].ParentID)
}

func TestClient_FetchAgency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agencies/justice-department", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 1, "name": "Department of Justice", "slug": "justice-department"}`))
	}))
	defer server.Close()

	agency, err := newTestClient(server.URL, 3).FetchAgency(context.Background(), "justice-department")
	require.NoError(t, err)
	assert.Equal(t, "Department of Justice", agency.Name)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	agencies, err := newTestClient(server.URL, 2).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agencies)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ExhaustedRetriesReturnErrUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 2).FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_PermanentFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).FetchAll(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MinRequestGapIsEnforced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	gap := 50 * time.Millisecond
	client := NewClient(Config{
		BaseURL:       server.URL,
		MinRequestGap: gap,
		RetryAttempts: 1,
	}, testLogger())

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.FetchAll(context.Background())
		require.NoError(t, err)
	}
	// The limiter admits the first request immediately and spaces the rest.
	assert.GreaterOrEqual(t, time.Since(start), 2*gap)
}

func TestClient_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))

	client := newTestClient(server.URL, 1)
	assert.True(t, client.IsAvailable(context.Background()))

	server.Close()
	assert.False(t, client.IsAvailable(context.Background()))
}
