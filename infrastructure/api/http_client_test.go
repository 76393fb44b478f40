package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowsync/domain/core/aggregates"
	"flowsync/pkg/auth"
	"flowsync/pkg/errors"
	"flowsync/tests/mocks"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, auth.NewStaticTokenSource("token"), nil, zap.NewNop(), Options{})
	return client, server
}

func TestClient_SaveRoundTrip(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/workflows/wf-1", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var wf aggregates.Workflow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wf))
		wf.Name = "stored"
		_ = json.NewEncoder(w).Encode(wf)
	}))

	wf := &aggregates.Workflow{ID: "wf-1", Name: "local"}
	stored, err := client.Save(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, "stored", stored.Name)
}

func TestClient_MapsStatusToErrorType(t *testing.T) {
	status := int32(http.StatusUnprocessableEntity)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(atomic.LoadInt32(&status)))
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "nope", "code": "MISSING_NODES"})
	}))

	err := client.Execute(context.Background(), "wf-1")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	atomic.StoreInt32(&status, http.StatusForbidden)
	err = client.Execute(context.Background(), "wf-1")
	assert.True(t, errors.IsAuth(err))

	atomic.StoreInt32(&status, http.StatusNotFound)
	err = client.Execute(context.Background(), "wf-1")
	assert.True(t, errors.IsNotFound(err))

	atomic.StoreInt32(&status, http.StatusBadGateway)
	err = client.Execute(context.Background(), "wf-1")
	assert.True(t, errors.IsTransport(err))
}

func TestClient_AuthFailureTriggersOneRecovery(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]aggregates.Workflow{})
	}))
	defer server.Close()

	recoverer := new(mocks.MockSessionRecoverer)
	recoverer.On("Recover", mock.Anything).Return(nil).Once()

	client := NewClient(server.URL, auth.NewStaticTokenSource("token"), recoverer, zap.NewNop(), Options{})
	_, err := client.List(context.Background())
	require.NoError(t, err)

	recoverer.AssertExpectations(t)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_RecoveryFailureSurfacesAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	recoverer := new(mocks.MockSessionRecoverer)
	recoverer.On("Recover", mock.Anything).Return(errors.NewAuthError("refresh rejected"))

	client := NewClient(server.URL, auth.NewStaticTokenSource("token"), recoverer, zap.NewNop(), Options{})
	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client.http.Timeout = time.Second

	for i := 0; i < 5; i++ {
		_, err := client.List(context.Background())
		require.Error(t, err)
	}

	_, err := client.List(context.Background())
	require.Error(t, err)
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CIRCUIT_OPEN", appErr.Code)
}
