package indexerclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glittrfi/glittr-go/domain/workflow"
	"github.com/glittrfi/glittr-go/infrastructure/network/httpclient"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(httpclient.Config{BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func TestValidateTx(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/validate-tx", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		switch string(body) {
		case "01":
			_, _ = w.Write([]byte(`{"is_valid":true}`))
		case "02":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"is_valid":false,"msg":"bad contract"}`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))

	validation, err := client.ValidateTx(context.Background(), []byte{0x01})
	require.NoError(t, err)
	require.True(t, validation.IsValid)

	validation, err = client.ValidateTx(context.Background(), []byte{0x02})
	require.NoError(t, err)
	require.False(t, validation.IsValid)
	require.Equal(t, "bad contract", validation.Msg)

	_, err = client.ValidateTx(context.Background(), []byte{0x03})
	require.Error(t, err)
}

func TestGetTx(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tx/found":
			_, _ = w.Write([]byte(`{"is_valid":true}`))
		case "/tx/broken":
			http.Error(w, "oops", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))

	record, err := client.GetTx(context.Background(), "found")
	require.NoError(t, err)
	require.JSONEq(t, `{"is_valid":true}`, string(record))

	_, err = client.GetTx(context.Background(), "missing")
	require.True(t, errors.Is(err, workflow.ErrNotIndexed), "unexpected error %v", err)

	_, err = client.GetTx(context.Background(), "broken")
	require.Error(t, err)
	require.False(t, errors.Is(err, workflow.ErrNotIndexed))
}

// TestWorkflowAgainstIndexer runs the full workflow against HTTP fakes of
// both services.
func TestWorkflowAgainstIndexer(t *testing.T) {
	var polls int32
	indexer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/validate-tx":
			_, _ = w.Write([]byte(`{"is_valid":true}`))
		case "/tx/abc123":
			if atomic.AddInt32(&polls, 1) == 1 {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(`{"message":{"valid":true}}`))
		default:
			t.Errorf("unexpected indexer request %s", r.URL.Path)
		}
	}))
	chain := broadcasterFunc(func(ctx context.Context, rawTx []byte) (string, error) {
		return "abc123", nil
	})

	w := workflow.New(indexer, chain)
	w.Policy.NotFoundInterval = time.Millisecond

	confirmation, err := w.Run(context.Background(), []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, "abc123", confirmation.TxID)
	require.JSONEq(t, `{"message":{"valid":true}}`, string(confirmation.Record))
	require.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

type broadcasterFunc func(ctx context.Context, rawTx []byte) (string, error)

func (f broadcasterFunc) BroadcastTx(ctx context.Context, rawTx []byte) (string, error) {
	return f(ctx, rawTx)
}
