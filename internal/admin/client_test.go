package admin

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/npcspawn/internal/testutil"
)

// serve запускает fiber app на случайном порту.
func serve(t *testing.T, f *fixture) string {
	t.Helper()

	ln, addr := testutil.ListenTCP(t)
	go func() {
		_ = f.app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = f.app.Shutdown()
	})
	return addr
}

func TestClient_RoundTrip(t *testing.T) {
	f := newFixture(t)
	client := NewClient(serve(t, f), testAPIKey)
	ctx := context.Background()

	n, err := client.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	h, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Entries)

	entries, err := client.List(ctx, "", "talking_island")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	one, err := client.Entry(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entries[0].ID, one.ID)

	sum, err := client.Register(ctx, RegisterRequest{
		Area: "talking_island", Template: 1000, Room: "#2", MaxCount: 1, RespawnDelay: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Live)

	require.NoError(t, client.Remove(ctx, sum.ID))

	n, err = client.ForceRespawn(ctx, "village_square")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClient_APIError(t *testing.T) {
	f := newFixture(t)
	addr := serve(t, f)
	ctx := context.Background()

	_, err := NewClient(addr, testAPIKey).ResetArea(ctx, "nowhere")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Message, "no spawn entries match")

	err = NewClient("http://"+addr, "wrong").Remove(ctx, uuid.New())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestServe_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	addr := testutil.FreeAddr(t)
	ctx, cancel := testutil.ContextWithCancel(t)

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, f.app, addr)
	}()
	require.NoError(t, testutil.WaitForTCPReady(addr, 5*time.Second))

	h, err := NewClient(addr, "").Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
