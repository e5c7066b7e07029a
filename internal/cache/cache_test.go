package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := New(mr.Addr(), "", 0)
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestClient_SetGetDelete(t *testing.T) {
	client, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, client.Delete(ctx, "k"))
	got, err = client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_TTL(t *testing.T) {
	client, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "short", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	got, _ := client.Get(ctx, "short")
	assert.Nil(t, got)
}

func TestClient_JSON(t *testing.T) {
	client, _ := setupCache(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	client.SetJSON(ctx, "p", payload{Name: "food"}, time.Minute)

	var out payload
	assert.True(t, client.GetJSON(ctx, "p", &out))
	assert.Equal(t, "food", out.Name)

	assert.False(t, client.GetJSON(ctx, "missing", &out))
}

func TestClient_FailsSafeWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := New(mr.Addr(), "", 0)
	defer client.Close()
	ctx := context.Background()
	mr.Close()

	assert.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := client.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, client.Delete(ctx, "k"))
	assert.Error(t, client.Ping(ctx))
}

func TestClient_NilIsEmptyCache(t *testing.T) {
	var client *Client
	ctx := context.Background()

	assert.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := client.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, client.Ping(ctx))
	assert.NoError(t, client.Close())
}
