package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blankhall98/Metaleria-API/pkg/config"
)

func TestSetNXOnlyWritesOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	ok, err := client.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestCompareAndDeleteChecksOwner(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}
	fake.data["metaleria:lock:cron-worker:prod"] = "owner-a"

	deleted, err := client.CompareAndDelete(ctx, "metaleria:lock:cron-worker:prod", "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, fake.data, "metaleria:lock:cron-worker:prod")

	deleted, err = client.CompareAndDelete(ctx, "metaleria:lock:cron-worker:prod", "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, fake.data)
	assert.Equal(t, compareAndDelete, fake.lastScript)
}

func TestNilClientErrors(t *testing.T) {
	var client *Client
	assert.Error(t, client.Ping(context.Background()))
	_, err := client.SetNX(context.Background(), "k", "v", 0)
	assert.Error(t, err)
	_, err = client.CompareAndDelete(context.Background(), "k", "v")
	assert.Error(t, err)
	assert.NoError(t, client.Close())
	assert.NoError(t, (&Client{}).Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "metaleria:idempotency:payments:abc", client.IdempotencyKey("payments", "abc"))
	assert.Equal(t, "metaleria:lock:cron-worker:prod", client.LockKey("cron-worker", "prod"))
	assert.Equal(t, "metaleria:lock:cron-worker", client.LockKey("cron-worker", " "))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
}

type fakeCommands struct {
	data       map[string]string
	lastScript string
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: make(map[string]string)}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// Eval only understands compareAndDelete.
func (f *fakeCommands) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	f.lastScript = script
	if f.data[keys[0]] == fmt.Sprint(args[0]) {
		delete(f.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}
