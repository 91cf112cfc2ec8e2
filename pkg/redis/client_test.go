package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/statbricks/mbiz-backend/pkg/config"
)

type stubStore struct {
	setCalls    int
	setNXCalls  int
	delKeys     []string
	values      map[string]string
	exists      map[string]bool
	counters    map[string]int64
	expireCalls map[string]time.Duration
}

func newStubStore() *stubStore {
	return &stubStore{
		values:      map[string]string{},
		exists:      map[string]bool{},
		counters:    map[string]int64{},
		expireCalls: map[string]time.Duration{},
	}
}

func (s *stubStore) Ping(ctx context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (s *stubStore) Set(ctx context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	s.setCalls++
	s.values[key] = value.(string)
	s.exists[key] = true
	cmd := goredis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubStore) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx)
	val, ok := s.values[key]
	if !ok {
		cmd.SetErr(goredis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubStore) SetNX(ctx context.Context, key string, value any, _ time.Duration) *goredis.BoolCmd {
	s.setNXCalls++
	cmd := goredis.NewBoolCmd(ctx)
	if s.exists[key] {
		cmd.SetVal(false)
		return cmd
	}
	s.values[key] = value.(string)
	s.exists[key] = true
	cmd.SetVal(true)
	return cmd
}

func (s *stubStore) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	s.delKeys = append(s.delKeys, keys...)
	for _, key := range keys {
		delete(s.values, key)
		delete(s.exists, key)
	}
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (s *stubStore) Incr(ctx context.Context, key string) *goredis.IntCmd {
	s.counters[key]++
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(s.counters[key])
	return cmd
}

func (s *stubStore) Expire(ctx context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	s.expireCalls[key] = ttl
	cmd := goredis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func TestSetGetDel(t *testing.T) {
	store := newStubStore()
	client := &Client{store: store}
	ctx := context.Background()

	if err := client.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, err := client.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "v" {
		t.Fatalf("Get = %q, want %q", got, "v")
	}

	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("Del returned error: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatal("expected error reading deleted key")
	}
}

func TestSetNXOnlySetsOnce(t *testing.T) {
	store := newStubStore()
	client := &Client{store: store}
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "lock", "holder-a", time.Minute)
	if err != nil {
		t.Fatalf("SetNX returned error: %v", err)
	}
	if !ok {
		t.Fatal("first SetNX should acquire")
	}

	ok, err = client.SetNX(ctx, "lock", "holder-b", time.Minute)
	if err != nil {
		t.Fatalf("SetNX returned error: %v", err)
	}
	if ok {
		t.Fatal("second SetNX should not acquire")
	}
	if store.values["lock"] != "holder-a" {
		t.Fatalf("lock value = %q, want original holder", store.values["lock"])
	}
}

func TestIncrWithTTLSetsExpiryOnFirstHit(t *testing.T) {
	store := newStubStore()
	client := &Client{store: store}
	ctx := context.Background()

	count, err := client.IncrWithTTL(ctx, "rl:ip:login:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("IncrWithTTL returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if store.expireCalls["rl:ip:login:1.2.3.4"] != time.Minute {
		t.Fatal("expiry not set on first increment")
	}

	count, err = client.IncrWithTTL(ctx, "rl:ip:login:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("IncrWithTTL returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if len(store.expireCalls) != 1 {
		t.Fatal("expiry reset on later increments")
	}
}

func TestKeyNamespacing(t *testing.T) {
	client := &Client{}
	got := client.Key("cron", "lock", "expiry")
	want := "mbiz:cron:lock:expiry"
	if got != want {
		t.Fatalf("Key = %q, want %q", got, want)
	}

	got = client.Key(" ", "cache")
	if got != "mbiz:cache" {
		t.Fatalf("Key = %q, want %q", got, "mbiz:cache")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if err := client.Ping(ctx); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.RedisConfig{
		URL:          "redis://localhost:6379/0",
		DB:           2,
		PoolSize:     20,
		MinIdleConns: 4,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig returned error: %v", err)
	}
	if opts.DB != 2 {
		t.Fatalf("DB = %d, want 2", opts.DB)
	}
	if opts.PoolSize != 20 {
		t.Fatalf("PoolSize = %d, want 20", opts.PoolSize)
	}

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error for missing url")
	}
}
