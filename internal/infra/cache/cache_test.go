package cache_test

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_LenAndClose(t *testing.T) {
	c := cache.New[int](time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	c.Close()
	c.Close()
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatal("expected cache to stay usable after Close")
	}
}

func TestRedis_FallsBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := cache.NewRedis[domain.ExchangeRateQuote](client, "rates", time.Minute, zap.NewNop())
	if c.Available() {
		t.Fatal("expected redis to be unavailable")
	}

	c.Set("blue", domain.ExchangeRateQuote{Source: "blue", Rate: 1200})
	got, ok := c.Get("blue")
	if !ok {
		t.Fatal("expected fallback hit")
	}
	if got.Rate != 1200 {
		t.Errorf("expected rate 1200, got %v", got.Rate)
	}

	c.Delete("blue")
	if _, ok := c.Get("blue"); ok {
		t.Fatal("expected key to be deleted")
	}
}
