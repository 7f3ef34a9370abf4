package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/cache"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ port.Cache[*domain.QuestionnaireTree] = (*cache.InMemory[*domain.QuestionnaireTree])(nil)
	_ port.Cache[*domain.QuestionnaireTree] = (*cache.Redis[*domain.QuestionnaireTree])(nil)
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

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

func TestCache_StoresTrees(t *testing.T) {
	c := cache.New[*domain.QuestionnaireTree](time.Minute)
	defer c.Close()

	tree := &domain.QuestionnaireTree{TypologyID: 3, Language: domain.LanguageEN}
	c.Set(cache.TreeKey(3, domain.LanguageEN, false), tree)

	got, ok := c.Get(cache.TreeKey(3, domain.LanguageEN, false))
	if !ok || got.TypologyID != 3 {
		t.Fatalf("expected cached tree, got %+v (ok=%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestRedis_UnreachableDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := cache.NewRedis[string](client, "test:", time.Minute, zap.NewNop())
	c.Set("k", "v")

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
	c.Delete("k")
}

func TestTreeKey_DistinguishesVariants(t *testing.T) {
	base := cache.TreeKey(1, domain.LanguageES, false)
	for _, other := range []string{
		cache.TreeKey(2, domain.LanguageES, false),
		cache.TreeKey(1, domain.LanguageEN, false),
		cache.TreeKey(1, domain.LanguageES, true),
	} {
		if other == base {
			t.Fatalf("expected %q to differ from %q", other, base)
		}
	}
	if got := cache.TreeKey(1, domain.LanguageES, false); got != base {
		t.Fatalf("expected a stable key, got %q and %q", got, base)
	}
}
