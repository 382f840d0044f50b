package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/skillbridge/backend/internal/repo/redis"
)

func TestLimiterBlocksOnHourlyWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 3)

	ctx := context.Background()
	reporterID := int64(42)

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowFlag(ctx, reporterID)
		if err != nil {
			t.Fatalf("allow flag #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowFlag(ctx, reporterID)
	if err != nil {
		t.Fatalf("allow flag #4: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on fourth flag in hourly window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	currentRetry, err := limiter.RetryAfterFlag(ctx, reporterID)
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(time.Hour + time.Second)

	retryAfter, allowed, err = limiter.AllowFlag(ctx, reporterID)
	if err != nil {
		t.Fatalf("allow flag after window reset: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterDisabledWhenZero(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 0)

	ctx := context.Background()

	for i := 0; i < 50; i++ {
		retryAfter, allowed, err := limiter.AllowFlag(ctx, 7)
		if err != nil {
			t.Fatalf("allow flag #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("expected unlimited flags with zero cap, got allowed=%v retry_after=%d", allowed, retryAfter)
		}
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
