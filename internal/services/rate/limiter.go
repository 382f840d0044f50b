package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const flagHourWindow = time.Hour

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter caps how many content flags a reporter may submit per hour.
type Limiter struct {
	store   WindowStore
	perHour int
}

func NewLimiter(store WindowStore, perHour int) *Limiter {
	if perHour < 0 {
		perHour = 0
	}

	return &Limiter{
		store:   store,
		perHour: perHour,
	}
}

func (l *Limiter) AllowFlag(ctx context.Context, reporterID int64) (int64, bool, error) {
	if reporterID <= 0 {
		return 0, false, fmt.Errorf("invalid reporter id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}
	if l.perHour == 0 {
		return 0, true, nil
	}

	count, ttl, err := l.store.IncrementWindow(ctx, flagHourKey(reporterID), flagHourWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perHour) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

func (l *Limiter) RetryAfterFlag(ctx context.Context, reporterID int64) (int64, error) {
	if reporterID <= 0 {
		return 0, fmt.Errorf("invalid reporter id")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}
	if l.perHour == 0 {
		return 0, nil
	}

	count, ttl, err := l.store.WindowState(ctx, flagHourKey(reporterID))
	if err != nil {
		return 0, err
	}
	if count >= int64(l.perHour) {
		return ceilSeconds(ttl), nil
	}

	return 0, nil
}

func flagHourKey(reporterID int64) string {
	return "rate:flags:hour:" + strconv.FormatInt(reporterID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
