package service

import (
	"context"
	"fmt"
	"time"

	"ai-plantcare-be/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IUsageService enforces the per-user daily AI call quota.
type IUsageService interface {
	CheckDailyLimit(ctx context.Context, userId uuid.UUID) error
	Increment(ctx context.Context, userId uuid.UUID) error
}

// usageService counts AI calls in Redis, one key per user per UTC day.
// Keys expire on their own, there is no reset job.
type usageService struct {
	rdb   *redis.Client
	limit int
}

func NewUsageService(rdb *redis.Client, dailyLimit int) IUsageService {
	return &usageService{
		rdb:   rdb,
		limit: dailyLimit,
	}
}

func (us *usageService) key(userId uuid.UUID, now time.Time) string {
	return fmt.Sprintf("ai_usage:%s:%s", userId, now.UTC().Format("2006-01-02"))
}

// CheckDailyLimit returns a LimitExceededError once the quota is spent.
// A zero limit or missing Redis disables the quota entirely.
func (us *usageService) CheckDailyLimit(ctx context.Context, userId uuid.UUID) error {
	if us.limit <= 0 || us.rdb == nil {
		return nil
	}

	now := time.Now()
	used, err := us.rdb.Get(ctx, us.key(userId, now)).Int()
	if err != nil && err != redis.Nil {
		// Quota storage being down must not block the product.
		return nil
	}

	if used >= us.limit {
		midnight := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		return &dto.LimitExceededError{
			Limit:      us.limit,
			Used:       used,
			ResetAfter: midnight,
		}
	}
	return nil
}

func (us *usageService) Increment(ctx context.Context, userId uuid.UUID) error {
	if us.limit <= 0 || us.rdb == nil {
		return nil
	}

	now := time.Now()
	key := us.key(userId, now)
	pipe := us.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}
