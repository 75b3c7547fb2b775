package service

import (
	"context"
	"fmt"
	"time"

	"healthsync-api/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// QueueSequencer hands out queue numbers for one doctor on one day.
type QueueSequencer interface {
	// NextQueueNumber returns the next number for (doctorID, queueDate).
	// dbMax is the highest number already persisted and seeds the counter
	// when it does not exist yet.
	NextQueueNumber(ctx context.Context, doctorID uuid.UUID, queueDate time.Time, dbMax int) (int, error)
}

// nextQueueScript seeds the counter from the database max when absent and
// increments it in a single atomic step. go-redis switches to EVALSHA after
// the first call.
//
// KEYS[1] = counter key, ARGV[1] = seed, ARGV[2] = TTL in milliseconds
var nextQueueScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	end
	local queue = redis.call('INCR', KEYS[1])
	local current = tonumber(ARGV[1])
	if queue <= current then
		redis.call('SET', KEYS[1], current + 1, 'PX', ARGV[2])
		queue = current + 1
	end
	return queue
`)

const RedisQueueKeyPrefix = "appointment:queue:"

type redisQueueSequencer struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewRedisQueueSequencer(redisClient *redis.Client, log *logrus.Logger) QueueSequencer {
	return &redisQueueSequencer{
		redisClient: redisClient,
		log:         log,
	}
}

func (s *redisQueueSequencer) NextQueueNumber(ctx context.Context, doctorID uuid.UUID, queueDate time.Time, dbMax int) (int, error) {
	key := queueCounterKey(doctorID, queueDate)
	ttl := calculateTTL(queueDate, time.Now())

	result, err := nextQueueScript.Run(ctx, s.redisClient, []string{key}, dbMax, ttl.Milliseconds()).Int()
	if err != nil {
		s.log.Warnf("Failed Lua script NextQueueNumber for %s: %+v", key, err)
		return 0, fmt.Errorf("lua next queue number for %s: %w", key, err)
	}

	s.log.Debugf("Assigned queue number %d for %s", result, key)
	return result, nil
}

func queueCounterKey(doctorID uuid.UUID, queueDate time.Time) string {
	return fmt.Sprintf("%s%s:%s", RedisQueueKeyPrefix, doctorID, queueDate.Format(entity.DateLayout))
}

// calculateTTL returns TTL: 24 hours after the queue date
func calculateTTL(queueDate, now time.Time) time.Duration {
	expireAt := entity.CalendarDay(queueDate).AddDate(0, 0, 1)
	ttl := expireAt.Sub(now)

	if ttl <= 0 {
		// Past date - short TTL for cleanup
		return 1 * time.Minute
	}

	return ttl
}
