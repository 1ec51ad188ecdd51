package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"vetclinic-scheduler/internal/domain/entity"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// RedisOccupiedKeyPrefix holds one set per clinic day with the occupied HH:MM times
	RedisOccupiedKeyPrefix = "slots:occupied:"

	// RedisGenerationKeyPrefix holds a per-day counter bumped on every invalidation
	RedisGenerationKeyPrefix = "slots:generation:"

	// occupiedMarker is always a member so an empty day is still a cache hit
	occupiedMarker = "*"

	// Upper bound on how stale another instance's view can get
	slotCacheMaxTTL = 10 * time.Minute

	// Must outlive any read-then-store window
	generationTTL = time.Hour

	// Days ahead warmed by SyncOnStartup, today included
	warmupDays = 7
)

// =============================================================================
// Types
// =============================================================================

// SlotCache stores occupied times per day. Reads may be stale; the database
// stays authoritative for conflicts.
//
// Callers take Generation before reading the database and hand it back to
// StoreOccupiedTimes, which drops the write if an Invalidate happened in between.
type SlotCache interface {
	OccupiedTimes(ctx context.Context, date time.Time) ([]string, bool, error)
	Generation(ctx context.Context, date time.Time) (int64, error)
	StoreOccupiedTimes(ctx context.Context, date time.Time, times []string, generation int64) error
	Invalidate(ctx context.Context, dates ...time.Time) error
}

// OccupiedTimesSource loads the authoritative occupied times of a day
type OccupiedTimesSource interface {
	FindActiveTimesByDate(ctx context.Context, date time.Time) ([]string, error)
}

type occupiedDay struct {
	date       time.Time
	times      []string
	generation int64
}

// SlotCacheService implements SlotCache on Redis sets.
type SlotCacheService struct {
	redisClient *redis.Client
	log         *logrus.Logger
	loc         *time.Location
	now         func() time.Time
}

// =============================================================================
// Constructor
// =============================================================================

func NewSlotCacheService(redisClient *redis.Client, log *logrus.Logger, loc *time.Location) *SlotCacheService {
	return &SlotCacheService{
		redisClient: redisClient,
		log:         log,
		loc:         loc,
		now:         time.Now,
	}
}

// =============================================================================
// Public Methods
// =============================================================================

// OccupiedTimes returns the cached times of date. ok is false on a cache miss.
func (s *SlotCacheService) OccupiedTimes(ctx context.Context, date time.Time) ([]string, bool, error) {
	members, err := s.redisClient.SMembers(ctx, OccupiedKey(date)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read occupied slots for %s: %w", date.Format(entity.DateLayout), err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}

	times := make([]string, 0, len(members)-1)
	for _, m := range members {
		if m != occupiedMarker {
			times = append(times, m)
		}
	}
	return times, true, nil
}

// Generation returns the invalidation counter of date, 0 when never invalidated
func (s *SlotCacheService) Generation(ctx context.Context, date time.Time) (int64, error) {
	gen, err := s.redisClient.Get(ctx, GenerationKey(date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read slot generation for %s: %w", date.Format(entity.DateLayout), err)
	}
	return gen, nil
}

// StoreOccupiedTimes replaces the cached set of date unless the day was
// invalidated after generation was read.
func (s *SlotCacheService) StoreOccupiedTimes(ctx context.Context, date time.Time, times []string, generation int64) error {
	if _, err := s.storeIfCurrent(ctx, []occupiedDay{{date: date, times: times, generation: generation}}); err != nil {
		s.log.Warnf("Failed to cache occupied slots for %s: %+v", date.Format(entity.DateLayout), err)
		return fmt.Errorf("cache occupied slots for %s: %w", date.Format(entity.DateLayout), err)
	}
	return nil
}

// Invalidate drops the cached sets of the given days and bumps their generation.
// Called after every write that can occupy or free a slot.
func (s *SlotCacheService) Invalidate(ctx context.Context, dates ...time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(dates))
	pipe := s.redisClient.TxPipeline()
	for _, d := range dates {
		key := OccupiedKey(d)
		keys = append(keys, key)
		pipe.Del(ctx, key)
		pipe.Incr(ctx, GenerationKey(d))
		pipe.Expire(ctx, GenerationKey(d), generationTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warnf("Failed to invalidate occupied slots %v: %+v", keys, err)
		return fmt.Errorf("invalidate occupied slots: %w", err)
	}

	s.log.Debugf("Invalidated occupied slots %v", keys)
	return nil
}

// SyncOnStartup fills the cache for the coming days from the database.
// Should be called before accepting traffic. A Redis outage only logs and returns.
func (s *SlotCacheService) SyncOnStartup(ctx context.Context, source OccupiedTimesSource) error {
	s.log.Info("Starting occupied slot warmup from database...")
	startTime := time.Now()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping warmup: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	today := entity.NormalizeDate(s.now().In(s.loc))
	days := make([]occupiedDay, warmupDays)
	genKeys := make([]string, warmupDays)
	for i := range days {
		days[i].date = today.AddDate(0, 0, i)
		genKeys[i] = GenerationKey(days[i].date)
	}

	gens, err := s.redisClient.MGet(ctx, genKeys...).Result()
	if err != nil {
		return fmt.Errorf("read slot generations: %w", err)
	}
	for i := range days {
		days[i].generation = parseGeneration(gens[i])
		times, err := source.FindActiveTimesByDate(ctx, days[i].date)
		if err != nil {
			s.log.Errorf("Failed to query occupied slots for %s: %+v", days[i].date.Format(entity.DateLayout), err)
			return fmt.Errorf("query occupied slots for %s: %w", days[i].date.Format(entity.DateLayout), err)
		}
		days[i].times = times
	}

	synced, err := s.storeIfCurrent(ctx, days)
	if err != nil {
		s.log.Errorf("Failed to store occupied slots: %+v", err)
		return fmt.Errorf("store occupied slots: %w", err)
	}

	s.log.Infof("Occupied slot warmup completed: %d of %d days synced in %v", synced, warmupDays, time.Since(startTime))
	return nil
}

// =============================================================================
// Private Helper Methods
// =============================================================================

// storeIfCurrent writes the days whose generation is unchanged, watching the
// generation keys so a concurrent Invalidate aborts the whole write.
func (s *SlotCacheService) storeIfCurrent(ctx context.Context, days []occupiedDay) (int, error) {
	genKeys := make([]string, len(days))
	for i, d := range days {
		genKeys[i] = GenerationKey(d.date)
	}

	stored := 0
	txf := func(tx *redis.Tx) error {
		current, err := tx.MGet(ctx, genKeys...).Result()
		if err != nil {
			return err
		}
		stored = 0
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, d := range days {
				if parseGeneration(current[i]) != d.generation {
					continue
				}
				s.queueStore(ctx, pipe, d.date, d.times)
				stored++
			}
			return nil
		})
		return err
	}

	err := s.redisClient.Watch(ctx, txf, genKeys...)
	if errors.Is(err, redis.TxFailedErr) {
		// a write landed meanwhile; the next read refills from the database
		s.log.Debugf("Skipped caching occupied slots for %v: invalidated concurrently", genKeys)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return stored, nil
}

func (s *SlotCacheService) queueStore(ctx context.Context, pipe redis.Pipeliner, date time.Time, times []string) {
	key := OccupiedKey(date)
	members := make([]interface{}, 0, len(times)+1)
	members = append(members, occupiedMarker)
	for _, t := range times {
		members = append(members, t)
	}

	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, s.calculateTTL(date))
}

// calculateTTL keeps a day until the end of that day, capped by slotCacheMaxTTL
func (s *SlotCacheService) calculateTTL(date time.Time) time.Duration {
	y, m, d := date.Date()
	expireAt := time.Date(y, m, d, 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
	ttl := expireAt.Sub(s.now())

	if ttl <= 0 {
		// Past date - short TTL for cleanup
		return 1 * time.Minute
	}
	if ttl > slotCacheMaxTTL {
		return slotCacheMaxTTL
	}
	return ttl
}

func OccupiedKey(date time.Time) string {
	return RedisOccupiedKeyPrefix + date.Format(entity.DateLayout)
}

func GenerationKey(date time.Time) string {
	return RedisGenerationKeyPrefix + date.Format(entity.DateLayout)
}

// parseGeneration reads an MGET reply; a missing key counts as 0
func parseGeneration(v interface{}) int64 {
	str, ok := v.(string)
	if !ok {
		return 0
	}
	gen, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0
	}
	return gen
}
