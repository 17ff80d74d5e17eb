package notify

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReminderLedger remembers which (slot, start) pairs were already reminded
// about. Claim returns true only for the first caller within ttl.
type ReminderLedger interface {
	Claim(ctx context.Context, slotID string, start time.Time, ttl time.Duration) (bool, error)
}

func ledgerKey(slotID string, start time.Time) string {
	return "remind:" + slotID + ":" + strconv.FormatInt(start.Unix(), 10)
}

// RedisLedger keeps claims in Redis so several processes share them.
type RedisLedger struct {
	Client redis.UniversalClient
}

// Claim sets the key only if it does not exist yet.
func (l *RedisLedger) Claim(ctx context.Context, slotID string, start time.Time, ttl time.Duration) (bool, error) {
	return l.Client.SetNX(ctx, ledgerKey(slotID, start), 1, ttl).Result()
}

// MemoryLedger is the single-process ledger used when Redis is not configured.
type MemoryLedger struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{claims: make(map[string]time.Time), now: time.Now}
}

// Claim records the pair until ttl elapses. Expired entries are pruned on
// every call.
func (l *MemoryLedger) Claim(_ context.Context, slotID string, start time.Time, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.claims {
		if !now.Before(exp) {
			delete(l.claims, k)
		}
	}
	key := ledgerKey(slotID, start)
	if _, ok := l.claims[key]; ok {
		return false, nil
	}
	l.claims[key] = now.Add(ttl)
	return true, nil
}
