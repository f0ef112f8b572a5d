package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/sedori-linebot-go/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "analysis")
	Name string

	// Token bucket settings
	Burst      float64 // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod is how often idle keys are dropped. Zero disables cleanup.
	CleanupPeriod time.Duration

	// Optional metrics reporter
	Metrics *metrics.Metrics

	// now overrides the clock in tests.
	now func() time.Time
}

// KeyedLimiter tracks a separate token bucket per key (e.g., user ID).
// Keys whose bucket has refilled completely are dropped on cleanup.
type KeyedLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	config   KeyedConfig
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKeyedLimiter creates a new per-key rate limiter.
//
// Example:
//
//	limiter := NewKeyedLimiter(KeyedConfig{
//	    Name:          "analysis",
//	    Burst:         10,
//	    RefillRate:    10.0 / 3600, // 10 per hour
//	    CleanupPeriod: 10 * time.Minute,
//	})
//	defer limiter.Stop()
//
//	if limiter.Allow(userID) {
//	    // analyze
//	}
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.now == nil {
		cfg.now = time.Now
	}
	kl := &KeyedLimiter{
		limiters: make(map[string]*Limiter),
		config:   cfg,
		stopCh:   make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

// Allow checks if a request for the given key is allowed.
// An empty key is always allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	if kl.getOrCreate(key).Allow() {
		return true
	}
	kl.config.Metrics.RecordRateLimiterDrop(kl.config.Name)
	return false
}

func (kl *KeyedLimiter) getOrCreate(key string) *Limiter {
	kl.mu.RLock()
	l, ok := kl.limiters[key]
	kl.mu.RUnlock()
	if ok {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok = kl.limiters[key]; ok {
		return l
	}
	l = newWithClock(kl.config.Burst, kl.config.RefillRate, kl.config.now)
	kl.limiters[key] = l
	return l
}

// Available returns the tokens left for a key; Burst for unseen keys.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	l, ok := kl.limiters[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.config.Burst
	}
	return l.Available()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.limiters)
}

// Cleanup drops keys whose bucket is full and returns how many were removed.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	removed := 0
	for key, l := range kl.limiters {
		if l.IsFull() {
			delete(kl.limiters, key)
			removed++
		}
	}
	return removed
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
