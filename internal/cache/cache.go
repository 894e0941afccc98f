// Package cache holds the in-process caches used by the ledger service.
package cache

import (
	"context"
	"time"

	"expensetracker/internal/log"
)

// Cache is the read-through cache contract the ledger service depends on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Len() int
}

// Cleaner is implemented by caches whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries out of registered caches.
type Janitor struct {
	interval time.Duration
	caches   []Cleaner
}

func NewJanitor(interval time.Duration, caches ...Cleaner) *Janitor {
	return &Janitor{interval: interval, caches: caches}
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	if j.interval <= 0 || len(j.caches) == 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				log.FromContext(ctx).DebugContext(ctx, "Swept expired cache entries", "removed", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep runs one pass over every cache and returns how many entries went.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}
