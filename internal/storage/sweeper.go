package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/rafey804/flipfilex-sub000/internal/infra"
)

// DefaultTTL is how long any storage entry survives before the sweep reaps
// it, regardless of role.
const DefaultTTL = time.Hour

const sweepLockName = ".sweep.lock"

// Sweeper periodically deletes expired entries from a FileStore. Multiple
// processes sharing an upload dir coordinate through a file lock so only one
// sweep runs at a time.
type Sweeper struct {
	store  *FileStore
	ttl    time.Duration
	lock   *flock.Flock
	logger infra.Logger
}

// NewSweeper builds a sweeper over store with the given entry TTL.
func NewSweeper(store *FileStore, ttl time.Duration, logger infra.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sweeper{
		store:  store,
		ttl:    ttl,
		lock:   flock.New(filepath.Join(store.BasePath(), sweepLockName)),
		logger: logger,
	}
}

// TTL returns the configured entry lifetime.
func (sw *Sweeper) TTL() time.Duration { return sw.ttl }

// Sweep deletes every entry older than the TTL and returns how many were
// removed. It holds no global lock while deleting and tolerates entries that
// vanish underneath it. Running it twice in a row is a no-op the second time.
func (sw *Sweeper) Sweep(now time.Time) int {
	locked, err := sw.lock.TryLock()
	if err != nil || !locked {
		// Another process is sweeping; nothing to do here.
		return 0
	}
	defer sw.lock.Unlock()

	entries, err := os.ReadDir(sw.store.BasePath())
	if err != nil {
		sw.logger.Error().Err(err).Msg("sweep: read storage dir")
		return 0
	}

	cutoff := now.Add(-sw.ttl)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		full := filepath.Join(sw.store.BasePath(), name)
		if err := os.RemoveAll(full); err != nil && !os.IsNotExist(err) {
			sw.logger.Warn().Err(err).Str("entry", name).Msg("sweep: remove failed")
			continue
		}
		removed++
	}
	if removed > 0 {
		sw.logger.Info().Int("removed", removed).Msg("sweep: expired entries reaped")
	}
	return removed
}
