package stats

import (
	"cmp"
	"slices"
	sc "sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const defaultShardCount = 32

// Config controls a Registry. Enabled is fixed for the Registry's lifetime.
type Config struct {
	Enabled bool
	// Shards is the number of independently locked key partitions.
	Shards int
	// Clock stamps LastExecutedAt; defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns an enabled configuration with the default shard count.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Shards:  defaultShardCount,
		Clock:   time.Now,
	}
}

// Registry is a concurrent key -> Record store. Keys are spread over shards
// by hash so that writers on different keys rarely meet on the same lock;
// each record carries its own mutex so that updates to one key are applied
// as a unit.
type Registry struct {
	shards  []shard
	enabled bool
	clock   func() time.Time
}

type shard struct {
	mx      sc.RWMutex
	entries map[string]*entry
}

type entry struct {
	mx     sc.Mutex
	record Record
}

// New creates a Registry from cfg.
func New(cfg Config) *Registry {
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShardCount
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	r := &Registry{
		shards:  make([]shard, cfg.Shards),
		enabled: cfg.Enabled,
		clock:   cfg.Clock,
	}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*entry)
	}
	return r
}

// Enabled reports whether the Registry collects statistics.
func (r *Registry) Enabled() bool {
	return r.enabled
}

func (r *Registry) shardFor(key string) *shard {
	return &r.shards[xxhash.Sum64String(key)%uint64(len(r.shards))]
}

// RecordExecution folds one measurement into the record for key, creating it
// on first use. The first call for a key fixes the displayed ThresholdMs,
// while exceed counting always uses thresholdMs of the call. A failed
// measurement with an empty errMsg keeps the previous LastError.
func (r *Registry) RecordExecution(key string, elapsedMs, thresholdMs uint64, failed bool, errMsg string) error {
	if !r.enabled {
		return nil
	}
	if key == "" {
		return ErrEmptyKey
	}

	now := r.clock()
	sh := r.shardFor(key)

	sh.mx.RLock()
	e, ok := sh.entries[key]
	sh.mx.RUnlock()

	if !ok {
		sh.mx.Lock()
		e, ok = sh.entries[key]
		if !ok {
			// Publish the entry only once its first measurement is applied.
			e = &entry{record: newRecord(thresholdMs)}
			e.record.add(elapsedMs, thresholdMs, failed, errMsg, now)
			sh.entries[key] = e
			sh.mx.Unlock()
			return nil
		}
		sh.mx.Unlock()
	}

	e.mx.Lock()
	e.record.add(elapsedMs, thresholdMs, failed, errMsg, now)
	e.mx.Unlock()
	return nil
}

// Get returns a copy of the record for key. It reports false for unknown keys
// and whenever the Registry is disabled.
func (r *Registry) Get(key string) (Snapshot, bool) {
	if !r.enabled {
		return Snapshot{}, false
	}

	sh := r.shardFor(key)
	sh.mx.RLock()
	e, ok := sh.entries[key]
	sh.mx.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	return Snapshot{Key: key, Record: e.copy()}, true
}

// All returns a copy of every record, ordered by key.
func (r *Registry) All() []Snapshot {
	if !r.enabled {
		return []Snapshot{}
	}

	type keyed struct {
		key string
		e   *entry
	}
	var collected []keyed
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mx.RLock()
		for k, e := range sh.entries {
			collected = append(collected, keyed{key: k, e: e})
		}
		sh.mx.RUnlock()
	}

	out := make([]Snapshot, 0, len(collected))
	for _, kv := range collected {
		out = append(out, Snapshot{Key: kv.key, Record: kv.e.copy()})
	}
	slices.SortFunc(out, func(a, b Snapshot) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

// Len returns the number of keys currently held.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mx.RLock()
		n += len(sh.entries)
		sh.mx.RUnlock()
	}
	return n
}

// Clear drops every record. Writers racing with Clear either land in a
// detached record (and are lost) or create a fresh one.
func (r *Registry) Clear() {
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mx.Lock()
		sh.entries = make(map[string]*entry)
		sh.mx.Unlock()
	}
}

func (e *entry) copy() Record {
	e.mx.Lock()
	defer e.mx.Unlock()
	return e.record.snapshot()
}
