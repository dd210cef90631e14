package stats

import (
	"encoding/json"
	"math"
	"time"
)

// noMinimum marks a record that has not observed any execution yet.
const noMinimum = math.MaxUint64

// Record aggregates every measurement recorded under one key.
type Record struct {
	TotalExecutions        uint64    `json:"totalExecutions"`
	TotalFailures          uint64    `json:"totalFailures"`
	TotalTimeMs            uint64    `json:"totalTimeMs"`
	MinTimeMs              uint64    `json:"minTimeMs"`
	MaxTimeMs              uint64    `json:"maxTimeMs"`
	LastExecutionMs        uint64    `json:"lastExecutionMs"`
	LastExecutedAt         time.Time `json:"lastExecutedAt"`
	ThresholdMs            uint64    `json:"thresholdMs"`
	ExceededThresholdCount uint64    `json:"exceededThresholdCount"`
	LastError              string    `json:"lastError,omitempty"`
}

func newRecord(thresholdMs uint64) Record {
	return Record{ThresholdMs: thresholdMs, MinTimeMs: noMinimum}
}

// AverageTimeMs is TotalTimeMs / TotalExecutions, or 0 before the first execution.
func (r Record) AverageTimeMs() uint64 {
	if r.TotalExecutions == 0 {
		return 0
	}
	return r.TotalTimeMs / r.TotalExecutions
}

// add folds one measurement into the record. Exceed counting uses the
// caller's threshold; ThresholdMs only keeps the first one seen.
func (r *Record) add(elapsedMs, thresholdMs uint64, failed bool, errMsg string, at time.Time) {
	r.TotalExecutions++
	r.TotalTimeMs += elapsedMs
	r.LastExecutionMs = elapsedMs
	r.LastExecutedAt = at

	if elapsedMs < r.MinTimeMs {
		r.MinTimeMs = elapsedMs
	}
	if elapsedMs > r.MaxTimeMs {
		r.MaxTimeMs = elapsedMs
	}
	if elapsedMs >= thresholdMs {
		r.ExceededThresholdCount++
	}

	if failed {
		r.TotalFailures++
		if errMsg != "" {
			r.LastError = errMsg
		}
	}
}

// snapshot copies the record, replacing the min sentinel.
func (r Record) snapshot() Record {
	if r.MinTimeMs == noMinimum {
		r.MinTimeMs = 0
	}
	return r
}

// Snapshot is a point-in-time copy of a key's Record.
type Snapshot struct {
	Key string `json:"key"`
	Record
}

// MarshalJSON adds the derived averageTimeMs field.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		AverageTimeMs uint64 `json:"averageTimeMs"`
	}{
		plain:         plain(s),
		AverageTimeMs: s.AverageTimeMs(),
	})
}
