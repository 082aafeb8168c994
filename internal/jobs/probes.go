package jobs

import (
	"context"
	"math"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
)

// Probe names reported in the health check
const (
	ProbeMemory      = "memory"
	ProbeEnvironment = "environment"
	ProbeDatabase    = "database"
)

// PlaceholderValue marks an environment variable that was never filled in
const PlaceholderValue = "placeholder"

// DefaultMemoryFloor is the minimum headroom below the memory limit, in bytes
const DefaultMemoryFloor = 50 << 20

// Probe is a named health check
type Probe struct {
	Name  string
	Check func(ctx context.Context) bool
}

// Pinger is anything that can verify a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStats is the slice of runtime memory statistics the memory probe reads
type MemoryStats struct {
	Limit     uint64 // soft memory limit (GOMEMLIMIT)
	HeapInuse uint64
}

// MemoryStatsFunc returns current memory stats. ok is false when stats are unavailable.
type MemoryStatsFunc func() (stats MemoryStats, ok bool)

// RuntimeMemoryStats reads stats from the Go runtime. Without a memory
// limit there is nothing to measure headroom against, so ok is false.
func RuntimeMemoryStats() (MemoryStats, bool) {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return MemoryStats{}, false
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{Limit: uint64(limit), HeapInuse: m.HeapInuse}, true
}

// MemoryProbe passes when headroom (Limit - HeapInuse) exceeds floor.
// When stats are unavailable the probe passes.
func MemoryProbe(floor uint64, stats MemoryStatsFunc) Probe {
	if stats == nil {
		stats = RuntimeMemoryStats
	}
	return Probe{
		Name: ProbeMemory,
		Check: func(ctx context.Context) bool {
			s, ok := stats()
			if !ok {
				return true
			}
			if s.HeapInuse >= s.Limit {
				return false
			}
			return s.Limit-s.HeapInuse > floor
		},
	}
}

// EnvironmentProbe passes when every name is set, non-empty and not the
// placeholder sentinel. A nil lookup reads the process environment.
func EnvironmentProbe(names []string, lookup func(string) (string, bool)) Probe {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	required := make([]string, len(names))
	copy(required, names)

	return Probe{
		Name: ProbeEnvironment,
		Check: func(ctx context.Context) bool {
			for _, name := range required {
				v, ok := lookup(name)
				v = strings.TrimSpace(v)
				if !ok || v == "" || v == PlaceholderValue {
					return false
				}
			}
			return true
		},
	}
}

// ConnectivityProbe passes when the pinger answers without error
func ConnectivityProbe(p Pinger) Probe {
	return Probe{
		Name: ProbeDatabase,
		Check: func(ctx context.Context) bool {
			if p == nil {
				return false
			}
			return p.Ping(ctx) == nil
		},
	}
}

// DefaultProbes returns the memory, environment and database probes
func DefaultProbes(memoryFloor uint64, requiredEnv []string, db Pinger) []Probe {
	return []Probe{
		MemoryProbe(memoryFloor, nil),
		EnvironmentProbe(requiredEnv, nil),
		ConnectivityProbe(db),
	}
}
