package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey seeds generated workloads. The same key and generator
// settings always produce the same flows.
type SimulationKey int64

func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Named random streams used by workload generation.
const (
	SubsystemWorkload   = "workload" // record order
	SubsystemArrivals   = "arrivals"
	SubsystemDurations  = "durations"
	SubsystemPriorities = "priorities"
)

// PartitionedRNG hands out one seeded stream per name. A stream's seed is
// the key XOR the FNV-1a hash of its name, so draws on one stream never shift
// another. Not safe for concurrent use.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	r := rand.New(rand.NewSource(int64(p.key) ^ int64(h.Sum64())))
	p.streams[name] = r
	return r
}
