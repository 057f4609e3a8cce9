// Package clock implements the core's time-conversion layer:
// wall-clock nanosecond timestamps, a TSC (time-stamp counter) reading
// seam, and truth-pair-anchored conversion between the two. Platform
// clock calibration itself — how the OS and CPU agree on a frequency —
// is out of the core's scope (spec §1); only the conversion math and
// the per-core skew table are implemented here.
package clock

import (
	"sync/atomic"
	"time"
)

// startNs is the wall-clock instant Init was called, so NsNow reports
// elapsed nanoseconds since API initialization, matching ds_TimeNs.
var startNs int64

// Init records the current time as the epoch every NsNow call is
// measured from. Call once, before any NsNow/TscNow use.
func Init() {
	atomic.StoreInt64(&startNs, time.Now().UnixNano())
}

// NsNow returns nanoseconds elapsed since Init.
func NsNow() uint64 {
	return uint64(time.Now().UnixNano() - atomic.LoadInt64(&startNs))
}

// TscReader abstracts the platform's raw cycle counter read (rdtsc);
// Go has no portable intrinsic for it, so the default implementation
// derives a synthetic, monotonically increasing counter from NsNow
// and a fixed nominal frequency. A real build can supply a
// platform-specific TscReader backed by an actual rdtsc/rdtscp
// instruction sequence.
type TscReader interface {
	// Tsc returns the current counter value and the logical core it
	// was read on (mirrors __rdtscp's core_addr output parameter).
	Tsc() (tsc uint64, core int)
}

// defaultReader derives a synthetic TSC value from wall-clock time at
// NominalFrequency, so conversions are exercisable without real
// hardware counters.
type defaultReader struct{}

// NominalFrequency is the synthetic TSC frequency (Hz) the default
// TscReader assumes.
const NominalFrequency = 3_000_000_000

func (defaultReader) Tsc() (uint64, int) {
	return uint64(NsNow()) * NominalFrequency / 1_000_000_000, 0
}

var activeReader TscReader = defaultReader{}

// SetTscReader installs a platform-specific TscReader. Defaults to a
// synthetic ns-derived reader.
func SetTscReader(r TscReader) { activeReader = r }

// TscNow reads the current TSC value and logical core via the active
// TscReader.
func TscNow() (tsc uint64, core int) { return activeReader.Tsc() }

// SkewTable holds, per logical core, the estimated TSC skew from core
// 0: NormalizeToCore0(tsc, core) == tsc + SkewTable[core].
type SkewTable struct {
	skew []int64
}

// NewSkewTable creates a skew table for coreCount logical cores, all
// initially zero (no skew).
func NewSkewTable(coreCount int) *SkewTable {
	return &SkewTable{skew: make([]int64, coreCount)}
}

// Set records core's estimated skew from core 0.
func (s *SkewTable) Set(core int, skew int64) {
	if core >= 0 && core < len(s.skew) {
		s.skew[core] = skew
	}
}

// NormalizeToCore0 adjusts a TSC value read on core into core 0's
// timeline.
func (s *SkewTable) NormalizeToCore0(tsc uint64, core int) uint64 {
	if core < 0 || core >= len(s.skew) {
		return tsc
	}
	return uint64(int64(tsc) + s.skew[core])
}

// TruthPair is a known (ns, tsc) correspondence used to anchor
// tsc<->ns conversion, reducing accumulated drift versus a
// conversion anchored only at process start.
type TruthPair struct {
	Ns  uint64
	Tsc uint64
}

// NsFromTscTruthSource converts tsc to nanoseconds using the linear
// relationship ns_truth + (tsc - tsc_truth) * (1e9 / tscFreq),
// matching NsFromTscTruthSource. The intermediate is carried in
// float64 to avoid the overflow a naive (tsc * 1e9) u64 multiply
// would hit at multi-gigahertz counter values over long uptimes.
func NsFromTscTruthSource(tsc uint64, truth TruthPair, tscFreq uint64) uint64 {
	delta := float64(int64(tsc) - int64(truth.Tsc))
	ns := float64(truth.Ns) + delta*(1e9/float64(tscFreq))
	return uint64(ns)
}

// TscFromNsTruthSource is NsFromTscTruthSource's symmetric inverse.
func TscFromNsTruthSource(ns uint64, truth TruthPair, tscFreq uint64) uint64 {
	delta := float64(int64(ns) - int64(truth.Ns))
	tsc := float64(truth.Tsc) + delta*(float64(tscFreq)/1e9)
	return uint64(tsc)
}

// SFromTsc converts a tick count to elapsed seconds at the given
// frequency.
func SFromTsc(ticks, tscFreq uint64) float64 {
	return float64(ticks) / float64(tscFreq)
}
