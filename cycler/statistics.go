package cycler

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

const statisticsWindow = 500

// CycleStatistics summarize the durations of the most recent ticks.
type CycleStatistics struct {
	Cycles  uint64        `json:"cycles"`
	Skipped uint64        `json:"skipped"`
	Mean    time.Duration `json:"mean"`
	Max     time.Duration `json:"max"`
	P95     time.Duration `json:"p95"`
}

type cycleRecorder struct {
	mu        sync.Mutex
	durations []float64 // seconds, ring buffer
	next      int
	cycles    uint64
	skipped   uint64
}

func (r *cycleRecorder) record(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles++
	if len(r.durations) < statisticsWindow {
		r.durations = append(r.durations, duration.Seconds())
		return
	}
	r.durations[r.next] = duration.Seconds()
	r.next = (r.next + 1) % statisticsWindow
}

func (r *cycleRecorder) skip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}

func (r *cycleRecorder) statistics() CycleStatistics {
	r.mu.Lock()
	data := stats.Float64Data(append([]float64(nil), r.durations...))
	result := CycleStatistics{Cycles: r.cycles, Skipped: r.skipped}
	r.mu.Unlock()

	if len(data) == 0 {
		return result
	}
	if mean, err := data.Mean(); err == nil {
		result.Mean = seconds(mean)
	}
	if maximum, err := data.Max(); err == nil {
		result.Max = seconds(maximum)
	}
	if p95, err := data.Percentile(95); err == nil {
		result.P95 = seconds(p95)
	}
	return result
}
