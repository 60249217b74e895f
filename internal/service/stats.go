package service

import (
	"math"
	"sync"
	"time"
)

// PassStats summarises layout pass durations
type PassStats struct {
	Passes       int     `json:"passes"`
	Discarded    int     `json:"discarded"`
	MeanMillis   float64 `json:"meanMillis"`
	StdDevMillis float64 `json:"stdDevMillis"`
	LastMillis   float64 `json:"lastMillis"`
}

// passTimer keeps running duration statistics with Welford's online algorithm,
// so no history of passes is stored
type passTimer struct {
	mu        sync.Mutex
	count     int
	mean      float64
	m2        float64
	last      float64
	discarded int
}

func (p *passTimer) observe(d time.Duration, published bool) {
	ms := float64(d) / float64(time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	delta := ms - p.mean
	p.mean += delta / float64(p.count)
	p.m2 += delta * (ms - p.mean)
	p.last = ms
	if !published {
		p.discarded++
	}
}

func (p *passTimer) stats() PassStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := PassStats{
		Passes:     p.count,
		Discarded:  p.discarded,
		MeanMillis: p.mean,
		LastMillis: p.last,
	}
	// Population standard deviation, 0 until there are two passes
	if p.count >= 2 {
		stats.StdDevMillis = math.Sqrt(p.m2 / float64(p.count))
	}
	return stats
}
