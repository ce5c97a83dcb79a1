package logger

import (
	"strconv"
	"strings"
	"sync"
)

// sampleGate passes the first n events of every cycle of m. It thins
// high-volume debug lines (per-message dedup lookups, send pacing) without
// losing them entirely. A gate with no ratio configured passes everything.
type sampleGate struct {
	mu    sync.Mutex
	pass  int
	cycle int
	seen  int
}

func newSampleGate(pass, cycle int) *sampleGate {
	g := &sampleGate{}
	g.Set(pass, cycle)
	return g
}

// Set replaces the ratio. Non-positive values disable sampling so every
// event passes.
func (g *sampleGate) Set(pass, cycle int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pass <= 0 || cycle <= 0 {
		g.pass, g.cycle, g.seen = 0, 0, 0
		return
	}
	if pass > cycle {
		pass = cycle
	}
	g.pass = pass
	g.cycle = cycle
	g.seen = 0
}

// Allow reports whether the current event falls inside the pass window.
func (g *sampleGate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cycle <= 0 {
		return true
	}
	g.seen++
	if g.seen > g.cycle {
		g.seen = 1
	}
	return g.seen <= g.pass
}

// parseSampleSpec reads "n/m" or a bare "m" (meaning 1/m). Anything else,
// including non-positive values, yields (0, 0).
func parseSampleSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if numPart, cyclePart, found := strings.Cut(spec, "/"); found {
		pass, err1 := strconv.Atoi(strings.TrimSpace(numPart))
		cycle, err2 := strconv.Atoi(strings.TrimSpace(cyclePart))
		if err1 == nil && err2 == nil {
			return pass, cycle
		}
		return 0, 0
	}
	cycle, err := strconv.Atoi(spec)
	if err != nil || cycle <= 0 {
		return 0, 0
	}
	return 1, cycle
}
