package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler records the CPU time of named frame phases and a few counters.
// Phases print in the order they were first seen.
type Profiler struct {
	scopes map[string]time.Duration
	starts map[string]time.Time
	counts map[string]int
	order  []string
	now    func() time.Time
}

func NewProfiler() *Profiler {
	return newProfilerWithClock(time.Now)
}

func newProfilerWithClock(now func() time.Time) *Profiler {
	return &Profiler{
		scopes: make(map[string]time.Duration),
		starts: make(map[string]time.Time),
		counts: make(map[string]int),
		now:    now,
	}
}

func (p *Profiler) BeginScope(name string) {
	if _, seen := p.scopes[name]; !seen {
		p.order = append(p.order, name)
		p.scopes[name] = 0
	}
	p.starts[name] = p.now()
}

// EndScope adds the time since the matching BeginScope. Unmatched calls are ignored.
func (p *Profiler) EndScope(name string) {
	start, ok := p.starts[name]
	if !ok {
		return
	}
	p.scopes[name] += p.now().Sub(start)
	delete(p.starts, name)
}

func (p *Profiler) SetCount(name string, n int) {
	p.counts[name] = n
}

func (p *Profiler) Scope(name string) time.Duration { return p.scopes[name] }

func (p *Profiler) Count(name string) int { return p.counts[name] }

// Reset zeroes the timers and keeps the phase order and counters.
func (p *Profiler) Reset() {
	for k := range p.scopes {
		p.scopes[k] = 0
	}
}

// String is a one-line summary, e.g. "batch 0.12ms upload 0.05ms | draws=4 visible=310".
func (p *Profiler) String() string {
	var sb strings.Builder
	for i, name := range p.order {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s %.2fms", name, float64(p.scopes[name].Microseconds())/1000.0)
	}

	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 && sb.Len() > 0 {
		sb.WriteString(" |")
	}
	for _, k := range keys {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%d", k, p.counts[k])
	}
	return sb.String()
}
