package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats describes a live generator process.
type Stats struct {
	PID        int
	Uptime     time.Duration
	CPUPercent float64
	RSSBytes   uint64
}

// String renders s for status footers, e.g. "pid 4242 · up 3m12s · cpu 1.2% · rss 9.8 MiB".
func (s Stats) String() string {
	return fmt.Sprintf("pid %d · up %s · cpu %.1f%% · rss %.1f MiB",
		s.PID, s.Uptime.Truncate(time.Second), s.CPUPercent, float64(s.RSSBytes)/(1<<20))
}

// Prober reads resource usage of a process.
type Prober interface {
	Probe(ctx context.Context, pid int) (cpuPercent float64, rssBytes uint64, err error)
}

type gopsutilProber struct{}

func (gopsutilProber) Probe(ctx context.Context, pid int) (float64, uint64, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return cpu, mem.RSS, nil
}

// Stats reports resource usage of the live generator for key. The boolean is
// false when key has no generator or the process can no longer be inspected.
func (s *Supervisor) Stats(ctx context.Context, key string) (Stats, bool) {
	h := s.Current(key)
	if h == nil {
		return Stats{}, false
	}
	select {
	case <-h.Exited():
		return Stats{}, false
	default:
	}
	cpu, rss, err := s.prober.Probe(ctx, h.PID())
	if err != nil {
		return Stats{}, false
	}
	return Stats{
		PID:        h.PID(),
		Uptime:     time.Since(h.Started()),
		CPUPercent: cpu,
		RSSBytes:   rss,
	}, true
}
