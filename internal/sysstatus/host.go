package sysstatus

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSnapshot is a point-in-time resource reading for the machine running
// mvd, surfaced by "mvd status" and logged periodically so an operator can
// tell a hung reconciler from a starved host.
type HostSnapshot struct {
	UptimeSeconds uint64  `json:"uptimeSeconds"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemUsedPct    float64 `json:"memUsedPercent"`
}

// Snapshot reads current host resource usage. Errors from any individual
// probe are swallowed (the field is left at its zero value) since this is
// diagnostic-only and must never block startup or command handling.
func Snapshot() HostSnapshot {
	var s HostSnapshot

	if info, err := host.Info(); err == nil {
		s.UptimeSeconds = info.Uptime
	}

	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemUsedPct = vm.UsedPercent
	}

	return s
}
