// Package health reports liveness for the census service: database
// reachability plus process and host resource stats, so an operator can
// spot a wedged pool or a starved box from one endpoint.
package health

import (
	"context"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type Checker struct {
	db       *pgxpool.Pool
	sessions func() int
}

type Status struct {
	Status       string         `json:"status"`
	Database     DatabaseHealth `json:"database"`
	LiveSessions int            `json:"live_sessions"`
	Goroutines   int            `json:"goroutines"`
	Process      ProcessStats   `json:"process"`
	Host         HostStats      `json:"host"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type ProcessStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
}

type HostStats struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUPercent        float64 `json:"cpu_percent"`
	UptimeSeconds     uint64  `json:"uptime_seconds"`
}

// NewChecker builds a checker. sessions reports the live editing
// session count and may be nil.
func NewChecker(db *pgxpool.Pool, sessions func() int) *Checker {
	return &Checker{db: db, sessions: sessions}
}

func (c *Checker) Check() Status {
	dbHealth := c.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	liveSessions := 0
	if c.sessions != nil {
		liveSessions = c.sessions()
	}

	return Status{
		Status:       status,
		Database:     dbHealth,
		LiveSessions: liveSessions,
		Goroutines:   runtime.NumGoroutine(),
		Process: ProcessStats{
			AllocMB:      float64(memStats.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(memStats.Sys) / 1024 / 1024,
			NumGC:        memStats.NumGC,
		},
		Host: hostStats(),
	}
}

func (c *Checker) checkDatabase() DatabaseHealth {
	if c.db == nil {
		return DatabaseHealth{Status: "unconfigured"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := c.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return DatabaseHealth{Status: "healthy", ResponseTime: responseTime}
}

// hostStats is best effort; a probe failure leaves the field zeroed
func hostStats() HostStats {
	stats := HostStats{}

	if v, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedPercent = v.UsedPercent
	}
	if c, err := cpu.Percent(0, false); err == nil && len(c) > 0 {
		stats.CPUPercent = c[0]
	}
	if info, err := host.Info(); err == nil {
		stats.UptimeSeconds = info.Uptime
	}

	return stats
}
