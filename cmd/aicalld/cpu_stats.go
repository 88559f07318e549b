package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

var cpuStatsInterval = 10 * time.Second

func logCPUUsage(ctx context.Context) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Printf("cpu stats unavailable: %v", err)
		return
	}
	ticker := time.NewTicker(cpuStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			percent, err := proc.CPUPercentWithContext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("cpu stats failed: %v", err)
				continue
			}
			rss := uint64(0)
			if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
				rss = mem.RSS
			}
			log.Printf("aicall usage: cpu=%.1f%% rss_mb=%.1f", percent, float64(rss)/(1<<20))
		}
	}
}
