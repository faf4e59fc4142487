package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthWorker logs the relay's own vitals on a fixed interval: process
// CPU and RSS via gopsutil plus the monitoring counters. Operational
// logging only, nothing here reaches connected clients.
type HealthWorker struct {
	log            *slog.Logger
	monitoring     *observability.Monitoring
	metricInterval time.Duration
}

func NewHealthWorker(log *slog.Logger, monitoring *observability.Monitoring,
	metricInterval time.Duration) *HealthWorker {
	return &HealthWorker{
		log:            log,
		monitoring:     monitoring,
		metricInterval: metricInterval,
	}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			mem, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Error while finding process memory usage", "err", err)
				continue
			}

			snapshot := w.monitoring.Snapshot()
			w.log.Info("relay health",
				"cpu_percent", cpu,
				"rss_mb", mem.RSS/(1024*1024),
				"connections", snapshot.Connections,
				"broadcasts", snapshot.Broadcasts,
				"generator_calls", snapshot.GeneratorCalls,
				"generator_failures", snapshot.GeneratorFailures,
			)
		}
	}
}
