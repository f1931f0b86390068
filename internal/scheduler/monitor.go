package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/amirphl/candle-writer/internal/logging"
)

// QueueMonitor periodically samples the scheduler's in-flight task count and
// raises a warning when it exceeds the configured threshold.
type QueueMonitor struct {
	sched    *BatchScheduler
	log      *logging.Logger
	warnSize int64
	period   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func NewQueueMonitor(sched *BatchScheduler, log *logging.Logger, warnSize int64) *QueueMonitor {
	return &QueueMonitor{
		sched:    sched,
		log:      log,
		warnSize: warnSize,
		period:   time.Minute,
	}
}

func (m *QueueMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.log.Info("QueueMonitor", "starting monitor")

	go m.loop(ctx)
}

func (m *QueueMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.cancel()
	m.log.Info("QueueMonitor", "stopping monitor")
}

func (m *QueueMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check runs one sampling pass.
func (m *QueueMonitor) Check() {
	if current := m.sched.InFlight(); current > m.warnSize {
		m.log.Warning("QueueMonitor",
			"processing queue's size exceeded warning level (%d) and now equals %d", m.warnSize, current)
	}
}
