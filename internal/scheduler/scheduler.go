package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirphl/candle-writer/internal/candle"
	"github.com/amirphl/candle-writer/internal/chain"
	"github.com/amirphl/candle-writer/internal/interval"
	"github.com/amirphl/candle-writer/internal/logging"
	"github.com/amirphl/candle-writer/internal/quote"
	"github.com/amirphl/candle-writer/internal/store"
)

const process = "BatchScheduler"

// maxTimestamp marks the upper bound of acceptable quote timestamps.
var maxTimestamp = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

var priceTypes = []quote.PriceType{quote.Ask, quote.Bid, quote.Mid}

// Config holds the scheduler's operational knobs.
type Config struct {
	DrainCycle time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Intervals  []interval.Interval
}

// DefaultConfig returns the production defaults: one-minute drain cycles and
// three store attempts spaced three seconds apart.
func DefaultConfig() Config {
	return Config{
		DrainCycle: time.Minute,
		MaxRetries: 3,
		RetryDelay: 3 * time.Second,
		Intervals:  interval.Materialized,
	}
}

// BatchScheduler buffers validated quotes and, once per drain cycle, runs
// them through the enrichment chain and fans out aggregation+store work as
// independent tasks.
type BatchScheduler struct {
	cfg      Config
	queue    *IngestQueue
	chain    *chain.Chain
	log      *logging.Logger
	throttle *logging.Throttle

	inFlight atomic.Int64
	taskWG   sync.WaitGroup

	mu       sync.Mutex
	candles  *store.CandleStore // may be nil until storage is configured
	running  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	avgCycle time.Duration
}

func New(cfg Config, ch *chain.Chain, log *logging.Logger, throttle *logging.Throttle) *BatchScheduler {
	if cfg.DrainCycle <= 0 {
		cfg.DrainCycle = time.Minute
	}
	if len(cfg.Intervals) == 0 {
		cfg.Intervals = interval.Materialized
	}
	return &BatchScheduler{
		cfg:      cfg,
		queue:    NewIngestQueue(),
		chain:    ch,
		log:      log,
		throttle: throttle,
	}
}

// SetStore configures the storage capability. Until it is set, drain cycles
// warn and perform no work.
func (s *BatchScheduler) SetStore(cs *store.CandleStore) {
	s.mu.Lock()
	s.candles = cs
	s.mu.Unlock()
}

// Submit validates a quote and pushes it onto the ingest queue. Invalid
// quotes are logged and dropped; the caller never sees an error. A nil
// payload is a warning, not an error.
func (s *BatchScheduler) Submit(q *quote.Quote) {
	if q == nil {
		s.log.Warning(process, "received nil quote payload")
		return
	}

	if errs := validate(q); len(errs) > 0 {
		for _, msg := range errs {
			s.log.Error(process, "received invalid quote: %s", msg)
		}
		return
	}

	s.queue.Enqueue(*q)
}

func validate(q *quote.Quote) []string {
	var errs []string
	if q.AssetPair == "" {
		errs = append(errs, fmt.Sprintf("invalid AssetPair: %q", q.AssetPair))
	}
	if q.Timestamp.IsZero() || !q.Timestamp.Before(maxTimestamp) {
		errs = append(errs, fmt.Sprintf("invalid Timestamp range: %s", q.Timestamp))
	} else if q.Timestamp.Location() != time.UTC {
		errs = append(errs, fmt.Sprintf("invalid Timestamp location (UTC is required): %s", q.Timestamp))
	}
	return errs
}

// Start moves the scheduler to Running and begins firing drain cycles on the
// configured cadence. Starting a running scheduler is a no-op.
func (s *BatchScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.loopDone)
	s.log.Info(process, "scheduler started, drain cycle %s", s.cfg.DrainCycle)
}

// Stop halts the drain timer. It is idempotent and does not wait for
// in-flight tasks: they complete asynchronously after Stop returns.
func (s *BatchScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	s.log.Info(process, "scheduler stopped")
}

func (s *BatchScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.DrainCycle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Tasks are not bound to the loop context: Stop halts the timer
			// but never cancels work already in flight.
			s.Drain(context.Background())
		}
	}
}

// Drain snapshots and empties the queue, enriches the batch and dispatches
// one task per (asset, interval, price type) unit. Quotes submitted while a
// drain runs stay queued for the next cycle. Drain waits for the cycle's
// tasks so that cycles never overlap.
func (s *BatchScheduler) Drain(ctx context.Context) {
	// Bound the dequeue loop by the queue size at the moment of the call.
	count := s.queue.Len()
	batch := make([]quote.Quote, 0, count)
	for i := 0; i < count; i++ {
		q, ok := s.queue.TryDequeue()
		if !ok {
			break
		}
		batch = append(batch, q)
	}

	cs := s.candleStore()
	if cs == nil {
		// The already-drained batch is discarded with the warning. Quotes
		// arriving afterwards stay queued for the next successful cycle.
		s.log.Warning(process, "storage is not configured, skipping %d quotes", len(batch))
		return
	}

	if len(batch) == 0 {
		return
	}

	started := time.Now()

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})

	exts := make([]quote.Ext, len(batch))
	for i, q := range batch {
		exts[i] = quote.Extend(q)
	}
	enriched := s.chain.Run(ctx, exts)

	byAsset := make(map[string][]quote.Ext)
	assets := []string{}
	for _, q := range enriched {
		if _, ok := byAsset[q.AssetPair]; !ok {
			assets = append(assets, q.AssetPair)
		}
		byAsset[q.AssetPair] = append(byAsset[q.AssetPair], q)
	}

	var cycle sync.WaitGroup
	for _, asset := range assets {
		for _, iv := range s.cfg.Intervals {
			for _, pt := range priceTypes {
				s.taskWG.Add(1)
				cycle.Add(1)
				s.inFlight.Add(1)

				go func(asset string, quotes []quote.Ext, iv interval.Interval, pt quote.PriceType) {
					defer s.taskWG.Done()
					defer cycle.Done()
					defer s.inFlight.Add(-1)
					s.processUnit(ctx, cs, asset, quotes, iv, pt)
				}(asset, byAsset[asset], iv, pt)
			}
		}
	}
	cycle.Wait()

	s.recordCycle(time.Since(started))
}

func (s *BatchScheduler) processUnit(ctx context.Context, cs *store.CandleStore, asset string, quotes []quote.Ext, iv interval.Interval, pt quote.PriceType) {
	candles, err := candle.Generate(quotes, iv, pt)
	if err != nil {
		// Contract error: fail fast, no retry.
		s.log.Error(process, "failed to generate %s/%s/%s candles: %v", asset, iv, pt, err)
		return
	}
	if len(candles) == 0 {
		return
	}

	err = s.withRetry(ctx, func() error {
		return cs.Merge(ctx, asset, iv, pt, candles)
	})
	if err != nil {
		var notConfigured *store.NotConfiguredError
		if errors.As(err, &notConfigured) {
			if s.throttle.Allow("merge-not-configured:" + err.Error()) {
				s.log.Error(process, "failed to store %s/%s/%s candles: %v", asset, iv, pt, err)
			}
			return
		}
		s.log.Error(process, "failed to store %s/%s/%s candles after %d attempts: %v", asset, iv, pt, s.cfg.MaxRetries, err)
	}
}

// withRetry runs fn up to MaxRetries times with a fixed delay. Configuration
// errors break out immediately.
func (s *BatchScheduler) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}

		if err = fn(); err == nil {
			return nil
		}

		var notConfigured *store.NotConfiguredError
		if errors.As(err, &notConfigured) {
			return err
		}
	}
	return err
}

func (s *BatchScheduler) recordCycle(elapsed time.Duration) {
	s.mu.Lock()
	s.avgCycle = (s.avgCycle + elapsed) / 2
	avg := s.avgCycle
	s.mu.Unlock()

	if s.throttle.Allow("avg-cycle-time") {
		s.log.Info(process, "average cycle processing time: %s", avg)
	}
}

func (s *BatchScheduler) candleStore() *store.CandleStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candles
}

// InFlight reports the number of scheduled units not yet completed.
func (s *BatchScheduler) InFlight() int64 {
	return s.inFlight.Load()
}

// QueueLen reports the current ingest queue length.
func (s *BatchScheduler) QueueLen() int {
	return s.queue.Len()
}

// AvgCycle reports the running average of per-cycle processing wall time.
func (s *BatchScheduler) AvgCycle() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avgCycle
}
