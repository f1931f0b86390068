// Package feed contains optional quote sources that push into the pipeline
// next to the message-queue transport.
package feed

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/wallexchange/wallex-go"

	"github.com/amirphl/candle-writer/internal/logging"
	"github.com/amirphl/candle-writer/internal/quote"
)

// QuoteSink is the pipeline's entry point for produced quotes.
type QuoteSink interface {
	Submit(q *quote.Quote)
}

// WallexConfig configures the top-of-book poller.
type WallexConfig struct {
	APIKey   string
	Symbols  []string
	PollEach time.Duration
}

// WallexFeed polls Wallex order books and turns the best bid and best ask
// into quotes.
type WallexFeed struct {
	client  *wallex.Client
	cfg     WallexConfig
	sink    QuoteSink
	log     *logging.Logger
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWallexFeed(cfg WallexConfig, sink QuoteSink, log *logging.Logger) *WallexFeed {
	if cfg.PollEach <= 0 {
		cfg.PollEach = 5 * time.Second
	}
	return &WallexFeed{
		client: wallex.New(wallex.ClientOptions{APIKey: cfg.APIKey}),
		cfg:    cfg,
		sink:   sink,
		log:    log,
	}
}

func (f *WallexFeed) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.running = true
	f.log.Info("WallexFeed", "starting feed for %d symbols", len(f.cfg.Symbols))

	f.wg.Add(len(f.cfg.Symbols))
	for _, symbol := range f.cfg.Symbols {
		go func(sym string) {
			defer f.wg.Done()
			f.poll(ctx, sym)
		}(symbol)
	}
}

func (f *WallexFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	f.cancel()
	f.wg.Wait()
	f.log.Info("WallexFeed", "feed stopped")
}

func (f *WallexFeed) poll(ctx context.Context, symbol string) {
	ticker := time.NewTicker(f.cfg.PollEach)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.publishTopOfBook(symbol); err != nil {
				f.log.Error("WallexFeed", "failed to fetch %s order book: %v", symbol, err)
			}
		}
	}
}

func (f *WallexFeed) publishTopOfBook(symbol string) error {
	asks, bids, err := f.client.MarketOrders(symbol)
	if err != nil {
		return fmt.Errorf("fetching orderbook: %w", err)
	}

	now := time.Now().UTC()

	if len(bids) > 0 {
		price, err := strconv.ParseFloat(string(bids[0].Price), 64)
		if err != nil {
			return fmt.Errorf("parsing best bid price %q: %w", bids[0].Price, err)
		}
		f.sink.Submit(&quote.Quote{AssetPair: symbol, IsBuy: true, Price: price, Timestamp: now})
	}
	if len(asks) > 0 {
		price, err := strconv.ParseFloat(string(asks[0].Price), 64)
		if err != nil {
			return fmt.Errorf("parsing best ask price %q: %w", asks[0].Price, err)
		}
		f.sink.Submit(&quote.Quote{AssetPair: symbol, IsBuy: false, Price: price, Timestamp: now})
	}

	return nil
}
