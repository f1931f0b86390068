package chain

import (
	"context"
	"math"
	"strings"

	"github.com/amirphl/candle-writer/internal/assets"
	"github.com/amirphl/candle-writer/internal/logging"
	"github.com/amirphl/candle-writer/internal/quote"
)

// AssetFilter drops quotes for asset pairs that are unknown to the reference
// dictionary or marked disabled. Drops are logged at a throttled debug level.
type AssetFilter struct {
	assets   *assets.Service
	log      *logging.Logger
	throttle *logging.Throttle
}

func NewAssetFilter(svc *assets.Service, log *logging.Logger, throttle *logging.Throttle) *AssetFilter {
	return &AssetFilter{assets: svc, log: log, throttle: throttle}
}

func (f *AssetFilter) Handle(ctx context.Context, q quote.Ext, _ *[]quote.Ext) []quote.Ext {
	pair, ok := f.assets.GetAssetPair(ctx, q.AssetPair)
	if !ok || pair.IsDisabled {
		if f.throttle.Allow("asset-filter:" + strings.ToLower(q.AssetPair)) {
			f.log.Debug("AssetFilter", "skipping quotes for unknown or disabled asset pair %s", q.AssetPair)
		}
		return nil
	}
	return []quote.Ext{q}
}

// MidStage keeps the last seen ask and bid per asset pair and emits a
// synthetic Mid quote whenever both sides are known. State lives for the
// owning scheduler's lifetime; drain cycles never overlap, so a single
// writer is guaranteed.
type MidStage struct {
	assets *assets.Service
	ask    map[string]quote.Ext
	bid    map[string]quote.Ext
}

func NewMidStage(svc *assets.Service) *MidStage {
	return &MidStage{
		assets: svc,
		ask:    make(map[string]quote.Ext),
		bid:    make(map[string]quote.Ext),
	}
}

func (m *MidStage) Handle(ctx context.Context, q quote.Ext, _ *[]quote.Ext) []quote.Ext {
	key := strings.ToLower(q.AssetPair)
	copied := q.Clone()

	switch q.PriceType {
	case quote.Bid:
		m.bid[key] = latest(m.bid[key], copied)
	case quote.Ask:
		m.ask[key] = latest(m.ask[key], copied)
	default:
		// Already a Mid (or untagged) quote: bypass the slot logic.
		return []quote.Ext{q}
	}

	if mid, ok := m.makeMid(ctx, key, q.AssetPair); ok {
		return []quote.Ext{mid, q}
	}
	return []quote.Ext{q}
}

func (m *MidStage) makeMid(ctx context.Context, key, asset string) (quote.Ext, bool) {
	ask, haveAsk := m.ask[key]
	bid, haveBid := m.bid[key]
	if !haveAsk || !haveBid {
		return quote.Ext{}, false
	}

	ts := ask.Timestamp
	if bid.Timestamp.After(ts) {
		ts = bid.Timestamp
	}

	return quote.Ext{
		Quote: quote.Quote{
			AssetPair: asset,
			Price:     round((ask.Price+bid.Price)/2, m.assets.Accuracy(ctx, asset)),
			Timestamp: ts,
		},
		PriceType: quote.Mid,
	}, true
}

func latest(current, candidate quote.Ext) quote.Ext {
	if current.Timestamp.IsZero() {
		return candidate
	}
	if current.Timestamp.After(candidate.Timestamp) {
		return current
	}
	return candidate
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// Collector is the terminal stage: it appends every quote it receives to the
// chain's output accumulator.
type Collector struct{}

func NewCollector() *Collector { return &Collector{} }

func (*Collector) Handle(_ context.Context, q quote.Ext, out *[]quote.Ext) []quote.Ext {
	*out = append(*out, q)
	return nil
}
