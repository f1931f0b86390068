// Package quote defines the wire-level quote payload and its enriched form.
package quote

import "time"

// PriceType is the market view a quote or candle represents.
type PriceType int

const (
	Unspecified PriceType = iota
	Bid
	Ask
	Mid
)

func (p PriceType) String() string {
	switch p {
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	case Mid:
		return "Mid"
	default:
		return "Unspecified"
	}
}

// Side returns the partition-key token for the price type. Bid quotes are
// buy-side, ask quotes sell-side; synthetic mids get their own token.
func (p PriceType) Side() string {
	switch p {
	case Bid:
		return "BUY"
	case Ask:
		return "SELL"
	case Mid:
		return "MID"
	default:
		return "UNSPEC"
	}
}

// Quote is a raw price quote as delivered by the transport.
type Quote struct {
	AssetPair string    `json:"assetPair"`
	IsBuy     bool      `json:"isBuy"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Ext is a quote extended with its price type. Ask/Bid are derived 1:1 from
// IsBuy; Mid is only ever synthesized by the enrichment chain.
type Ext struct {
	Quote
	PriceType PriceType
}

// Extend tags a raw quote with the price type implied by its side.
func Extend(q Quote) Ext {
	pt := Ask
	if q.IsBuy {
		pt = Bid
	}
	return Ext{Quote: q, PriceType: pt}
}

// Clone returns a copy. Enriched quotes are never mutated in place once
// handed downstream.
func (q Ext) Clone() Ext {
	return Ext{Quote: q.Quote, PriceType: q.PriceType}
}
