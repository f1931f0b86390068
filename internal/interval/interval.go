// Package interval holds the time-bucketing math shared by the aggregation
// and storage layers: rounding a timestamp down to its bucket start, and
// converting between absolute bucket starts and the compact tick indices
// used inside storage rows.
package interval

import (
	"fmt"
	"time"
)

// Interval is a supported candle granularity.
type Interval int

const (
	Sec Interval = iota + 1
	Minute
	Min5
	Min15
	Min30
	Hour
	Hour4
	Hour6
	Hour12
	Day
	Week
	Month
)

// Materialized is the set of intervals actually written to storage.
// Min5/Min15/Hour4/Hour6/Hour12 are rounding-capable extension points only.
var Materialized = []Interval{Sec, Minute, Min30, Hour, Day, Week, Month}

func (i Interval) String() string {
	switch i {
	case Sec:
		return "Sec"
	case Minute:
		return "Minute"
	case Min5:
		return "Min5"
	case Min15:
		return "Min15"
	case Min30:
		return "Min30"
	case Hour:
		return "Hour"
	case Hour4:
		return "Hour4"
	case Hour6:
		return "Hour6"
	case Hour12:
		return "Hour12"
	case Day:
		return "Day"
	case Week:
		return "Week"
	case Month:
		return "Month"
	default:
		return fmt.Sprintf("Interval(%d)", int(i))
	}
}

func outOfRange(op string, i Interval) error {
	return fmt.Errorf("%s: unexpected interval value %d", op, int(i))
}

// RoundDown floors t to the start of its bucket. The timestamp's location
// marker is preserved unchanged.
func RoundDown(t time.Time, i Interval) (time.Time, error) {
	y, m, d := t.Date()
	loc := t.Location()

	switch i {
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), nil
	case Week:
		// Mon..Sun week: Sunday belongs to the week whose Monday is 6 days back.
		shift := int(t.Weekday()) - int(time.Monday)
		if shift < 0 {
			shift = 6
		}
		return time.Date(y, m, d-shift, 0, 0, 0, 0, loc), nil
	case Day:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	case Hour12:
		return time.Date(y, m, d, t.Hour()-t.Hour()%12, 0, 0, 0, loc), nil
	case Hour6:
		return time.Date(y, m, d, t.Hour()-t.Hour()%6, 0, 0, 0, loc), nil
	case Hour4:
		return time.Date(y, m, d, t.Hour()-t.Hour()%4, 0, 0, 0, loc), nil
	case Hour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc), nil
	case Min30:
		return time.Date(y, m, d, t.Hour(), t.Minute()-t.Minute()%30, 0, 0, loc), nil
	case Min15:
		return time.Date(y, m, d, t.Hour(), t.Minute()-t.Minute()%15, 0, 0, loc), nil
	case Min5:
		return time.Date(y, m, d, t.Hour(), t.Minute()-t.Minute()%5, 0, 0, loc), nil
	case Minute:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
	case Sec:
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	default:
		return time.Time{}, outOfRange("RoundDown", i)
	}
}

// Tick returns the bucket's index within its storage row's coarser span.
// Month and Day ticks are 1-based calendar components, the rest are 0-based
// offsets. For Week the tick is the day-of-month of the bucket's Monday.
func Tick(t time.Time, i Interval) (int, error) {
	switch i {
	case Month:
		return int(t.Month()), nil
	case Week:
		monday, err := RoundDown(t, Week)
		if err != nil {
			return 0, err
		}
		return monday.Day(), nil
	case Day:
		return t.Day(), nil
	case Hour:
		return t.Hour(), nil
	case Min30:
		return t.Minute() / 30, nil
	case Min15:
		return t.Minute() / 15, nil
	case Min5:
		return t.Minute() / 5, nil
	case Minute:
		return t.Minute(), nil
	case Sec:
		return t.Second(), nil
	default:
		return 0, outOfRange("Tick", i)
	}
}

// AddTicks is the inverse of Tick: it rebuilds an absolute bucket start from
// a row's base time and a tick index.
func AddTicks(base time.Time, tick int, i Interval) (time.Time, error) {
	switch i {
	case Month:
		return base.AddDate(0, tick-1, 0), nil // ticks are in [1..12]
	case Week, Day:
		return base.AddDate(0, 0, tick-1), nil // ticks are in [1..31]
	case Hour:
		return base.Add(time.Duration(tick) * time.Hour), nil
	case Min30:
		return base.Add(time.Duration(tick*30) * time.Minute), nil
	case Min15:
		return base.Add(time.Duration(tick*15) * time.Minute), nil
	case Min5:
		return base.Add(time.Duration(tick*5) * time.Minute), nil
	case Minute:
		return base.Add(time.Duration(tick) * time.Minute), nil
	case Sec:
		return base.Add(time.Duration(tick) * time.Second), nil
	default:
		return time.Time{}, outOfRange("AddTicks", i)
	}
}

// RowBase floors t to the start of the coarser span one storage row covers.
// It is the time a row key encodes.
func RowBase(t time.Time, i Interval) (time.Time, error) {
	y, m, d := t.Date()
	loc := t.Location()

	switch i {
	case Month:
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc), nil
	case Week:
		monday, err := RoundDown(t, Week)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(monday.Year(), monday.Month(), 1, 0, 0, 0, 0, loc), nil
	case Day:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), nil
	case Hour:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	case Min30, Min15, Min5, Minute:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc), nil
	case Sec:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
	default:
		return time.Time{}, outOfRange("RowBase", i)
	}
}
