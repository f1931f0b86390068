package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/candle-writer/internal/interval"
	"github.com/amirphl/candle-writer/internal/quote"
)

// PartitionKey addresses one asset/side/interval partition.
func PartitionKey(assetPair string, pt quote.PriceType, iv interval.Interval) string {
	return fmt.Sprintf("%s_%s_%s", assetPair, pt.Side(), iv)
}

// RowKey is a coarser time prefix chosen per interval so that one row holds
// many buckets: a Day row key is the year-month, a Month row key the year,
// and so on. Keys are zero-padded, so lexicographic order matches time order
// within a partition.
func RowKey(t time.Time, iv interval.Interval) (string, error) {
	base, err := interval.RowBase(t, iv)
	if err != nil {
		return "", err
	}

	switch iv {
	case interval.Month:
		return fmt.Sprintf("%04d", base.Year()), nil
	case interval.Week, interval.Day:
		return fmt.Sprintf("%04d-%02d", base.Year(), base.Month()), nil
	case interval.Hour:
		return fmt.Sprintf("%04d-%02d-%02d", base.Year(), base.Month(), base.Day()), nil
	case interval.Min30, interval.Min15, interval.Min5, interval.Minute:
		return fmt.Sprintf("%04d-%02d-%02dT%02d", base.Year(), base.Month(), base.Day(), base.Hour()), nil
	case interval.Sec:
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", base.Year(), base.Month(), base.Day(), base.Hour(), base.Minute()), nil
	default:
		return "", fmt.Errorf("RowKey: unexpected interval value %d", int(iv))
	}
}

// ParseRowKeyTime recovers a row's base time from its key. Missing segments
// default to the span start. Row times are always UTC.
func ParseRowKeyTime(rowKey string) (time.Time, error) {
	if rowKey == "" {
		return time.Time{}, fmt.Errorf("ParseRowKeyTime: empty row key")
	}

	seg := strings.FieldsFunc(rowKey, func(r rune) bool {
		return r == '-' || r == 'T' || r == ':'
	})

	parts := []int{1900, 1, 1, 0, 0, 0}
	for i := 0; i < len(seg) && i < len(parts); i++ {
		n, err := strconv.Atoi(seg[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("ParseRowKeyTime: bad segment %q in %q: %w", seg[i], rowKey, err)
		}
		parts[i] = n
	}

	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC), nil
}
