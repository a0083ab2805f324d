package main

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketkit/syncache/pkg/calendar"
	"github.com/marketkit/syncache/pkg/recordset"
)

// demoOHLCFetcher generates a synthetic OHLC series standing in for a real
// market-data upstream. Every row depends only on the instrument code and
// its bucket, so overlapping windows fetched at different times always
// agree on shared dates.
func demoOHLCFetcher(ctx context.Context, start, end time.Time, freq calendar.Frequency, params map[string]string) (*recordset.RecordSet, error) {
	code := params["code"]
	if code == "" {
		code = "demo"
	}

	var rows []recordset.Record
	for t := calendar.Bucket(start, freq); !t.After(end); t = calendar.NextBucket(t, freq) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		rng := bucketRNG(code, t)
		open := demoPrice(code, calendar.PrevBucket(t, freq))
		closePx := demoPrice(code, t)
		tick := decimal.NewFromFloat(0.01)
		high := decimal.Max(open, closePx).Add(tick.Mul(decimal.NewFromInt(int64(rng.Intn(50)))))
		low := decimal.Min(open, closePx).Sub(tick.Mul(decimal.NewFromInt(int64(rng.Intn(50)))))

		rows = append(rows, recordset.Record{
			"date":   calendar.Canonical(t),
			"code":   code,
			"open":   open.InexactFloat64(),
			"high":   high.InexactFloat64(),
			"low":    low.InexactFloat64(),
			"close":  closePx.InexactFloat64(),
			"volume": rng.Intn(9_000_000) + 1_000_000,
		})
	}

	return recordset.New("date", rows...), nil
}

// demoPrice maps (code, bucket) to a stable price near 100, in whole ticks.
func demoPrice(code string, t time.Time) decimal.Decimal {
	ticks := int64(bucketRNG(code, t).Intn(2001)) - 1000
	return decimal.NewFromInt(100).Add(decimal.New(ticks, -2))
}

func bucketRNG(code string, t time.Time) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(code))
	h.Write([]byte(t.Format("2006-01-02 15:04:05")))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
