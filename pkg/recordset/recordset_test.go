package recordset

import (
	"testing"
	"time"

	"github.com/marketkit/syncache/pkg/calendar"
)

func dailyRows(dates ...string) []Record {
	rows := make([]Record, 0, len(dates))
	for i, d := range dates {
		rows = append(rows, Record{"date": d, "close": 10.0 + float64(i)})
	}
	return rows
}

func TestDetectTemporalField(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
		found  bool
	}{
		{name: "date field", record: Record{"date": "2024-01-05", "close": 10.0}, want: "date", found: true},
		{name: "localized field", record: Record{"日期": "2024-01-05", "收盘": 10.0}, want: "日期", found: true},
		{name: "uppercase alias", record: Record{"Date": "2024-01-05"}, want: "Date", found: true},
		{name: "timestamp field", record: Record{"timestamp": "2024-01-05 10:30:00"}, want: "timestamp", found: true},
		{name: "no temporal field", record: Record{"close": 10.0, "volume": 100}, found: false},
		{
			// "date" outranks "timestamp" in the alias priority list.
			name:   "priority order",
			record: Record{"timestamp": "x", "date": "2024-01-05"},
			want:   "date",
			found:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectTemporalField(tt.record)
			if ok != tt.found {
				t.Fatalf("DetectTemporalField() found = %v, want %v", ok, tt.found)
			}
			if ok && got != tt.want {
				t.Errorf("DetectTemporalField() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	rs := New("date", dailyRows("2024-01-01", "2024-01-02", "2024-01-03")...)
	merged := Merge(rs, rs)
	if !Equal(merged, rs) {
		t.Errorf("Merge(rs, rs) != rs: got %d rows, want %d", merged.Len(), rs.Len())
	}
}

func TestMerge_Commutative(t *testing.T) {
	a := New("date", dailyRows("2024-01-01", "2024-01-02")...)
	b := New("date", dailyRows("2024-01-03", "2024-01-04")...)
	ab := Merge(a, b)
	ba := Merge(b, a)
	if !Equal(ab, ba) {
		t.Error("Merge(a, b) != Merge(b, a)")
	}
}

func TestMerge_DedupExactRows(t *testing.T) {
	a := New("date", Record{"date": "2024-01-05", "close": 10.0})
	b := New("date", Record{"date": "2024-01-05", "close": 10.0})
	merged := Merge(a, b)
	if merged.Len() != 1 {
		t.Errorf("Merge produced %d rows, want 1", merged.Len())
	}
}

func TestMerge_KeepsSameDateDifferentValues(t *testing.T) {
	// An upstream correction arrives as a row with the same timestamp but
	// different field values. Both rows must survive.
	a := New("date", Record{"date": "2024-01-05", "close": 10.0})
	b := New("date", Record{"date": "2024-01-05", "close": 10.5})
	merged := Merge(a, b)
	if merged.Len() != 2 {
		t.Errorf("Merge produced %d rows, want 2", merged.Len())
	}
}

func TestMerge_SortsAscending(t *testing.T) {
	a := New("date", dailyRows("2024-01-03")...)
	b := New("date", dailyRows("2024-01-01", "2024-01-02")...)
	merged := Merge(a, b)

	var prev time.Time
	for i, r := range merged.Rows() {
		ts, err := calendar.ParseDate(r["date"].(string))
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if ts.Before(prev) {
			t.Fatalf("rows not ascending at index %d", i)
		}
		prev = ts
	}
}

func TestMerge_NonTemporalRowsSortFirst(t *testing.T) {
	a := New("date", Record{"note": "metadata row"})
	b := New("date", dailyRows("2024-01-01")...)
	merged := Merge(a, b)
	if merged.Len() != 2 {
		t.Fatalf("Merge produced %d rows, want 2", merged.Len())
	}
	if _, ok := merged.Rows()[0]["note"]; !ok {
		t.Error("non-temporal row should sort first")
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	a := New("date", Record{"date": "2024-01-05", "close": 10.0})
	b := New("date", dailyRows("2024-01-06")...)
	merged := Merge(a, b)

	// The merged rows are clones; mutating them must not leak back.
	for _, r := range merged.Rows() {
		r["close"] = -1.0
	}
	if a.Rows()[0]["close"] != 10.0 {
		t.Error("Merge shares row maps with its inputs")
	}
}

func TestNormalize_CanonicalDates(t *testing.T) {
	rs := New("date",
		Record{"date": "2024/01/05", "close": 10.0},
		Record{"date": "20240106", "close": 11.0},
	)
	want := []string{"2024-01-05", "2024-01-06"}
	for i, r := range rs.Rows() {
		if r["date"] != want[i] {
			t.Errorf("row %d date = %v, want %s", i, r["date"], want[i])
		}
	}
}

func TestNormalize_DedupAcrossSpellings(t *testing.T) {
	// Same row written with two date spellings collapses after
	// canonicalization.
	rs := New("date",
		Record{"date": "2024/01/05", "close": 10.0},
		Record{"date": "2024-01-05", "close": 10.0},
	)
	if rs.Len() != 1 {
		t.Errorf("got %d rows, want 1", rs.Len())
	}
}

func TestCoverage(t *testing.T) {
	rs := New("date", dailyRows("2024-01-03", "2024-01-01", "2024-01-10")...)
	cov := rs.Coverage(calendar.FreqDaily)
	if cov == nil {
		t.Fatal("Coverage returned nil")
	}
	if got := cov.Start.Format("2006-01-02"); got != "2024-01-01" {
		t.Errorf("coverage start = %s, want 2024-01-01", got)
	}
	if got := cov.End.Format("2006-01-02"); got != "2024-01-10" {
		t.Errorf("coverage end = %s, want 2024-01-10", got)
	}
}

func TestCoverage_Empty(t *testing.T) {
	if cov := New("date").Coverage(calendar.FreqDaily); cov != nil {
		t.Errorf("empty set coverage = %v, want nil", cov)
	}
}

func TestCoverage_NonTemporal(t *testing.T) {
	rs := New("", Record{"close": 10.0})
	if cov := rs.Coverage(calendar.FreqDaily); cov != nil {
		t.Errorf("non-temporal set coverage = %v, want nil", cov)
	}
}

func TestCoverage_WeeklyBucketing(t *testing.T) {
	rs := New("date", dailyRows("2024-01-11")...) // Thursday
	cov := rs.Coverage(calendar.FreqWeekly)
	if cov == nil {
		t.Fatal("Coverage returned nil")
	}
	if got := cov.Start.Format("2006-01-02"); got != "2024-01-08" {
		t.Errorf("weekly coverage start = %s, want Monday 2024-01-08", got)
	}
}

func TestCoverageWindow_Contains(t *testing.T) {
	rs := New("date", dailyRows("2024-01-01", "2024-01-10")...)
	cov := rs.Coverage(calendar.FreqDaily)

	in := func(s string) time.Time {
		ts, err := calendar.ParseDate(s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		return ts
	}

	if !cov.Contains(in("2024-01-02"), in("2024-01-09")) {
		t.Error("Contains should be true for inner window")
	}
	if cov.Contains(in("2024-01-02"), in("2024-01-15")) {
		t.Error("Contains should be false when end exceeds coverage")
	}
	if cov.Contains(in("2023-12-20"), in("2024-01-09")) {
		t.Error("Contains should be false when start precedes coverage")
	}
}

func TestEncodeDecode(t *testing.T) {
	rs := New("date", dailyRows("2024-01-01", "2024-01-02")...)
	data, err := rs.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode("date", data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !Equal(rs, decoded) {
		t.Error("round-tripped set differs from original")
	}
	if decoded.TemporalField() != "date" {
		t.Errorf("temporal field = %q, want date", decoded.TemporalField())
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode("date", []byte("{not json")); err == nil {
		t.Error("Decode should fail on malformed payload")
	}
}
