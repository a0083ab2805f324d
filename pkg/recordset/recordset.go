// Package recordset provides an ordered, deduplicated collection of labeled
// rows with a designated temporal key field.
//
// A RecordSet is the single in-memory shape for every cached time series,
// regardless of how the upstream delivered it (tabular or list-of-maps).
// Merge is pure, commutative, and idempotent, which is what makes concurrent
// refreshes of the same key safe: the worst outcome of a racing merge-write
// is a redundant upstream call, never corrupted data.
package recordset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marketkit/syncache/pkg/calendar"
)

// Record is one labeled row. Values are opaque scalars; the package never
// interprets anything except the temporal field.
type Record map[string]any

// temporalAliases is the priority-ordered list of field names recognized as
// a temporal key when no schema declares one.
var temporalAliases = []string{"date", "time", "day", "datetime", "timestamp", "日期", "时间"}

// DetectTemporalField scans the alias priority list and returns the first
// field name present in the record. The second return is false when the
// record has no recognizable temporal key.
func DetectTemporalField(r Record) (string, bool) {
	for _, alias := range temporalAliases {
		for name := range r {
			if strings.EqualFold(name, alias) {
				return name, true
			}
		}
	}
	return "", false
}

// RecordSet is an ordered sequence of Records, ascending by temporal key.
// Rows without a resolvable temporal value sort first.
type RecordSet struct {
	temporalField string
	rows          []Record
}

// New creates a RecordSet with a statically declared temporal field.
// The rows are normalized (canonicalized, deduplicated, sorted) immediately.
func New(temporalField string, rows ...Record) *RecordSet {
	rs := &RecordSet{temporalField: temporalField, rows: rows}
	rs.Normalize()
	return rs
}

// Detect creates a RecordSet by discovering the temporal field from the
// first row that has one. A set with no discoverable temporal key is treated
// as an opaque whole dataset: it merges by replacement, not extension.
func Detect(rows []Record) *RecordSet {
	field := ""
	for _, r := range rows {
		if name, ok := DetectTemporalField(r); ok {
			field = name
			break
		}
	}
	return New(field, rows...)
}

// TemporalField returns the name of the temporal key field, or "" when the
// set is non-temporal.
func (rs *RecordSet) TemporalField() string {
	return rs.temporalField
}

// Len returns the number of rows.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rows)
}

// Rows returns the underlying rows in order. The slice is shared; callers
// must not mutate it.
func (rs *RecordSet) Rows() []Record {
	if rs == nil {
		return nil
	}
	return rs.rows
}

// temporalValue resolves the temporal key of a row to a timestamp.
func (rs *RecordSet) temporalValue(r Record) (time.Time, bool) {
	if rs.temporalField == "" {
		return time.Time{}, false
	}
	v, ok := r[rs.temporalField]
	if !ok {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		t, err := calendar.ParseDate(val)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// fingerprint returns a canonical byte form of the row for exact-duplicate
// detection across all fields. Map keys marshal in sorted order, so equal
// rows always produce equal fingerprints.
func fingerprint(r Record) string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%v", r)
	}
	return string(b)
}

// Normalize rewrites every temporal field to the canonical string format,
// removes rows that are exact duplicates across all fields, and sorts
// ascending by temporal key. Rows lacking a temporal value keep their
// relative order at the front of the set.
//
// The read path calls Normalize on every deserialized payload rather than
// trusting the write path.
func (rs *RecordSet) Normalize() {
	if rs == nil || len(rs.rows) == 0 {
		return
	}

	// Canonical temporal strings first, so duplicates written with different
	// date spellings collapse.
	for _, r := range rs.rows {
		if t, ok := rs.temporalValue(r); ok {
			r[rs.temporalField] = calendar.Canonical(t)
		}
	}

	seen := make(map[string]struct{}, len(rs.rows))
	deduped := rs.rows[:0]
	for _, r := range rs.rows {
		fp := fingerprint(r)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		deduped = append(deduped, r)
	}
	rs.rows = deduped

	sort.SliceStable(rs.rows, func(i, j int) bool {
		ti, _ := rs.temporalValue(rs.rows[i])
		tj, _ := rs.temporalValue(rs.rows[j])
		return ti.Before(tj)
	})
}

// Merge combines two RecordSets into a new set: concatenation, exact
// duplicate removal across all fields, ascending sort, canonical temporal
// strings. Two rows with the same timestamp but different field values are
// both kept; that is the only way upstream corrections are representable.
//
// Merge is commutative up to row-set equality and idempotent:
// Merge(a, a) equals a.
func Merge(a, b *RecordSet) *RecordSet {
	field := ""
	if a != nil && a.temporalField != "" {
		field = a.temporalField
	} else if b != nil {
		field = b.temporalField
	}

	// Clone rows so normalization of the result never mutates the inputs.
	rows := make([]Record, 0, a.Len()+b.Len())
	for _, src := range [][]Record{a.Rows(), b.Rows()} {
		for _, r := range src {
			clone := make(Record, len(r))
			for k, v := range r {
				clone[k] = v
			}
			rows = append(rows, clone)
		}
	}
	return New(field, rows...)
}

// CoverageWindow is the inclusive, bucket-snapped date range a RecordSet
// represents at a given frequency. It is derived, never stored.
type CoverageWindow struct {
	Start     time.Time
	End       time.Time
	Frequency calendar.Frequency
}

// Contains reports whether the window fully covers [start, end] after both
// bounds are bucketed at the window's frequency.
func (w *CoverageWindow) Contains(start, end time.Time) bool {
	if w == nil {
		return false
	}
	s := calendar.Bucket(start, w.Frequency)
	e := calendar.Bucket(end, w.Frequency)
	return !w.Start.After(s) && !w.End.Before(e)
}

// Coverage returns the bucketed min/max temporal value of the set, or nil
// when the set is empty or has no temporal key.
func (rs *RecordSet) Coverage(f calendar.Frequency) *CoverageWindow {
	if rs.Len() == 0 || rs.temporalField == "" {
		return nil
	}

	var minT, maxT time.Time
	found := false
	for _, r := range rs.rows {
		t, ok := rs.temporalValue(r)
		if !ok {
			continue
		}
		if !found {
			minT, maxT = t, t
			found = true
			continue
		}
		if t.Before(minT) {
			minT = t
		}
		if t.After(maxT) {
			maxT = t
		}
	}
	if !found {
		return nil
	}

	return &CoverageWindow{
		Start:     calendar.Bucket(minT, f),
		End:       calendar.Bucket(maxT, f),
		Frequency: f,
	}
}

// Encode serializes the rows as a JSON array. The temporal field name is not
// part of the payload; it is supplied again on Decode by the domain schema.
func (rs *RecordSet) Encode() ([]byte, error) {
	rows := rs.Rows()
	if rows == nil {
		rows = []Record{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode recordset: %w", err)
	}
	return b, nil
}

// Decode deserializes a JSON row array into a RecordSet with the given
// temporal field. The result is normalized.
func Decode(temporalField string, data []byte) (*RecordSet, error) {
	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode recordset: %w", err)
	}
	return New(temporalField, rows...), nil
}

// Equal reports row-set equality ignoring row order, after normalization.
func Equal(a, b *RecordSet) bool {
	if a.Len() != b.Len() {
		return false
	}
	counts := make(map[string]int, a.Len())
	for _, r := range a.Rows() {
		counts[fingerprint(r)]++
	}
	for _, r := range b.Rows() {
		counts[fingerprint(r)]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
