// Package testutil provides testing utilities for the syncache library.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/marketkit/syncache/pkg/calendar"
	"github.com/marketkit/syncache/pkg/recordset"
)

// FetchCall records the arguments of one fetcher invocation.
type FetchCall struct {
	Start     time.Time
	End       time.Time
	Frequency calendar.Frequency
	Params    map[string]string
}

// MockFetcher is a scriptable upstream fetcher for tests: it tracks every
// call, can fail a configurable number of times, and generates one row per
// bucket in the requested window.
type MockFetcher struct {
	mu            sync.Mutex
	temporalField string
	calls         []FetchCall
	failuresLeft  int
	failWith      error
	rows          func(start, end time.Time, freq calendar.Frequency) []recordset.Record
}

// NewMockFetcher creates a fetcher producing rows keyed by temporalField.
func NewMockFetcher(temporalField string) *MockFetcher {
	m := &MockFetcher{temporalField: temporalField}
	m.rows = m.defaultRows
	return m
}

// FailNext makes the next n calls return err.
func (m *MockFetcher) FailNext(n int, err error) {
	m.mu.Lock()
	m.failuresLeft = n
	m.failWith = err
	m.mu.Unlock()
}

// SetRows overrides row generation.
func (m *MockFetcher) SetRows(fn func(start, end time.Time, freq calendar.Frequency) []recordset.Record) {
	m.mu.Lock()
	m.rows = fn
	m.mu.Unlock()
}

// Calls returns a copy of the recorded invocations.
func (m *MockFetcher) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FetchCall(nil), m.calls...)
}

// CallCount returns the number of invocations so far.
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Fetch implements the fetcher contract. Assign it to a Domain's Fetch.
func (m *MockFetcher) Fetch(ctx context.Context, start, end time.Time, freq calendar.Frequency, params map[string]string) (*recordset.RecordSet, error) {
	m.mu.Lock()
	m.calls = append(m.calls, FetchCall{Start: start, End: end, Frequency: freq, Params: params})
	if m.failuresLeft != 0 {
		if m.failuresLeft > 0 {
			m.failuresLeft--
		}
		err := m.failWith
		m.mu.Unlock()
		return nil, err
	}
	rows := m.rows(start, end, freq)
	m.mu.Unlock()

	return recordset.New(m.temporalField, rows...), nil
}

// defaultRows generates one row per bucket from start through end with a
// synthetic close price.
func (m *MockFetcher) defaultRows(start, end time.Time, freq calendar.Frequency) []recordset.Record {
	var rows []recordset.Record
	price := 100.0
	for t := calendar.Bucket(start, freq); !t.After(end); t = calendar.NextBucket(t, freq) {
		rows = append(rows, recordset.Record{
			m.temporalField: calendar.Canonical(t),
			"close":         price,
		})
		price += 0.5
	}
	return rows
}
