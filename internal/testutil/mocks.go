package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kyleking/gem-support/internal/cache"
	"github.com/kyleking/gem-support/internal/schema"
)

// MockSource implements schema.Source over in-memory rows with call
// counting and error injection
type MockSource struct {
	mu sync.RWMutex

	rows       []schema.ColumnRow
	tables     []string
	injector   *ErrorInjector
	callCounts map[string]int
	closed     bool
}

// MockOption is a functional option for configuring MockSource
type MockOption func(*MockSource)

// WithRows sets the column rows the source reports
func WithRows(rows ...schema.ColumnRow) MockOption {
	return func(m *MockSource) {
		m.rows = append(m.rows, rows...)
	}
}

// WithTables adds tables that have no columns
func WithTables(tables ...string) MockOption {
	return func(m *MockSource) {
		m.tables = append(m.tables, tables...)
	}
}

// WithError makes every call to method fail with err
func WithError(method string, err error) MockOption {
	return func(m *MockSource) {
		m.injector.InjectError(method, err)
	}
}

// WithErrorAfter makes calls to method fail with err after n successful calls
func WithErrorAfter(method string, n int, err error) MockOption {
	return func(m *MockSource) {
		m.injector.InjectErrorAfterN(method, n, err)
	}
}

// NewMockSource creates a new mock source with the given options
func NewMockSource(opts ...MockOption) *MockSource {
	mock := &MockSource{
		injector:   NewErrorInjector(),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

func (m *MockSource) record(method string) error {
	m.mu.Lock()
	m.callCounts[method]++
	m.mu.Unlock()

	return m.injector.ShouldError(method)
}

// TableExists reports whether any row or extra table matches
func (m *MockSource) TableExists(_ context.Context, table string) (bool, error) {
	if err := m.record("TableExists"); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Contains(m.allTables(), table), nil
}

// ColumnNames returns columns of table in ordinal order
func (m *MockSource) ColumnNames(_ context.Context, table string) ([]string, error) {
	if err := m.record("ColumnNames"); err != nil {
		return nil, err
	}

	rows := m.rowsFor(table)

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.ColumnName)
	}

	return names, nil
}

// ListTables returns the sorted table names
func (m *MockSource) ListTables(_ context.Context) ([]string, error) {
	if err := m.record("ListTables"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.allTables(), nil
}

// ColumnRows returns rows for table, or every row when table is empty
func (m *MockSource) ColumnRows(_ context.Context, table string) ([]schema.ColumnRow, error) {
	if err := m.record("ColumnRows"); err != nil {
		return nil, err
	}

	return m.rowsFor(table), nil
}

// Close marks the source closed
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// Closed reports whether Close was called
func (m *MockSource) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.closed
}

// GetCallCount returns the number of times a method was called
func (m *MockSource) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[method]
}

// ResetCallCounts resets all call counters
func (m *MockSource) ResetCallCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts = make(map[string]int)
}

func (m *MockSource) rowsFor(table string) []schema.ColumnRow {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []schema.ColumnRow
	for _, row := range m.rows {
		if table == "" || row.TableName == table {
			rows = append(rows, row)
		}
	}

	slices.SortStableFunc(rows, func(a, b schema.ColumnRow) int {
		return cmp.Or(
			cmp.Compare(a.TableName, b.TableName),
			cmp.Compare(a.OrdinalPosition, b.OrdinalPosition),
		)
	})

	return rows
}

// allTables assumes the read lock is held
func (m *MockSource) allTables() []string {
	tables := slices.Clone(m.tables)
	for _, row := range m.rows {
		tables = append(tables, row.TableName)
	}

	slices.Sort(tables)

	return slices.Compact(tables)
}

// CountingCache wraps a cache.Cache and counts reads and writes per key
type CountingCache struct {
	cache.Cache

	mu   sync.Mutex
	gets map[string]int
	sets map[string]int
	ttls map[string]time.Duration
}

// NewCountingCache wraps inner
func NewCountingCache(inner cache.Cache) *CountingCache {
	return &CountingCache{
		Cache: inner,
		gets:  make(map[string]int),
		sets:  make(map[string]int),
		ttls:  make(map[string]time.Duration),
	}
}

// Get counts and delegates
func (c *CountingCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.gets[key]++
	c.mu.Unlock()

	return c.Cache.Get(ctx, key)
}

// Set counts, records the ttl and delegates
func (c *CountingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.sets[key]++
	c.ttls[key] = ttl
	c.mu.Unlock()

	return c.Cache.Set(ctx, key, data, ttl)
}

// Gets returns how often key was read
func (c *CountingCache) Gets(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gets[key]
}

// Sets returns how often key was written
func (c *CountingCache) Sets(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sets[key]
}

// TTL returns the last ttl written for key
func (c *CountingCache) TTL(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ttls[key]
}

// Keys returns every key written, sorted
func (c *CountingCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.sets))
	for key := range c.sets {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// ErrorInjector provides systematic error injection for testing
type ErrorInjector struct {
	errors map[string]error
	after  map[string]afterN
	counts map[string]int
	mu     sync.Mutex
}

type afterN struct {
	n   int
	err error
}

// NewErrorInjector creates a new error injector
func NewErrorInjector() *ErrorInjector {
	return &ErrorInjector{
		errors: make(map[string]error),
		after:  make(map[string]afterN),
		counts: make(map[string]int),
	}
}

// InjectError configures an error to be returned for a specific key
func (e *ErrorInjector) InjectError(key string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors[key] = err
}

// InjectErrorAfterN configures an error to be returned after N successful calls
func (e *ErrorInjector) InjectErrorAfterN(key string, n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.after[key] = afterN{n: n, err: err}
}

// ShouldError counts a call for key and returns the injected error, if any
func (e *ErrorInjector) ShouldError(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counts[key]++

	if err, exists := e.errors[key]; exists {
		return err
	}

	if rule, exists := e.after[key]; exists && e.counts[key] > rule.n {
		return fmt.Errorf("call %d: %w", e.counts[key], rule.err)
	}

	return nil
}

// GetCount returns the number of times a key was checked
func (e *ErrorInjector) GetCount(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.counts[key]
}

// Reset clears all error configurations and counts
func (e *ErrorInjector) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = make(map[string]error)
	e.after = make(map[string]afterN)
	e.counts = make(map[string]int)
}
