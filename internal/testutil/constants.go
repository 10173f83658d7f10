// Package testutil provides common constants, fixtures and mocks for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second

	// TestCacheDays is a typical per-environment cache lifetime
	TestCacheDays = 7

	// TestWorkers is the goroutine count for concurrency tests
	TestWorkers = 8
)

// Fixture table names
const (
	TestUsersTable = "users"
	TestPostsTable = "posts"
)
