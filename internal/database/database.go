// Package database provides the data access layer for the ContractsOnly API.
//
// The Database interface hides the driver behind three query methods:
//   - Query: returns every row as a column map
//   - QueryOne: returns the first row or ErrNotFound
//   - Execute: runs a mutation and discards rows
//
// Queries use named parameters (@name) bound from the vars map.
//
// Use errors.Is() to check error types:
//
//	if errors.Is(err, database.ErrNotFound) {
//	    // Handle missing record
//	}
package database

import (
	"context"
	"errors"
	"time"
)

// Standard errors for database operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique constraint violation (e.g., duplicate posting URL).
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure (syntax error, invalid reference, etc.).
	ErrQuery = errors.New("query error")
)

// Row is a single result row keyed by column name
type Row = map[string]interface{}

// Database defines the interface for database operations
type Database interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns all rows
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]Row, error)

	// QueryOne executes a query and returns the first row
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (Row, error)

	// Execute runs a query without returning results (for mutations)
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Config holds database configuration
type Config struct {
	DSN           string
	AutoMigrate   bool
	MaxOpenConns  int
	MaxIdleConns  int
	SlowThreshold time.Duration
}
