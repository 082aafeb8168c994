// Package repository implements the data access layer for the ContractsOnly API.
//
// Each repository struct handles the queries for one table and maps rows
// onto model structs.
//
// # Repository Pattern
//
//   - Constructor function (NewXxxRepository) accepts a database.Database
//   - Queries use named parameters (@name) for every caller-supplied value
//   - NOW() is used for automatic timestamps
//   - Rows arrive as column maps and are parsed with the helpers in helpers.go
//
// # Example Usage
//
//	repo := repository.NewSubscriberRepository(db)
//	due, err := repo.ListDueForDigest(ctx, time.Now().Add(-model.DigestInterval))
package repository
