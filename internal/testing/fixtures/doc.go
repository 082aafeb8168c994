// Package fixtures inserts job postings and digest subscribers for tests
// that run against a real database (see package testdb).
//
//	tdb := testdb.New(t)
//	f := fixtures.New(tdb.DB)
//	stale := f.CreatePosting(t, fixtures.Active(), fixtures.CreatedAgo(40*24*time.Hour))
package fixtures
