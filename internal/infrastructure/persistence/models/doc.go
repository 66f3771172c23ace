// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// domain type with ToDomain / FromDomain.
//
// Structure:
//   - base.go: shared columns (id, timestamps, version, company scoping)
//   - finance.go: obligations, payment events, cash accounts
//   - trade.go: sales, withdrawal events, quotes
//   - identity.go: users
//   - operation.go: idempotency operation log
package models
