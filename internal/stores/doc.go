// Package stores provides the PostgreSQL persistence for users and refresh tokens.
//
// # Design
//
// Repositories run plain SQL over [DBTX], which both *sql.DB and *sql.Tx satisfy, with
// the pgx stdlib driver underneath. Unique violations (SQLSTATE 23505) map to the domain
// duplicate errors; a missing row maps to the domain not-found error; every other
// database error is wrapped and returned as an infrastructure failure. The schema lives
// in embedded goose migrations applied by [Migrate].
//
// [MemoryUsers] and [MemoryRefreshTokens] implement the same contracts in process memory
// for development runs and tests.
//
// # Architecture boundaries
//
// This package owns SQL and schema only. It does NOT hash passwords, generate token
// strings, or decide validity beyond the expires > now predicate it is handed.
//
// # What this package must NOT do
//
//   - Import the root dia package or internal/flows.
//   - Read the database clock for validity checks.
package stores
