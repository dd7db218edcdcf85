// Package store persists Courtside's identity graph and token rows in SQLite.
package store

import "database/sql"

// Queryer is satisfied by *sql.DB and *sql.Tx, so store methods can run
// standalone or inside a caller-managed transaction.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
