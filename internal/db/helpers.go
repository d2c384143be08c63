package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction; fn's error rolls back.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	if db == nil {
		return fmt.Errorf("db not available")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// NullIfEmpty helps store optional strings without wiping existing data.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Placeholders returns "?,?,?" for n args.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// JoinSeats renders seat numbers the way they are stored in bookings.seats.
func JoinSeats(seats []int) string {
	parts := make([]string, 0, len(seats))
	for _, s := range seats {
		parts = append(parts, strconv.Itoa(s))
	}
	return strings.Join(parts, ",")
}

// SplitSeats parses a stored comma list, skipping junk entries.
func SplitSeats(raw string) []int {
	out := []int{}
	for _, p := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}
