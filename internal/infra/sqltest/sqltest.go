// Package sqltest provides an in-memory infra.SQLExecutor for store tests.
package sqltest

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Row is a pgx.Row backed by a scan function. A nil scan behaves like no rows.
type Row struct {
	ScanFn func(dest ...any) error
}

func (r Row) Scan(dest ...any) error {
	if r.ScanFn == nil {
		return pgx.ErrNoRows
	}
	return r.ScanFn(dest...)
}

// ErrRow returns a row whose Scan fails with err.
func ErrRow(err error) Row {
	return Row{ScanFn: func(...any) error { return err }}
}

// Rows iterates over scan functions, one per row.
type Rows struct {
	Scans []func(dest ...any) error
	idx   int
	err   error
}

func (r *Rows) Next() bool {
	if r.idx >= len(r.Scans) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.Scans) {
		return pgx.ErrNoRows
	}
	if err := r.Scans[r.idx-1](dest...); err != nil {
		r.err = err
		return err
	}
	return nil
}

func (r *Rows) Err() error                                   { return r.err }
func (r *Rows) Close()                                       {}
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *Rows) Conn() *pgx.Conn                              { return nil }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

// Call records one statement sent to the Executor.
type Call struct {
	Query string
	Args  []any
}

// Executor routes statements to handlers by their exact text and records every call.
type Executor struct {
	ExecFn     map[string]func(args ...any) (pgconn.CommandTag, error)
	QueryRowFn map[string]func(args ...any) pgx.Row
	QueryFn    map[string]func(args ...any) (pgx.Rows, error)
	Calls      []Call
}

func NewExecutor() *Executor {
	return &Executor{
		ExecFn:     map[string]func(args ...any) (pgconn.CommandTag, error){},
		QueryRowFn: map[string]func(args ...any) pgx.Row{},
		QueryFn:    map[string]func(args ...any) (pgx.Rows, error){},
	}
}

func (e *Executor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	e.Calls = append(e.Calls, Call{Query: query, Args: args})
	if fn, ok := e.ExecFn[query]; ok {
		return fn(args...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (e *Executor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	e.Calls = append(e.Calls, Call{Query: query, Args: args})
	if fn, ok := e.QueryRowFn[query]; ok {
		return fn(args...)
	}
	return ErrRow(fmt.Errorf("unexpected query_row: %s", firstLine(query)))
}

func (e *Executor) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	e.Calls = append(e.Calls, Call{Query: query, Args: args})
	if fn, ok := e.QueryFn[query]; ok {
		return fn(args...)
	}
	return nil, fmt.Errorf("unexpected query: %s", firstLine(query))
}

// CallsTo returns the recorded calls for query.
func (e *Executor) CallsTo(query string) []Call {
	var out []Call
	for _, c := range e.Calls {
		if c.Query == query {
			out = append(out, c)
		}
	}
	return out
}

func firstLine(q string) string {
	q = strings.TrimSpace(q)
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		return q[:i]
	}
	return q
}
