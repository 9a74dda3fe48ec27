package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Value is a tagged union over the scalar types the wire protocol and the
// DAL exchange with the store: integers, strings, booleans, doubles,
// timestamps and SQL NULL (§4.B). Query arguments and result cells are both expressed as Value so
// callers never reach for interface{} directly.
type Value struct {
	kind kind
	i    int64
	s    string
	b    bool
	f    float64
	t    time.Time
}

type kind int

const (
	kindInt kind = iota
	kindString
	kindBool
	kindDouble
	kindTime
	kindNull
)

func IntValue(v int64) Value      { return Value{kind: kindInt, i: v} }
func StringValue(v string) Value  { return Value{kind: kindString, s: v} }
func BoolValue(v bool) Value      { return Value{kind: kindBool, b: v} }
func DoubleValue(v float64) Value { return Value{kind: kindDouble, f: v} }
func TimeValue(v time.Time) Value { return Value{kind: kindTime, t: v} }
func NullValue() Value            { return Value{kind: kindNull} }

// Raw returns the Go value underlying v, suitable for passing to
// database/sql as a query argument.
func (v Value) Raw() any {
	switch v.kind {
	case kindInt:
		return v.i
	case kindString:
		return v.s
	case kindBool:
		return v.b
	case kindDouble:
		return v.f
	case kindTime:
		return v.t
	default:
		return nil
	}
}

func (v Value) Int() int64      { return v.i }
func (v Value) String() string  { return v.s }
func (v Value) Bool() bool      { return v.b }
func (v Value) Double() float64 { return v.f }
func (v Value) Time() time.Time { return v.t }
func (v Value) IsNull() bool    { return v.kind == kindNull }

// Row is a single result row, column name to Value.
type Row map[string]Value

// ExecuteResult is a sum type over the three shapes a statement can
// produce (§4.B): no rows (DDL/DML with no RETURNING), a single row
// (INSERT ... RETURNING id, scalar lookups), or multiple rows (SELECT).
type ExecuteResult struct {
	RowsAffected int64
	Rows         []Row
}

// Single returns the lone row of a single-row result, or false if the
// result was empty or held more than one row.
func (r ExecuteResult) Single() (Row, bool) {
	if len(r.Rows) != 1 {
		return nil, false
	}
	return r.Rows[0], true
}

// NotFoundError marks a query that found zero rows where the caller
// expected at least one (§4.B, §7).
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("gateway: no rows for query %q", e.Query)
}

// InternalError wraps any driver error that isn't classified as a
// connection problem or a not-found condition.
type InternalError struct {
	Query string
	Err   error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("gateway: internal error executing %q: %v", e.Query, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// classify maps a raw driver error onto the gateway's error taxonomy by
// substring match on the error text, since lib/pq and database/sql do not
// expose a single sentinel for "the network died mid-query" (§4.B).
func classify(query string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"connection", "timeout", "refused", "broken pipe", "reset by peer", "network"} {
		if strings.Contains(msg, needle) {
			return &ConnectionError{Op: "execute", Err: err}
		}
	}
	if err == sql.ErrNoRows {
		return &NotFoundError{Query: query}
	}
	return &InternalError{Query: query, Err: err}
}

// Execute runs query with args against an acquired handle and returns the
// decoded result. expectRows selects whether rows are scanned (SELECT /
// RETURNING) or only the affected-row count is reported (plain DML).
func Execute(ctx context.Context, h *Handle, query string, expectRows bool, args ...Value) (ExecuteResult, error) {
	raw := make([]any, len(args))
	for i, a := range args {
		raw[i] = a.Raw()
	}

	if !expectRows {
		res, err := h.conn.ExecContext(ctx, query, raw...)
		if err != nil {
			return ExecuteResult{}, classify(query, err)
		}
		n, _ := res.RowsAffected()
		return ExecuteResult{RowsAffected: n}, nil
	}

	rows, err := h.conn.QueryContext(ctx, query, raw...)
	if err != nil {
		return ExecuteResult{}, classify(query, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return ExecuteResult{}, classify(query, err)
	}
	if len(result.Rows) == 0 {
		return result, &NotFoundError{Query: query}
	}
	return result, nil
}

// ExecuteTransaction runs fn inside a transaction on an acquired handle,
// committing on success and rolling back on any returned error.
func ExecuteTransaction(ctx context.Context, h *Handle, fn func(tx *sql.Tx) error) error {
	tx, err := h.BeginTransaction(ctx)
	if err != nil {
		return classify("begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

func scanRows(rows *sql.Rows) (ExecuteResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return ExecuteResult{}, err
	}

	var out []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return ExecuteResult{}, err
		}

		row := make(Row, len(cols))
		for i, name := range cols {
			row[name] = toValue(raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Rows: out, RowsAffected: int64(len(out))}, nil
}

func toValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case int64:
		return IntValue(t)
	case int:
		return IntValue(int64(t))
	case float64:
		return DoubleValue(t)
	case bool:
		return BoolValue(t)
	case time.Time:
		return TimeValue(t)
	case []byte:
		return StringValue(string(t))
	case string:
		return StringValue(t)
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}
