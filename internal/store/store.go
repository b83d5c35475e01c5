// Package store defines the record store contract the repositories depend on
// and its implementations: an in-memory store, a PostgreSQL store and a Redis
// read-through cache that can wrap either of them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrRecordNotFound = errors.New("record not found")

// Entity names a record collection.
type Entity string

const (
	EntityTask     Entity = "task_c"
	EntityCategory Entity = "category_c"
)

// IDField is the store-assigned identity of every record.
const IDField = "Id"

// Record is a flat field-name → value map. Values are JSON-compatible; numbers
// may come back as float64 after a round trip.
type Record map[string]any

func (r Record) ID() (int64, bool) {
	return Int64(r[IDField])
}

type Order struct {
	Field string
	Desc  bool
}

type Paging struct {
	Limit  int
	Offset int
}

// Query is the field projection / ordering / paging window of a fetch.
// An empty Fields list returns every field.
type Query struct {
	Fields  []string
	OrderBy []Order
	Paging  Paging
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(q.Fields, ","))
	for _, o := range q.OrderBy {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		fmt.Fprintf(&b, "|%s:%s", o.Field, dir)
	}
	fmt.Fprintf(&b, "|%d:%d", q.Paging.Limit, q.Paging.Offset)
	return b.String()
}

// Result is the outcome for a single record of a batch mutation.
type Result struct {
	Success  bool
	Data     Record
	Message  string
	NotFound bool
}

type Response struct {
	Success bool
	Message string
	Results []Result
}

// Failed returns the first unsuccessful result, if any.
func (r Response) Failed() (Result, bool) {
	for _, res := range r.Results {
		if !res.Success {
			return res, true
		}
	}
	return Result{}, false
}

// RecordStore is the four-operation contract of a record backend.
// UpdateRecords merges the given fields into the record named by its Id.
type RecordStore interface {
	FetchRecords(ctx context.Context, entity Entity, q Query) ([]Record, error)
	GetRecordByID(ctx context.Context, entity Entity, id int64, q Query) (Record, error)
	CreateRecords(ctx context.Context, entity Entity, records []Record) (Response, error)
	UpdateRecords(ctx context.Context, entity Entity, records []Record) (Response, error)
	DeleteRecords(ctx context.Context, entity Entity, ids []int64) (Response, error)
}

// Project keeps the Id and the requested fields.
func Project(r Record, fields []string) Record {
	if len(fields) == 0 {
		return clone(r)
	}
	out := make(Record, len(fields)+1)
	if id, ok := r[IDField]; ok {
		out[IDField] = id
	}
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

func clone(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Int64 converts the numeric shapes a record value can take.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	}
	return 0, false
}

// compare orders two record values: numbers numerically, everything else by
// its string form. Missing values sort first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if x, ok := Int64(a); ok {
		if y, ok := Int64(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
