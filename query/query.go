// Package query implements the in-memory query engine applied to a table's
// cached records: filtering, free-text search, aggregation, multi-key
// sorting, and pagination.
//
// Execute is a pure function over the given record slice; it never mutates
// its input and has no I/O. Stages always run in the same order: filter,
// search, filtered-count capture, aggregation, sort, pagination. Options
// are JSON-serializable so they can travel over an API boundary.
package query

import (
	"time"

	"github.com/helixdata/mdkit/record"
)

// Operator is a filter comparison operator
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpIn         Operator = "in"
	OpNin        Operator = "nin"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpRegex      Operator = "regex"
	OpBetween    Operator = "between"
)

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// AggregationType selects the aggregation computed over the filtered set
type AggregationType string

const (
	AggCount    AggregationType = "count"
	AggSum      AggregationType = "sum"
	AggAvg      AggregationType = "avg"
	AggMin      AggregationType = "min"
	AggMax      AggregationType = "max"
	AggDistinct AggregationType = "distinct"
	AggGroup    AggregationType = "group"
)

// Filter is one AND-combined predicate. Field supports dot-path traversal
// into nested objects. String operators (contains, startsWith, endsWith,
// regex) are case-insensitive unless CaseSensitive is set.
type Filter struct {
	Field         string   `json:"field"`
	Operator      Operator `json:"operator"`
	Value         any      `json:"value,omitempty"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
}

// Search is an optional free-text substring match. With no Fields it scans
// every top-level field of every record, so callers should name Fields for
// large tables.
type Search struct {
	Query         string   `json:"query"`
	Fields        []string `json:"fields,omitempty"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
}

// SortKey is one key of a stable multi-key sort
type SortKey struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Pagination selects one 1-based page of the filtered set
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Aggregation describes a computation over the filtered set. GroupBy is
// required for the group type.
type Aggregation struct {
	Type    AggregationType `json:"type"`
	Field   string          `json:"field"`
	GroupBy string          `json:"groupBy,omitempty"`
}

// Options is the serializable query request shape
type Options struct {
	Filters      []Filter     `json:"filters,omitempty"`
	Search       *Search      `json:"search,omitempty"`
	Sort         []SortKey    `json:"sort,omitempty"`
	Pagination   *Pagination  `json:"pagination,omitempty"`
	Aggregation  *Aggregation `json:"aggregation,omitempty"`
	IncludeStats bool         `json:"includeStats,omitempty"`
}

// Group is one bucket of a group aggregation
type Group struct {
	Key   any             `json:"key"`
	Count int             `json:"count"`
	Items []record.Record `json:"items"`
}

// AggregationResult carries the outcome of the requested aggregation.
// Value holds count/sum/avg/min/max; Values holds distinct; Groups holds
// group buckets in first-encountered order.
type AggregationResult struct {
	Type   AggregationType `json:"type"`
	Field  string          `json:"field"`
	Value  float64         `json:"value"`
	Values []any           `json:"values,omitempty"`
	Groups []Group         `json:"groups,omitempty"`
}

// Stats reports which stages ran and over how many records
type Stats struct {
	TotalRecords    int  `json:"totalRecords"`
	FilteredRecords int  `json:"filteredRecords"`
	FiltersApplied  int  `json:"filtersApplied"`
	SearchApplied   bool `json:"searchApplied"`
	SortApplied     bool `json:"sortApplied"`
	Aggregated      bool `json:"aggregated"`
}

// Result is the query envelope. Page, PageSize and HasNextPage are set only
// when pagination was requested; Aggregation and Stats only when requested.
// Data may alias the input slice; callers must treat it as read-only.
type Result struct {
	Data          []record.Record    `json:"data"`
	TotalCount    int                `json:"totalCount"`
	FilteredCount int                `json:"filteredCount"`
	Page          *int               `json:"page,omitempty"`
	PageSize      *int               `json:"pageSize,omitempty"`
	HasNextPage   *bool              `json:"hasNextPage,omitempty"`
	Aggregation   *AggregationResult `json:"aggregation,omitempty"`
	Stats         *Stats             `json:"stats,omitempty"`
	ExecutionTime time.Duration      `json:"executionTime"`
}

// Validation is the outcome of checking Options before execution
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
