// internal/common/query/query.go
// Translates request query parameters (filters, sort, field selection,
// pagination) into SQL fragments against a per-entity column whitelist.

package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultLimit caps a page when the caller does not pass one
	DefaultLimit = 100
	// MaxLimit is the hard per-page ceiling
	MaxLimit = 500
)

// Op is a comparison operator taken from a bracketed filter suffix,
// e.g. createdAt[gte]=2024-01-01
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

var opSuffixes = map[string]Op{
	"ne":  OpNe,
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
}

// Keys that carry pagination/shape information and never become filters.
var reserved = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
	"q":      true,
	"media":  true,
}

// Filter is a single field comparison
type Filter struct {
	Field string
	Op    Op
	Value string
}

// SortField is one element of a sort specification
type SortField struct {
	Field string
	Desc  bool
}

// Options is a parsed, store-agnostic query description. Parsing the
// same values always yields the same Options (filters are ordered by
// field name).
type Options struct {
	Filters []Filter
	Sorts   []SortField
	Fields  []string
	Exclude bool
	Page    int
	Limit   int
}

// Parse reads pagination, sort, field selection and filter parameters
// from a URL query. Unknown or malformed values fall back to defaults,
// never to an error.
func Parse(values url.Values) *Options {
	opts := &Options{Page: 1, Limit: DefaultLimit}

	if p, err := strconv.Atoi(values.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(values.Get("limit")); err == nil && l > 0 {
		if l > MaxLimit {
			l = MaxLimit
		}
		opts.Limit = l
	}

	if s := values.Get("sort"); s != "" {
		for _, field := range strings.Split(s, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			sf := SortField{Field: field}
			if strings.HasPrefix(field, "-") {
				sf.Field = field[1:]
				sf.Desc = true
			}
			opts.Sorts = append(opts.Sorts, sf)
		}
	}

	if f := values.Get("fields"); f != "" {
		for _, field := range strings.Split(f, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			if strings.HasPrefix(field, "-") {
				opts.Exclude = true
				field = field[1:]
			}
			opts.Fields = append(opts.Fields, field)
		}
	}

	// Stable filter order regardless of map iteration
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field, op := splitOperator(key)
		if reserved[field] {
			continue
		}
		for _, value := range values[key] {
			opts.Filters = append(opts.Filters, Filter{Field: field, Op: op, Value: value})
		}
	}

	return opts
}

// splitOperator separates "field[gte]" into field and operator.
// A missing or unknown suffix means equality.
func splitOperator(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	field := key[:open]
	if op, ok := opSuffixes[key[open+1:len(key)-1]]; ok {
		return field, op
	}
	return field, OpEq
}

// Where renders the filters as "AND col op $n" fragments using the
// column whitelist. Fields absent from the whitelist are skipped.
// next is the first placeholder index to use; the updated index is
// returned alongside the accumulated arguments.
func (o *Options) Where(columns map[string]string, next int) (string, []interface{}, int) {
	var sb strings.Builder
	var args []interface{}
	for _, f := range o.Filters {
		col, ok := columns[f.Field]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, " AND %s %s $%d", col, f.Op, next)
		args = append(args, f.Value)
		next++
	}
	return sb.String(), args, next
}

// OrderBy renders an ORDER BY clause from the sort specification,
// skipping non-whitelisted fields. fallback is used when nothing
// usable was requested, e.g. "created_at DESC".
func (o *Options) OrderBy(columns map[string]string, fallback string) string {
	var parts []string
	for _, s := range o.Sorts {
		col, ok := columns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// Columns resolves the field-selection list against the whitelist.
// Inclusion keeps the named fields, exclusion removes them from the
// defaults; an empty or fully-unknown selection returns the defaults.
func (o *Options) Columns(columns map[string]string, defaults []string) []string {
	if len(o.Fields) == 0 {
		return defaults
	}

	if o.Exclude {
		drop := make(map[string]bool, len(o.Fields))
		for _, f := range o.Fields {
			if col, ok := columns[f]; ok {
				drop[col] = true
			}
		}
		var kept []string
		for _, col := range defaults {
			if !drop[col] {
				kept = append(kept, col)
			}
		}
		if len(kept) == 0 {
			return defaults
		}
		return kept
	}

	var selected []string
	for _, f := range o.Fields {
		if col, ok := columns[f]; ok {
			selected = append(selected, col)
		}
	}
	if len(selected) == 0 {
		return defaults
	}
	return selected
}

// LimitOffset converts 1-based page/limit into a skip/take window.
// Pages past the end simply produce an offset past the last row.
func (o *Options) LimitOffset() (int, int) {
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	page := o.Page
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
