// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/open2b/curly/module"
)

// Query is a query that selects the rows of a module.
//
// A query is a list of terms separated by '&'. A term field=value selects
// the rows with that value, order=field sorts the rows by field, -field in
// descending order, and limit=n keeps the first n rows. Fields whose values
// are all numbers are compared as numbers. An empty query selects all the
// rows.
type Query struct {
	Filters []Filter
	Order   string
	Desc    bool
	Limit   int // -1 if there is no limit.
}

// Filter selects the rows whose Field has Value.
type Filter struct {
	Field string
	Value string
}

// ParseQuery parses a query.
func ParseQuery(query string) (Query, error) {
	q := Query{Limit: -1}
	query = strings.TrimSpace(query)
	if query == "" {
		return q, nil
	}
	for _, term := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(term, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" {
			return q, fmt.Errorf("curly/store: invalid query %q", query)
		}
		switch key {
		case "order":
			q.Order, q.Desc = strings.CutPrefix(value, "-")
			if q.Order == "" {
				return q, fmt.Errorf("curly/store: invalid order in query %q", query)
			}
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return q, fmt.Errorf("curly/store: invalid limit in query %q", query)
			}
			q.Limit = n
		default:
			q.Filters = append(q.Filters, Filter{Field: key, Value: value})
		}
	}
	return q, nil
}

// apply returns the rows selected by q.
func (q Query) apply(rows []module.Fields) []module.Row {
	var selected []module.Fields
Rows:
	for _, row := range rows {
		for _, f := range q.Filters {
			if row[f.Field] != f.Value {
				continue Rows
			}
		}
		selected = append(selected, row)
	}
	if q.Order != "" {
		less := compareFunc(selected, q.Order)
		sort.SliceStable(selected, func(i, j int) bool {
			if q.Desc {
				return less(selected[j], selected[i])
			}
			return less(selected[i], selected[j])
		})
	}
	if q.Limit >= 0 && len(selected) > q.Limit {
		selected = selected[:q.Limit]
	}
	result := make([]module.Row, len(selected))
	for i, row := range selected {
		result[i] = row
	}
	return result
}

// compareFunc returns the function that compares two rows by field. The
// values are compared as decimal numbers if they are all numbers.
func compareFunc(rows []module.Fields, field string) func(a, b module.Fields) bool {
	numbers := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		v := row[field]
		d, err := decimal.NewFromString(v)
		if err != nil {
			numbers = nil
			break
		}
		numbers[v] = d
	}
	if numbers != nil {
		return func(a, b module.Fields) bool {
			return numbers[a[field]].LessThan(numbers[b[field]])
		}
	}
	return func(a, b module.Fields) bool {
		return a[field] < b[field]
	}
}
