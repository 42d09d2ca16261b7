// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dakshaa-fest/pulse/internal/metrics"
)

// DefaultPageSize matches the row cap the hosted backend imposed per
// response; every full-table read pages at this size.
const DefaultPageSize = 1000

// MaxPageAttempts bounds the pagination loop so a miscounting backend can
// never spin it forever.
const MaxPageAttempts = 100

// FetchOptions controls a full-table fetch.
type FetchOptions struct {
	// PageSize defaults to DefaultPageSize.
	PageSize int

	// Filters are ANDed equality predicates, column to value.
	Filters map[string]any

	// OrderBy names the sort column; empty means storage order is
	// accepted. Descending flips the direction.
	OrderBy    string
	Descending bool
}

// Querier is the query surface the paginator needs; *pgxpool.Pool
// satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// FetchAll retrieves every matching row of a table in fixed-size pages.
// A short page terminates the loop; MaxPageAttempts caps it regardless.
// Any page failure fails the whole fetch with no partial results, so
// callers never mistake a truncated read for a complete table.
func FetchAll[T any](ctx context.Context, q Querier, table string, columns []string, opts FetchOptions) ([]T, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	start := time.Now()
	var out []T
	for attempt := 0; attempt < MaxPageAttempts; attempt++ {
		sql, args := buildPageQuery(table, columns, opts, pageSize, attempt*pageSize)

		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			metrics.DBQueryErrors.WithLabelValues("fetch_all", table).Inc()
			return nil, fmt.Errorf("fetch %s page %d: %w", table, attempt, err)
		}
		page, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
		if err != nil {
			metrics.DBQueryErrors.WithLabelValues("fetch_all", table).Inc()
			return nil, fmt.Errorf("scan %s page %d: %w", table, attempt, err)
		}

		out = append(out, page...)
		if len(page) < pageSize {
			break
		}
	}

	metrics.DBQueryDuration.WithLabelValues("fetch_all", table).Observe(time.Since(start).Seconds())
	metrics.DBRowsFetched.WithLabelValues(table).Add(float64(len(out)))
	return out, nil
}

// buildPageQuery renders one page's SELECT. Filters render in sorted
// column order so the SQL text is stable for a given option set.
func buildPageQuery(table string, columns []string, opts FetchOptions, limit, offset int) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)

	var args []any
	if len(opts.Filters) > 0 {
		cols := make([]string, 0, len(opts.Filters))
		for col := range opts.Filters {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		b.WriteString(" WHERE ")
		for i, col := range cols {
			if i > 0 {
				b.WriteString(" AND ")
			}
			args = append(args, opts.Filters[col])
			fmt.Fprintf(&b, "%s = $%d", col, len(args))
		}
	}

	if opts.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(opts.OrderBy)
		if opts.Descending {
			b.WriteString(" DESC")
		}
	}

	args = append(args, limit)
	fmt.Fprintf(&b, " LIMIT $%d", len(args))
	args = append(args, offset)
	fmt.Fprintf(&b, " OFFSET $%d", len(args))

	return b.String(), args
}
