// Package query serves filtered, paginated reads of the cropwx tables.
package query

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tigerroll/cropwx/pkg/batch/adapter/database"
	"github.com/tigerroll/cropwx/pkg/batch/support/util/exception"
)

const moduleName = "query"

// Default pagination.
const (
	DefaultLimit = 10
	DefaultMax   = 1000
)

// Params is a validated request.
type Params struct {
	// Filters maps column names to the values they must equal.
	Filters map[string]interface{}
	Offset  int
	Limit   int
}

// Page is one page of results.
type Page[T any] struct {
	// Count is the number of matching rows, regardless of the page window.
	Count   int64 `json:"count"`
	Offset  int   `json:"offset"`
	Results []T   `json:"results"`
}

// Service runs queries against the datasource named dbRef.
type Service struct {
	resolver     database.DBConnectionResolver
	dbRef        string
	defaultLimit int
	maxLimit     int
}

// NewService creates a new Service instance.
func NewService(resolver database.DBConnectionResolver, dbRef string, defaultLimit, maxLimit int) *Service {
	if maxLimit <= 0 {
		maxLimit = DefaultMax
	}
	if defaultLimit <= 0 {
		defaultLimit = min(DefaultLimit, maxLimit)
	}
	return &Service{resolver: resolver, dbRef: dbRef, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// ParseParams validates the request values against filters. Parameters that are
// neither a filter nor offset/limit are ignored, as are empty values.
func (s *Service) ParseParams(filters []Filter, values url.Values) (Params, error) {
	p := Params{Filters: map[string]interface{}{}, Limit: s.defaultLimit}

	var err error
	if p.Offset, err = nonNegative(values, "offset", 0); err != nil {
		return p, err
	}
	if p.Limit, err = nonNegative(values, "limit", s.defaultLimit); err != nil {
		return p, err
	}
	if p.Limit > s.maxLimit {
		return p, exception.NewValidationError("limit", fmt.Sprintf("limit must not exceed %d", s.maxLimit))
	}
	for _, f := range filters {
		raw := strings.TrimSpace(values.Get(f.Param))
		if raw == "" {
			continue
		}
		v, err := f.Parse(raw)
		if err != nil {
			return p, exception.NewValidationError(f.Param, fmt.Sprintf("%s %s", f.Param, err))
		}
		p.Filters[f.Column] = v
	}
	return p, nil
}

func nonNegative(values url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, exception.NewValidationError(name, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}

// Find validates values and returns the requested page of r.
func Find[T any](ctx context.Context, s *Service, r Resource[T], values url.Values) (Page[T], error) {
	p, err := s.ParseParams(r.Filters, values)
	if err != nil {
		return Page[T]{}, err
	}
	return Run(ctx, s, r, p)
}

// Run executes a validated request.
func Run[T any](ctx context.Context, s *Service, r Resource[T], p Params) (Page[T], error) {
	page := Page[T]{Offset: p.Offset, Results: []T{}}

	conn, err := s.resolver.ResolveDBConnection(ctx, s.dbRef)
	if err != nil {
		return page, exception.NewConnectionError(moduleName, fmt.Sprintf("failed to resolve database connection '%s'", s.dbRef), err)
	}
	table := r.Table.Qualified(conn.Config().UsesSchemas())

	if page.Count, err = conn.Count(ctx, table, p.Filters); err != nil {
		return page, exception.NewBatchError(moduleName, fmt.Sprintf("failed to count %s", r.Name), err)
	}
	if p.Limit == 0 || int64(p.Offset) >= page.Count {
		return page, nil
	}
	if err := conn.ExecuteQueryAdvanced(ctx, &page.Results, table, p.Filters, r.OrderBy, p.Offset, p.Limit); err != nil {
		return page, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read %s", r.Name), err)
	}
	return page, nil
}
