// Package query turns resource listing requests into parameterized SQL plans.
//
// Count and page queries share one predicate list, so total never drifts from
// the rows a pager can reach. Pages are keyset-based: the cursor carries the
// last row's sort values and primary key.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is the raw, untrusted request.
type Params struct {
	Type    string
	Q       string
	Filters string
	Sort    string
	Cursor  string
	Limit   int
}

type Query struct {
	Type   *entity.ResourceType
	Q      string
	Facets Facets
	Sort   SortKey
	Cursor *Cursor
	Limit  int
}

// Parse validates p. Bad enums, filter values or cursors are rejected before any SQL runs.
func Parse(p Params) (Query, error) {
	var q Query

	if t := strings.TrimSpace(p.Type); t != "" {
		rt := entity.ResourceType(t)
		if !rt.Valid() {
			return Query{}, fmt.Errorf("unknown resource type %q: %w", t, apperror.ErrInvalidInput)
		}
		q.Type = &rt
	}

	q.Q = strings.TrimSpace(p.Q)
	if len(q.Q) > 200 {
		return Query{}, fmt.Errorf("search text too long: %w", apperror.ErrInvalidInput)
	}

	sort, ok := parseSort(strings.TrimSpace(p.Sort))
	if !ok {
		return Query{}, fmt.Errorf("unknown sort %q: %w", p.Sort, apperror.ErrInvalidInput)
	}
	q.Sort = sort

	raw, err := decodeFilters(p.Filters)
	if err != nil {
		return Query{}, err
	}
	if q.Facets, err = parseFacets(q.Type, raw); err != nil {
		return Query{}, err
	}

	q.Limit = p.Limit
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	if token := strings.TrimSpace(p.Cursor); token != "" {
		if q.Cursor, err = DecodeCursor(token, q.Sort, q.terms()); err != nil {
			return Query{}, err
		}
	}

	return q, nil
}

func (q Query) terms() []sortTerm {
	return sortTerms(q.Sort, q.Q)
}

// Plan is everything a repository needs to run the count and the page query.
type Plan struct {
	Where  Predicate  // filters only; shared by count and page
	Select Predicate  // resources.* plus sort_k<i> projections
	Order  Predicate  // sort terms then id
	After  *Predicate // keyset condition, nil on the first page
	Fetch  int        // Limit + 1 to detect a following page
	Terms  int        // number of sort_k<i> columns
}

func (q Query) Plan(env Env) Plan {
	var preds []Predicate
	if q.Type != nil {
		preds = append(preds, Predicate{SQL: "type = ?", Args: []any{string(*q.Type)}})
	}
	if q.Q != "" {
		preds = append(preds, textSearch(q.Q))
	}
	if q.Facets != nil {
		preds = append(preds, q.Facets.Predicates(env)...)
	}

	terms := q.terms()
	full := append(append([]sortTerm{}, terms...), idTerm)

	plan := Plan{
		Where:  And(preds),
		Select: projection(terms),
		Order:  orderBy(full),
		Fetch:  q.Limit + 1,
		Terms:  len(terms),
	}
	if q.Cursor != nil {
		values := append(append([]string{}, q.Cursor.Keys...), q.Cursor.ID.String())
		after := keyset(full, values)
		plan.After = &after
	}
	return plan
}

// NextCursor builds the cursor for the page ending at the row with id and sort values keys.
func (q Query) NextCursor(id uuid.UUID, keys []string) string {
	return Cursor{Sort: q.Sort, Keys: keys, ID: id}.Encode()
}

// Today truncates now to a calendar date in UTC; due dates are stored without a zone.
func Today(now time.Time) Env {
	y, m, d := now.UTC().Date()
	return Env{Today: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}
