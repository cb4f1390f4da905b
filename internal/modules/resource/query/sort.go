package query

import (
	"fmt"
	"strings"
)

type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortTitle     SortKey = "title"
	SortNewest    SortKey = "newest"
	SortQuality   SortKey = "quality"
	SortDueDate   SortKey = "dueDate"
	SortAgency    SortKey = "agency"
	SortAmount    SortKey = "amount"
	SortProvider  SortKey = "provider"
	SortCost      SortKey = "cost"
)

var sortKeys = []SortKey{
	SortRelevance, SortTitle, SortNewest, SortQuality, SortDueDate,
	SortAgency, SortAmount, SortProvider, SortCost,
}

func parseSort(s string) (SortKey, bool) {
	if s == "" {
		return SortRelevance, true
	}
	for _, k := range sortKeys {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// valueKind drives how cursor values are validated and cast back in SQL.
type valueKind int

const (
	kindText valueKind = iota
	kindInt
	kindNumeric
	kindDate
	kindTime
	kindUUID
)

func (k valueKind) sqlType() string {
	switch k {
	case kindInt:
		return "integer"
	case kindNumeric:
		return "numeric"
	case kindDate:
		return "date"
	case kindTime:
		return "timestamptz"
	case kindUUID:
		return "uuid"
	}
	return "text"
}

// sortTerm is one ORDER BY component. Expr is never NULL so keyset
// comparisons stay total.
type sortTerm struct {
	Expr string
	Args []any
	Kind valueKind
	Desc bool
}

var idTerm = sortTerm{Expr: "id", Kind: kindUUID}

func missingFlag(expr string) string {
	return fmt.Sprintf("(CASE WHEN %s IS NULL THEN 1 ELSE 0 END)", expr)
}

// sortTerms returns the ordering for key. The primary key is appended by the caller.
func sortTerms(key SortKey, q string) []sortTerm {
	newest := sortTerm{Expr: "created_at", Kind: kindTime, Desc: true}

	switch key {
	case SortRelevance:
		if q == "" {
			return []sortTerm{newest}
		}
		pattern := likePattern(q)
		rank := sortTerm{
			Expr: "(CASE WHEN lower(title) = ? THEN 3 WHEN title ILIKE ? THEN 2 WHEN COALESCE(summary, '') ILIKE ? THEN 1 ELSE 0 END)",
			Args: []any{strings.ToLower(q), pattern, pattern},
			Kind: kindInt,
			Desc: true,
		}
		return []sortTerm{rank, newest}
	case SortTitle:
		return []sortTerm{{Expr: "lower(title)", Kind: kindText}}
	case SortNewest:
		return []sortTerm{newest}
	case SortQuality:
		return []sortTerm{{Expr: "COALESCE(" + numericOf(keyQualityScore) + ", 0)", Kind: kindNumeric, Desc: true}}
	case SortDueDate:
		due := dateOf(keyDueDate)
		return []sortTerm{
			{Expr: missingFlag(due), Kind: kindInt},
			{Expr: "COALESCE(" + due + ", DATE '1970-01-01')", Kind: kindDate},
		}
	case SortAgency:
		return textWithMissingLast(keyAgency)
	case SortProvider:
		return textWithMissingLast(keyProvider)
	case SortAmount:
		amount := numericOf(keyAwardMax)
		return []sortTerm{
			{Expr: missingFlag(amount), Kind: kindInt},
			{Expr: "COALESCE(" + amount + ", 0)", Kind: kindNumeric, Desc: true},
		}
	case SortCost:
		return []sortTerm{
			{Expr: "(CASE " + lowerTextOf(keyCost) + " WHEN 'free' THEN 0 WHEN 'freemium' THEN 1 WHEN 'paid' THEN 2 ELSE 3 END)", Kind: kindInt},
			{Expr: "lower(title)", Kind: kindText},
		}
	}
	return []sortTerm{newest}
}

func textWithMissingLast(k dataKey) []sortTerm {
	value := fmt.Sprintf("NULLIF(btrim(%s), '')", lowerTextOf(k))
	return []sortTerm{
		{Expr: missingFlag(value), Kind: kindInt},
		{Expr: "COALESCE(" + value + ", '')", Kind: kindText},
	}
}

func orderBy(terms []sortTerm) Predicate {
	parts := make([]string, 0, len(terms))
	var args []any
	for _, t := range terms {
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		parts = append(parts, t.Expr+" "+dir)
		args = append(args, t.Args...)
	}
	return Predicate{SQL: strings.Join(parts, ", "), Args: args}
}

// projection selects every term as text so the last row can seed the next cursor.
func projection(terms []sortTerm) Predicate {
	parts := []string{"resources.*"}
	var args []any
	for i, t := range terms {
		parts = append(parts, fmt.Sprintf("CAST(%s AS text) AS sort_k%d", t.Expr, i))
		args = append(args, t.Args...)
	}
	return Predicate{SQL: strings.Join(parts, ", "), Args: args}
}

// keyset returns rows strictly after values in the order defined by terms:
// (t0 after v0) OR (t0 = v0 AND t1 after v1) OR ...
func keyset(terms []sortTerm, values []string) Predicate {
	var ors []string
	var args []any
	for i, t := range terms {
		var ands []string
		for j := 0; j < i; j++ {
			ands = append(ands, fmt.Sprintf("%s = %s", terms[j].Expr, castParam(terms[j].Kind)))
			args = append(args, terms[j].Args...)
			args = append(args, values[j])
		}
		op := ">"
		if t.Desc {
			op = "<"
		}
		ands = append(ands, fmt.Sprintf("%s %s %s", t.Expr, op, castParam(t.Kind)))
		args = append(args, t.Args...)
		args = append(args, values[i])
		ors = append(ors, "("+strings.Join(ands, " AND ")+")")
	}
	return Predicate{SQL: strings.Join(ors, " OR "), Args: args}
}

// castParam binds the cursor value as text and lets Postgres convert it.
func castParam(k valueKind) string {
	if k == kindText {
		return "CAST(? AS text)"
	}
	return fmt.Sprintf("CAST(CAST(? AS text) AS %s)", k.sqlType())
}
