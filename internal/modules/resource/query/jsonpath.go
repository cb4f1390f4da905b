package query

import (
	"fmt"
	"strings"
)

// Predicate is a parameterized SQL fragment. SQL never contains user input;
// every value travels in Args.
type Predicate struct {
	SQL  string
	Args []any
}

// dataKey names a conventional attribute of resources.data. Only the constants
// below are ever spliced into SQL.
type dataKey string

const (
	keyAwardMin     dataKey = "award_min"
	keyAwardMax     dataKey = "award_max"
	keyDueDate      dataKey = "due_date"
	keyStatus       dataKey = "status"
	keyEligibility  dataKey = "eligibility"
	keyFocusAreas   dataKey = "focus_areas"
	keyRegions      dataKey = "regions"
	keyAgency       dataKey = "agency"
	keyCategory     dataKey = "category"
	keyCost         dataKey = "cost"
	keyPlatforms    dataKey = "platforms"
	keyFormat       dataKey = "format"
	keyProvider     dataKey = "provider"
	keyLevel        dataKey = "level"
	keyState        dataKey = "state"
	keyPrograms     dataKey = "programs"
	keyOrgType      dataKey = "org_type"
	keySource       dataKey = "source"
	keyPublishedAt  dataKey = "published_at"
	keyQualityScore dataKey = "quality_score"
)

// Regex literals avoid '?' because the ORM treats it as a bind marker.
const (
	numericPattern = `'^-{0,1}[0-9]+(\.[0-9]+){0,1}$'`
	datePattern    = `'^[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])'`
)

// rollingStatuses never expire under hideExpired.
var rollingStatuses = []string{"rolling", "recurring", "ongoing", "open"}

func textOf(k dataKey) string {
	return fmt.Sprintf("(data->>'%s')", k)
}

func lowerTextOf(k dataKey) string {
	return fmt.Sprintf("lower(data->>'%s')", k)
}

// numericOf yields NULL when the attribute is missing or not a plain number.
func numericOf(k dataKey) string {
	return fmt.Sprintf("(CASE WHEN data->>'%[1]s' ~ %[2]s THEN (data->>'%[1]s')::numeric END)", k, numericPattern)
}

// dateOf yields NULL when the attribute is missing or does not start with YYYY-MM-DD.
func dateOf(k dataKey) string {
	return fmt.Sprintf("(CASE WHEN data->>'%[1]s' ~ %[2]s THEN substring(data->>'%[1]s' from 1 for 10)::date END)", k, datePattern)
}

// arrayOf yields an empty array unless the attribute is a JSON array.
func arrayOf(k dataKey) string {
	return fmt.Sprintf("(CASE WHEN jsonb_typeof(data->'%[1]s') = 'array' THEN data->'%[1]s' ELSE '[]'::jsonb END)", k)
}

const tagsArray = "(CASE WHEN jsonb_typeof(tags) = 'array' THEN tags ELSE '[]'::jsonb END)"

func equalsFold(k dataKey, value string) Predicate {
	return Predicate{SQL: lowerTextOf(k) + " = ?", Args: []any{strings.ToLower(value)}}
}

// containsAny matches when the array attribute shares at least one element with values.
// A non-empty extra literal (a sentinel such as 'all') also matches.
func containsAny(k dataKey, values []string, sentinel string) Predicate {
	cond := "lower(elem.v) IN ?"
	if sentinel != "" {
		cond = fmt.Sprintf("(lower(elem.v) IN ? OR lower(elem.v) = '%s')", sentinel)
	}
	return Predicate{
		SQL:  fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements_text(%s) AS elem(v) WHERE %s)", arrayOf(k), cond),
		Args: []any{lowerAll(values)},
	}
}

func notExpired(today string) Predicate {
	due := dateOf(keyDueDate)
	return Predicate{
		SQL: fmt.Sprintf("(%s IS NULL OR %s IN ? OR %s >= CAST(? AS date))",
			due, lowerTextOf(keyStatus), due),
		Args: []any{rollingStatuses, today},
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}

// likePattern wraps q for a case-insensitive substring match with LIKE wildcards escaped.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func textSearch(q string) Predicate {
	pattern := likePattern(q)
	return Predicate{
		SQL: "(title ILIKE ? OR COALESCE(summary, '') ILIKE ? OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(" +
			tagsArray + ") AS tag(v) WHERE tag.v ILIKE ?))",
		Args: []any{pattern, pattern, pattern},
	}
}

// And joins predicates into one; an empty list yields TRUE.
func And(preds []Predicate) Predicate {
	if len(preds) == 0 {
		return Predicate{SQL: "TRUE"}
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		parts = append(parts, "("+p.SQL+")")
		args = append(args, p.Args...)
	}
	return Predicate{SQL: strings.Join(parts, " AND "), Args: args}
}
