package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"greenhouse.org/growersplatform/internal/entity"
	"greenhouse.org/growersplatform/pkg/apperror"
)

// Env carries the values predicates may depend on besides the filters themselves.
type Env struct {
	Today time.Time
}

func (e Env) today() string {
	return e.Today.Format("2006-01-02")
}

// Facets is the typed filter set for one resource type.
type Facets interface {
	Predicates(env Env) []Predicate
}

// Common filters apply to every resource type.
type Common struct {
	HideExpired bool
}

func (c Common) predicates(env Env) []Predicate {
	if !c.HideExpired {
		return nil
	}
	return []Predicate{notExpired(env.today())}
}

type GrantFacets struct {
	Common
	AmountMin  *float64
	AmountMax  *float64
	FocusAreas []string
	OrgTypes   []string
	Regions    []string
	Status     string
	Agency     string
}

func (f GrantFacets) Predicates(env Env) []Predicate {
	preds := f.Common.predicates(env)
	if f.AmountMin != nil {
		preds = append(preds, Predicate{SQL: numericOf(keyAwardMax) + " >= ?", Args: []any{*f.AmountMin}})
	}
	if f.AmountMax != nil {
		preds = append(preds, Predicate{SQL: numericOf(keyAwardMin) + " <= ?", Args: []any{*f.AmountMax}})
	}
	if len(f.FocusAreas) > 0 {
		preds = append(preds, containsAny(keyFocusAreas, f.FocusAreas, ""))
	}
	if len(f.OrgTypes) > 0 {
		preds = append(preds, containsAny(keyEligibility, f.OrgTypes, ""))
	}
	if len(f.Regions) > 0 && !containsFold(f.Regions, allRegions) {
		preds = append(preds, containsAny(keyRegions, f.Regions, allRegions))
	}
	if f.Status != "" {
		preds = append(preds, equalsFold(keyStatus, f.Status))
	}
	if f.Agency != "" {
		preds = append(preds, equalsFold(keyAgency, f.Agency))
	}
	return preds
}

type ToolFacets struct {
	Common
	Category  string
	Cost      string
	Platforms []string
}

func (f ToolFacets) Predicates(env Env) []Predicate {
	preds := f.Common.predicates(env)
	if f.Category != "" {
		preds = append(preds, equalsFold(keyCategory, f.Category))
	}
	if f.Cost != "" {
		preds = append(preds, equalsFold(keyCost, f.Cost))
	}
	if len(f.Platforms) > 0 {
		preds = append(preds, containsAny(keyPlatforms, f.Platforms, ""))
	}
	return preds
}

type TemplateFacets struct {
	Common
	Format   string
	Category string
}

func (f TemplateFacets) Predicates(env Env) []Predicate {
	preds := f.Common.predicates(env)
	if f.Format != "" {
		preds = append(preds, equalsFold(keyFormat, f.Format))
	}
	if f.Category != "" {
		preds = append(preds, equalsFold(keyCategory, f.Category))
	}
	return preds
}

type LearningFacets struct {
	Common
	Provider string
	Format   string
	Level    string
	Cost     string
}

func (f LearningFacets) Predicates(env Env) []Predicate {
	preds := f.Common.predicates(env)
	for _, kv := range []struct {
		key   dataKey
		value string
	}{{keyProvider, f.Provider}, {keyFormat, f.Format}, {keyLevel, f.Level}, {keyCost, f.Cost}} {
		if kv.value != "" {
			preds = append(preds, equalsFold(kv.key, kv.value))
		}
	}
	return preds
}

type UniversityFacets struct {
	Common
	State    string
	Programs []string
}

func (f UniversityFacets) Predicates(env Env) []Predicate {
	preds := f.Common.predicates(env)
	if f.State != "" {
		preds = append(preds, equalsFold(keyState, f.State))
	}
	if len(f.Programs) > 0 {
		preds = append(preds, containsAny(keyPrograms, f.Programs, ""))
	}
	return preds
}

type OrganizationFacets struct {
	Common
	OrgType string
	State   string
	Regions []string
}

func (f OrganizationFacets) Predicates(env Env) []Predicate {
	preds := f.Common.predicates(env)
	if f.OrgType != "" {
		preds = append(preds, equalsFold(keyOrgType, f.OrgType))
	}
	if f.State != "" {
		preds = append(preds, equalsFold(keyState, f.State))
	}
	if len(f.Regions) > 0 && !containsFold(f.Regions, allRegions) {
		preds = append(preds, containsAny(keyRegions, f.Regions, allRegions))
	}
	return preds
}

// NewsFacets serves both bulletins and industry_news.
type NewsFacets struct {
	Common
	Source string
	Since  *time.Time
}

func (f NewsFacets) Predicates(env Env) []Predicate {
	preds := f.Common.predicates(env)
	if f.Source != "" {
		preds = append(preds, equalsFold(keySource, f.Source))
	}
	if f.Since != nil {
		preds = append(preds, Predicate{
			SQL:  dateOf(keyPublishedAt) + " >= CAST(? AS date)",
			Args: []any{f.Since.Format("2006-01-02")},
		})
	}
	return preds
}

// AnyFacets is used when no type is selected; only cross-type filters apply.
type AnyFacets struct {
	Common
}

func (f AnyFacets) Predicates(env Env) []Predicate {
	return f.Common.predicates(env)
}

const allRegions = "all"

// rawFilters is the decoded filters object. Values may be strings, numbers,
// booleans or arrays of those; everything is normalised to strings.
type rawFilters map[string]json.RawMessage

func decodeFilters(s string) (rawFilters, error) {
	raw := rawFilters{}
	s = strings.TrimSpace(s)
	if s == "" {
		return raw, nil
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("filters must be a JSON object: %w", apperror.ErrInvalidInput)
	}
	return raw, nil
}

func (r rawFilters) str(key string) (string, error) {
	msg, ok := r[key]
	if !ok {
		return "", nil
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return "", fmt.Errorf("filter %s: %w", key, apperror.ErrInvalidInput)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("filter %s: list items must be strings: %w", key, apperror.ErrInvalidInput)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	}
	return "", fmt.Errorf("filter %s: unsupported value: %w", key, apperror.ErrInvalidInput)
}

func (r rawFilters) list(key string) ([]string, error) {
	s, err := r.str(key)
	if err != nil || s == "" {
		return nil, err
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

func (r rawFilters) boolean(key string) (bool, error) {
	s, err := r.str(key)
	if err != nil || s == "" {
		return false, err
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("filter %s must be true or false: %w", key, apperror.ErrInvalidInput)
	}
	return b, nil
}

func (r rawFilters) amount(key string) (*float64, error) {
	s, err := r.str(key)
	if err != nil || s == "" {
		return nil, err
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("filter %s must be a non-negative number: %w", key, apperror.ErrInvalidInput)
	}
	return &v, nil
}

func (r rawFilters) date(key string) (*time.Time, error) {
	s, err := r.str(key)
	if err != nil || s == "" {
		return nil, err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("filter %s must be a YYYY-MM-DD date: %w", key, apperror.ErrInvalidInput)
	}
	return &t, nil
}

func (r rawFilters) oneOf(key string, allowed ...string) (string, error) {
	s, err := r.str(key)
	if err != nil || s == "" {
		return "", err
	}
	for _, a := range allowed {
		if strings.EqualFold(a, s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("filter %s must be one of %s: %w", key, strings.Join(allowed, ", "), apperror.ErrInvalidInput)
}

// parseFacets picks the facet variant for t. Keys it does not know are ignored.
func parseFacets(t *entity.ResourceType, raw rawFilters) (Facets, error) {
	p := facetParser{raw: raw}
	common := Common{HideExpired: p.boolean("hideExpired")}

	var f Facets
	if t == nil {
		f = AnyFacets{Common: common}
		return f, p.err
	}

	switch *t {
	case entity.ResourceGrants:
		g := GrantFacets{
			Common:     common,
			AmountMin:  p.amount("amountMin"),
			AmountMax:  p.amount("amountMax"),
			FocusAreas: p.list("focusAreas"),
			OrgTypes:   p.list("orgTypes"),
			Regions:    p.list("regions"),
			Status:     p.str("status"),
			Agency:     p.str("agency"),
		}
		if p.err == nil && g.AmountMin != nil && g.AmountMax != nil && *g.AmountMin > *g.AmountMax {
			p.err = fmt.Errorf("amountMin cannot exceed amountMax: %w", apperror.ErrInvalidInput)
		}
		f = g
	case entity.ResourceTools:
		f = ToolFacets{
			Common:    common,
			Category:  p.str("category"),
			Cost:      p.oneOf("cost", "free", "freemium", "paid"),
			Platforms: p.list("platforms"),
		}
	case entity.ResourceTemplates:
		f = TemplateFacets{Common: common, Format: p.str("format"), Category: p.str("category")}
	case entity.ResourceLearning:
		f = LearningFacets{
			Common:   common,
			Provider: p.str("provider"),
			Format:   p.str("format"),
			Level:    p.oneOf("level", "beginner", "intermediate", "advanced"),
			Cost:     p.oneOf("cost", "free", "freemium", "paid"),
		}
	case entity.ResourceUniversities:
		f = UniversityFacets{Common: common, State: p.str("state"), Programs: p.list("programs")}
	case entity.ResourceOrganizations:
		f = OrganizationFacets{Common: common, OrgType: p.str("orgType"), State: p.str("state"), Regions: p.list("regions")}
	case entity.ResourceBulletins, entity.ResourceIndustryNews:
		f = NewsFacets{Common: common, Source: p.str("source"), Since: p.date("since")}
	default:
		return nil, fmt.Errorf("unknown resource type %q: %w", *t, apperror.ErrInvalidInput)
	}
	return f, p.err
}

// facetParser keeps the first error so variants read as plain struct literals.
type facetParser struct {
	raw rawFilters
	err error
}

func (p *facetParser) keep(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}

func (p *facetParser) str(key string) string {
	v, err := p.raw.str(key)
	p.keep(err)
	return v
}

func (p *facetParser) list(key string) []string {
	v, err := p.raw.list(key)
	p.keep(err)
	return v
}

func (p *facetParser) boolean(key string) bool {
	v, err := p.raw.boolean(key)
	p.keep(err)
	return v
}

func (p *facetParser) amount(key string) *float64 {
	v, err := p.raw.amount(key)
	p.keep(err)
	return v
}

func (p *facetParser) date(key string) *time.Time {
	v, err := p.raw.date(key)
	p.keep(err)
	return v
}

func (p *facetParser) oneOf(key string, allowed ...string) string {
	v, err := p.raw.oneOf(key, allowed...)
	p.keep(err)
	return v
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
