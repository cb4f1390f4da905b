// Package scoring turns farm assessment answers into a profile and ranked recommendations.
// Every function here is pure: identical input always yields identical output.
package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"greenhouse.org/growersplatform/pkg/apperror"
)

const (
	StrengthThreshold    = 70
	ImprovementThreshold = 50

	// answers scoring at or above this share of the maximum produce no recommendation
	adequateScore = 0.75
	focusBoost    = 10
)

// Answer is a single response. Clients may send strings, numbers or booleans.
type Answer string

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Answer(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*a = Answer(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		if v {
			*a = "yes"
		} else {
			*a = "no"
		}
		return nil
	}
	return fmt.Errorf("answer must be a string, number or boolean")
}

// Responses maps question id to answer.
type Responses map[string]Answer

type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Answered int    `json:"answered"`
}

type Profile struct {
	OverallScore     int             `json:"overall_score"`
	CategoryScores   []CategoryScore `json:"category_scores"`
	Strengths        []string        `json:"strengths"`
	ImprovementAreas []string        `json:"improvement_areas"`
}

type Recommendation struct {
	Category   string `json:"category"`
	QuestionID string `json:"question_id"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Priority   int    `json:"priority"`
}

// Validate rejects empty submissions, unknown question ids and out-of-range answers.
func Validate(r Responses) error {
	if len(r) == 0 {
		return fmt.Errorf("at least one question must be answered: %w", apperror.ErrInvalidInput)
	}
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		q, ok := questionIndex[id]
		if !ok {
			return fmt.Errorf("unknown question %q: %w", id, apperror.ErrInvalidInput)
		}
		if _, err := answerScore(q, r[id]); err != nil {
			return fmt.Errorf("question %q: %v: %w", id, err, apperror.ErrInvalidInput)
		}
	}
	return nil
}

// CalculateFarmProfile scores each answered category from 0 to 100 as the weighted mean of its
// answers. Unanswered categories are left out. Invalid answers are ignored; call Validate first.
func CalculateFarmProfile(r Responses) Profile {
	p := Profile{
		CategoryScores:   []CategoryScore{},
		Strengths:        []string{},
		ImprovementAreas: []string{},
	}

	var totalWeighted, totalWeight float64
	for _, c := range categories {
		var weighted, weight float64
		answered := 0
		for i := range questions {
			q := &questions[i]
			if q.Category != c.ID {
				continue
			}
			a, ok := r[q.ID]
			if !ok {
				continue
			}
			s, err := answerScore(q, a)
			if err != nil {
				continue
			}
			weighted += s * q.Weight
			weight += q.Weight
			answered++
		}
		if answered == 0 {
			continue
		}

		score := percent(weighted / weight)
		p.CategoryScores = append(p.CategoryScores, CategoryScore{Category: c.ID, Score: score, Answered: answered})
		switch {
		case score >= StrengthThreshold:
			p.Strengths = append(p.Strengths, c.ID)
		case score < ImprovementThreshold:
			p.ImprovementAreas = append(p.ImprovementAreas, c.ID)
		}
		totalWeighted += weighted
		totalWeight += weight
	}

	if totalWeight > 0 {
		p.OverallScore = percent(totalWeighted / totalWeight)
	}
	return p
}

// GenerateRecommendations suggests the advice of every answered question below the adequate
// level. Priority is the answer's gap times the question weight, scaled to 0-100, plus a boost
// for the profile's improvement areas. The result is sorted by priority descending; ties keep
// question bank order.
func GenerateRecommendations(p Profile, r Responses) []Recommendation {
	focus := make(map[string]bool, len(p.ImprovementAreas))
	for _, c := range p.ImprovementAreas {
		focus[c] = true
	}

	recs := []Recommendation{}
	for i := range questions {
		q := &questions[i]
		a, ok := r[q.ID]
		if !ok {
			continue
		}
		s, err := answerScore(q, a)
		if err != nil || s >= adequateScore {
			continue
		}

		priority := int(math.Round((1 - s) * q.Weight / maxWeight * 100))
		if focus[q.Category] {
			priority += focusBoost
		}
		if priority > 100 {
			priority = 100
		}
		recs = append(recs, Recommendation{
			Category:   q.Category,
			QuestionID: q.ID,
			Title:      q.Advice.Title,
			Detail:     q.Advice.Detail,
			Priority:   priority,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority > recs[j].Priority })
	return recs
}

// answerScore normalises an answer to [0, 1].
func answerScore(q *Question, a Answer) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(string(a)))
	switch q.Kind {
	case KindScale:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			return 0, fmt.Errorf("answer %q must be a whole number from 1 to 5", a)
		}
		return float64(n-1) / 4, nil
	case KindYesNo:
		switch v {
		case "yes", "true":
			return 1, nil
		case "no", "false":
			return 0, nil
		}
		return 0, fmt.Errorf("answer %q must be yes or no", a)
	case KindChoice:
		for _, o := range q.Options {
			if o.Value == v {
				return o.Score, nil
			}
		}
		return 0, fmt.Errorf("answer %q is not one of the options", a)
	}
	return 0, fmt.Errorf("unsupported question kind %q", q.Kind)
}

func percent(f float64) int {
	return int(math.Round(f * 100))
}
