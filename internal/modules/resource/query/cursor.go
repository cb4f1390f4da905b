package query

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"greenhouse.org/growersplatform/pkg/apperror"
)

// Cursor marks the last row of a page: its sort values (as Postgres text) and its id.
type Cursor struct {
	Sort SortKey   `json:"s"`
	Keys []string  `json:"k"`
	ID   uuid.UUID `json:"id"`
}

func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor validates token against the sort in effect. Any mismatch is ErrInvalidCursor.
func DecodeCursor(token string, sort SortKey, terms []sortTerm) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("not base64: %w", apperror.ErrInvalidCursor)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var c Cursor
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", apperror.ErrInvalidCursor)
	}
	if c.Sort != sort {
		return nil, fmt.Errorf("cursor was issued for sort %q: %w", c.Sort, apperror.ErrInvalidCursor)
	}
	if c.ID == uuid.Nil {
		return nil, fmt.Errorf("missing id: %w", apperror.ErrInvalidCursor)
	}
	if len(c.Keys) != len(terms) {
		return nil, fmt.Errorf("expected %d sort values, got %d: %w", len(terms), len(c.Keys), apperror.ErrInvalidCursor)
	}
	for i, t := range terms {
		if !validValue(t.Kind, c.Keys[i]) {
			return nil, fmt.Errorf("sort value %d is not a valid %s: %w", i, t.Kind.sqlType(), apperror.ErrInvalidCursor)
		}
	}
	return &c, nil
}

// Postgres renders timestamptz::text as e.g. "2026-03-01 10:00:00.123456+00".
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07:00:00",
	time.RFC3339Nano,
}

func validValue(k valueKind, v string) bool {
	switch k {
	case kindInt:
		_, err := strconv.ParseInt(v, 10, 32)
		return err == nil
	case kindNumeric:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	case kindDate:
		_, err := time.Parse("2006-01-02", v)
		return err == nil
	case kindTime:
		for _, layout := range timestampLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return true
			}
		}
		return false
	case kindUUID:
		_, err := uuid.Parse(v)
		return err == nil
	}
	return true
}
