package resource

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"greenhouse.org/growersplatform/internal/modules/resource/dto"
	"greenhouse.org/growersplatform/pkg/apperror"
	"github.com/xuri/excelize/v2"
)

const maxImportRows = 5000

// listColumns are split on ';' into JSON arrays when imported as extra columns.
var listColumns = map[string]bool{
	"focus_areas": true, "eligibility": true, "regions": true, "platforms": true, "programs": true,
}

// Import reads a CSV or XLSX sheet whose header names the columns. type and title
// are required; url, summary, tags (';' separated) and data (a JSON object) are
// optional; any other column becomes a data attribute.
func (s *resourceService) Import(ctx context.Context, fileName string, r io.Reader) (*dto.ImportResult, error) {
	rows, err := readSheet(fileName, r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet has no data rows: %w", apperror.ErrInvalidInput)
	}
	if len(rows)-1 > maxImportRows {
		return nil, fmt.Errorf("at most %d rows per import: %w", maxImportRows, apperror.ErrInvalidInput)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if !contains(header, "type") || !contains(header, "title") {
		return nil, fmt.Errorf("header must include type and title: %w", apperror.ErrInvalidInput)
	}

	result := &dto.ImportResult{Errors: []dto.ImportRowError{}}
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}

		input, err := rowToInput(header, row)
		if err == nil {
			var created bool
			created, err = s.CreateIfAbsent(ctx, input)
			if err == nil && !created {
				result.Skipped++
				continue
			}
		}
		if err != nil {
			if !errors.Is(err, apperror.ErrInvalidInput) {
				return result, fmt.Errorf("import row %d: %w", line, err)
			}
			result.Errors = append(result.Errors, dto.ImportRowError{Row: line, Message: err.Error()})
			continue
		}
		result.Created++
	}

	s.log.Info("resource import finished", "file", fileName, "created", result.Created, "skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}

func readSheet(fileName string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parse csv: %v: %w", err, apperror.ErrInvalidInput)
		}
		return rows, nil
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %v: %w", err, apperror.ErrInvalidInput)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("read xlsx: %v: %w", err, apperror.ErrInvalidInput)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("import accepts .csv or .xlsx files: %w", apperror.ErrInvalidInput)
}

func rowToInput(header, row []string) (dto.ResourceInput, error) {
	input := dto.ResourceInput{Data: map[string]any{}}
	for i, col := range header {
		if i >= len(row) || col == "" {
			continue
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			continue
		}
		switch col {
		case "type":
			input.Type = val
		case "title":
			input.Title = val
		case "url":
			input.URL = val
		case "summary":
			input.Summary = val
		case "tags":
			input.Tags = splitList(val)
		case "data":
			extra := map[string]any{}
			if err := json.Unmarshal([]byte(val), &extra); err != nil {
				return input, fmt.Errorf("data column must be a JSON object: %w", apperror.ErrInvalidInput)
			}
			for k, v := range extra {
				input.Data[k] = v
			}
		default:
			if listColumns[col] {
				input.Data[col] = splitList(val)
			} else {
				input.Data[col] = val
			}
		}
	}
	if input.Title == "" {
		return input, fmt.Errorf("title is required: %w", apperror.ErrInvalidInput)
	}
	return input, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
