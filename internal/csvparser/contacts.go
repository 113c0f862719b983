package csvparser

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// ContactRow is a single contact extracted from a CSV. Email comes from
// the "Email" column and Name from the "Name" column (both
// case-insensitive); every other column lands in Fields and becomes a
// template placeholder.
type ContactRow struct {
	Name   string
	Email  string
	Fields map[string]string
}

// ParseContactRows parses a CSV from an io.Reader. The header row must
// contain an Email column; a Name column is optional. maxRows limits how
// many data rows are parsed (excluding header).
func ParseContactRows(r io.Reader, maxRows int) ([]ContactRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, errors.New("csv header row is empty")
	}

	emailIdx := -1
	nameIdx := -1
	normalized := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		normalized[i] = h
		if strings.EqualFold(h, "email") {
			emailIdx = i
		}
		if strings.EqualFold(h, "name") {
			nameIdx = i
		}
	}
	if emailIdx == -1 {
		return nil, errors.New("csv must contain an Email column")
	}

	if maxRows <= 0 {
		maxRows = 1000
	}

	rows := make([]ContactRow, 0)
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(headers) {
			// skip malformed row
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" {
			continue
		}

		row := ContactRow{
			Email:  email,
			Fields: make(map[string]string, len(headers)-1),
		}
		for i := range record {
			if i == emailIdx {
				continue
			}
			if i == nameIdx {
				row.Name = strings.TrimSpace(record[i])
				continue
			}
			key := normalized[i]
			if key == "" {
				continue
			}
			row.Fields[key] = strings.TrimSpace(record[i])
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.New("csv must contain at least one data row")
	}

	return rows, nil
}
