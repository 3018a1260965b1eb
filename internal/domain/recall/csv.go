package recall

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var requiredColumns = []string{"first_name", "last_name", "email", "number", "dob"}

// ParsePatientsCSV reads a header row followed by patient rows. Rows with
// empty required fields are reported as "Row N: ..." where N counts the
// header as row 1; they do not stop the parse. A header lacking any
// required column fails the whole import with ErrInvalidCSV (a 400 at the
// handler) instead of reporting that column as missing on every row and
// importing nothing.
func ParsePatientsCSV(content string) ([]PatientInput, []string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(content, "\ufeff")))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missingCols []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missingCols = append(missingCols, col)
		}
	}
	if len(missingCols) > 0 {
		return nil, nil, fmt.Errorf("%w: header is missing required columns - %s",
			ErrInvalidCSV, strings.Join(missingCols, ", "))
	}

	var (
		inputs  []PatientInput
		rowErrs []string
	)
	for rowNum := 2; ; rowNum++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}

		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		var missing []string
		for _, col := range requiredColumns {
			if field(col) == "" {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			rowErrs = append(rowErrs, fmt.Sprintf("Row %d: Missing required fields - %s",
				rowNum, strings.Join(missing, ", ")))
			continue
		}

		in := PatientInput{
			FirstName: field("first_name"),
			LastName:  field("last_name"),
			Email:     field("email"),
			Number:    field("number"),
			DOB:       field("dob"),
		}
		if notes := field("notes"); notes != "" {
			in.Notes = &notes
		}
		inputs = append(inputs, in)
	}
	return inputs, rowErrs, nil
}
