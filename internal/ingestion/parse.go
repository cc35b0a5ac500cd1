// Package ingestion imports people from spreadsheet exports into member and
// task records, skipping anyone already on file.
package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseError reports CSV text that cannot be read at all.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("csv parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("csv parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Column role search terms, matched as substrings of the lower-cased header.
var (
	firstNameTerms = []string{"first name", "firstname", "given name", "f_name"}
	lastNameTerms  = []string{"last name", "lastname", "surname", "family name", "l_name"}
	fullNameTerms  = []string{"name", "full name", "fullname", "who"}
	emailTerms     = []string{"email", "e-mail", "mail", "address"}
	phoneTerms     = []string{"phone", "mobile", "cell", "contact"}
	pathwayTerms   = []string{"pathway", "path", "type", "track"}
)

// Columns holds the resolved index of each column role, -1 when absent.
type Columns struct {
	FirstName int
	LastName  int
	FullName  int
	Email     int
	Phone     int
	Pathway   int
}

// Row is one parsed spreadsheet row.
type Row struct {
	Line      int
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Pathway   string
}

// HasName reports whether the row carries any name part.
func (r Row) HasName() bool {
	return r.FirstName != "" || r.LastName != ""
}

// ResolveColumns assigns column roles from the header row. Roles are resolved
// in fixed precedence and a column claimed by an earlier role is not reused,
// so "first name" never doubles as the full-name column.
func ResolveColumns(header []string) Columns {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}
	claimed := make(map[int]bool)
	find := func(terms []string) int {
		for i, h := range normalized {
			if claimed[i] || h == "" {
				continue
			}
			for _, term := range terms {
				if strings.Contains(h, term) {
					claimed[i] = true
					return i
				}
			}
		}
		return -1
	}

	cols := Columns{}
	cols.FirstName = find(firstNameTerms)
	cols.LastName = find(lastNameTerms)
	cols.FullName = find(fullNameTerms)
	cols.Email = find(emailTerms)
	cols.Phone = find(phoneTerms)
	cols.Pathway = find(pathwayTerms)
	return cols
}

// ParseCSV reads header and data rows. Quoted fields may contain commas,
// escaped quotes and line breaks; ragged rows are tolerated. Rows with no
// name, email or phone are dropped.
func ParseCSV(text string) ([]Row, error) {
	records, err := readRecords(text)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ParseError{Message: "no header row"}
	}

	cols := ResolveColumns(records[0])
	var rows []Row
	for i, record := range records[1:] {
		row, ok := parseRow(record, cols)
		if !ok {
			continue
		}
		row.Line = i + 2
		rows = append(rows, row)
	}
	return rows, nil
}

func readRecords(text string) ([][]string, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Message: "malformed row", Cause: err}
		}
		if isBlank(record) {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func parseRow(record []string, cols Columns) (Row, bool) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := Row{
		Email:   get(cols.Email),
		Phone:   get(cols.Phone),
		Pathway: get(cols.Pathway),
	}

	switch {
	case cols.FirstName >= 0 || cols.LastName >= 0:
		row.FirstName = get(cols.FirstName)
		row.LastName = get(cols.LastName)
	case cols.FullName >= 0:
		row.FirstName, row.LastName = SplitFullName(get(cols.FullName))
	}

	if !row.HasName() && row.Email == "" && row.Phone == "" {
		return Row{}, false
	}
	return row, true
}

// SplitFullName splits on the first space into first name and the rest.
func SplitFullName(full string) (first, rest string) {
	full = strings.TrimSpace(full)
	if idx := strings.IndexByte(full, ' '); idx >= 0 {
		return full[:idx], strings.TrimSpace(full[idx+1:])
	}
	return full, ""
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
