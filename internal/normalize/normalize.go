// Package normalize reshapes raw tabular rows into employee/employer
// address pairs. Pure data reshaping: no network, no state.
package normalize

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
)

// ErrNoValidRows is returned when normalization drops every input row.
var ErrNoValidRows = eris.New("normalize: no valid address rows in input")

// siteDelimiter separates the employer descriptor from its secondary
// address component ("Acme;Lyon" → "Lyon Acme").
const siteDelimiter = ";"

// ReadRows parses CSV input into raw rows. The first row is treated as a
// header and skipped; empty lines are ignored; rows may have fewer than
// four fields.
func ReadRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "normalize: read csv row")
		}
		if first {
			first = false
			continue
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// Pairs converts raw rows of (street, city, postal code, site descriptor)
// into address pairs. Rows yielding an empty employee or employer address
// are dropped; dropping every row is an error so the orchestrator can
// refuse to start the geocoding stage.
func Pairs(rows [][]string) ([]model.AddressPair, error) {
	pairs := make([]model.AddressPair, 0, len(rows))
	for _, row := range rows {
		employee := joinNonEmpty(field(row, 0), field(row, 1), field(row, 2))
		employer := employerAddress(field(row, 3))
		if employee == "" || employer == "" {
			continue
		}
		pairs = append(pairs, model.AddressPair{
			EmployeeAddress: employee,
			EmployerAddress: employer,
		})
	}
	if len(pairs) == 0 {
		return nil, ErrNoValidRows
	}
	return pairs, nil
}

// employerAddress reorders a delimited site descriptor. "Acme;Lyon"
// becomes "Lyon Acme"; descriptors with more than one delimiter keep
// their order with delimiters replaced by spaces.
func employerAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, siteDelimiter) {
		return raw
	}
	parts := strings.Split(raw, siteDelimiter)
	if len(parts) == 2 {
		return joinNonEmpty(parts[1], parts[0])
	}
	return joinNonEmpty(parts...)
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
