package export

import (
	"encoding/csv"
	"io"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

// WriteCSV writes the per-student table in result order. Quoting of names
// containing delimiters is left to encoding/csv.
func WriteCSV(w io.Writer, subjects []string, data gradebook.AnalysisData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(subjects)); err != nil {
		return err
	}
	for _, r := range data.Results {
		if err := cw.Write(Row(subjects, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRosterCSV parses a roster with the same leading columns as the report.
func ReadRosterCSV(r io.Reader, subjects []string) ([]gradebook.Student, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return rosterFromRows(records, subjects)
}
