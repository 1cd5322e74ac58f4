package export

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

var (
	ErrEmptySheet    = errors.New("no header row")
	ErrMissingColumn = errors.New("missing column")
)

// rosterFromRows maps a header row plus data rows onto students. Column
// lookup ignores case and surrounding space. Subject columns that are absent
// leave that mark unset; marks are stored as read so an out-of-range value
// is flagged later instead of being lost here.
func rosterFromRows(rows [][]string, subjects []string) ([]gradebook.Student, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	enrollCol, ok := cols["enrollment no"]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, "Enrollment No")
	}
	nameCol, ok := cols["name"]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, "Name")
	}

	out := make([]gradebook.Student, 0, len(rows)-1)
	for _, row := range rows[1:] {
		enroll, name := cell(row, enrollCol), cell(row, nameCol)
		if enroll == "" && name == "" {
			continue
		}
		s := gradebook.Student{EnrollmentNo: enroll, Name: name, Marks: make(map[string]float64, len(subjects))}
		for _, sub := range subjects {
			i, ok := cols[strings.ToLower(sub)]
			if !ok {
				continue
			}
			s.Marks[sub] = importedMark(cell(row, i))
		}
		out = append(out, s)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// importedMark applies the entry rules except the upper bound.
func importedMark(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
