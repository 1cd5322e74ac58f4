// Package export renders an analysis as a downloadable report and reads
// rosters back from spreadsheets.
package export

import (
	"strconv"
	"time"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentType returns the MIME type for format, "" if unsupported.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return ""
}

// FileName is the download name, e.g. grade_report_2024-03-01.csv.
func FileName(format string, now time.Time) string {
	return "grade_report_" + now.Format("2006-01-02") + "." + format
}

// Header lists the report columns for subjects.
func Header(subjects []string) []string {
	h := make([]string, 0, len(subjects)+5)
	h = append(h, "Enrollment No", "Name")
	h = append(h, subjects...)
	return append(h, "Total Score", "Percentage", "Status")
}

// Row renders one result in Header order. Missing marks are written as 0.
func Row(subjects []string, r gradebook.StudentResult) []string {
	row := make([]string, 0, len(subjects)+5)
	row = append(row, r.Student.EnrollmentNo, r.Student.Name)
	for _, sub := range subjects {
		row = append(row, formatNumber(r.Student.Mark(sub)))
	}
	return append(row,
		formatNumber(r.Total),
		strconv.FormatFloat(r.Percentage, 'f', 2, 64),
		string(r.Status),
	)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
