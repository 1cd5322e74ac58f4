package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

const (
	sheetResults = "Results"
	sheetSummary = "Summary"
)

// WriteXLSX writes a workbook with the per-student table on "Results" and
// class and subject aggregates on "Summary".
func WriteXLSX(w io.Writer, subjects []string, data gradebook.AnalysisData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetResults); err != nil {
		return err
	}
	if err := setRow(f, sheetResults, 1, toAny(Header(subjects))); err != nil {
		return err
	}
	for i, r := range data.Results {
		row := make([]any, 0, len(subjects)+5)
		row = append(row, r.Student.EnrollmentNo, r.Student.Name)
		for _, sub := range subjects {
			row = append(row, r.Student.Mark(sub))
		}
		row = append(row, r.Total, round2(r.Percentage), string(r.Status))
		if err := setRow(f, sheetResults, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	summary := [][]any{
		{"Class Average (%)", round2(data.ClassAverage)},
		{"Pass Percentage (%)", round2(data.PassPercentage)},
		{"Max Marks", data.MaxMarks},
		{},
		{"Subject", "Average (%)", "Highest", "Lowest"},
	}
	for _, s := range data.SubjectStats {
		summary = append(summary, []any{s.Subject, round2(s.Average), s.Highest, s.Lowest})
	}
	summary = append(summary, []any{}, []any{"Rank", "Name", "Percentage"})
	for i, r := range data.TopPerformers {
		summary = append(summary, []any{i + 1, r.Student.Name, round2(r.Percentage)})
	}
	for i, row := range summary {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, sheetSummary, i+1, row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// ReadRosterXLSX reads the first sheet of a workbook as a roster.
func ReadRosterXLSX(r io.Reader, subjects []string) ([]gradebook.Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return rosterFromRows(rows, subjects)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
