package mcptool

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// FormatAnalysis renders data for a tool response.
func FormatAnalysis(data gradebook.AnalysisData, subjects []string, format string) (string, error) {
	switch format {
	case "", FormatText:
		return formatText(data), nil
	case FormatMarkdown:
		return formatMarkdown(data, subjects), nil
	case FormatJSON:
		buf, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}
	return "", fmt.Errorf("unsupported output format: %q", format)
}

func formatText(data gradebook.AnalysisData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Class analysis: %d students, max marks %s per subject\n", len(data.Results), num(data.MaxMarks))
	fmt.Fprintf(&b, "Class average: %.2f%%\n", data.ClassAverage)
	fmt.Fprintf(&b, "Pass percentage: %.2f%%\n", data.PassPercentage)

	b.WriteString("\nTop performers:\n")
	for i, r := range data.TopPerformers {
		fmt.Fprintf(&b, "  %d. %s (%s) %.2f%% %s\n", i+1, r.Student.Name, r.Student.EnrollmentNo, r.Percentage, r.Status)
	}
	b.WriteString("\nSubjects:\n")
	for _, s := range data.SubjectStats {
		fmt.Fprintf(&b, "  %s: avg %.1f%%, highest %s, lowest %s\n", s.Subject, s.Average, num(s.Highest), num(s.Lowest))
	}
	b.WriteString("\nStudents:\n")
	for _, r := range data.Results {
		fmt.Fprintf(&b, "  %s  %s  total %s  %.2f%%  %s\n", r.Student.EnrollmentNo, r.Student.Name, num(r.Total), r.Percentage, r.Status)
	}
	return b.String()
}

func formatMarkdown(data gradebook.AnalysisData, subjects []string) string {
	var b strings.Builder
	b.WriteString("## Class Analysis\n\n")
	fmt.Fprintf(&b, "- **Class average:** %.2f%%\n", data.ClassAverage)
	fmt.Fprintf(&b, "- **Pass percentage:** %.2f%%\n", data.PassPercentage)
	fmt.Fprintf(&b, "- **Students:** %d\n\n", len(data.Results))

	if len(data.TopPerformers) > 0 {
		b.WriteString("### Top Performers\n\n")
		for i, r := range data.TopPerformers {
			fmt.Fprintf(&b, "%d. %s (%.2f%%)\n", i+1, mdEscape(r.Student.Name), r.Percentage)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Subjects\n\n| Subject | Average % | Highest | Lowest |\n|---|---|---|---|\n")
	for _, s := range data.SubjectStats {
		fmt.Fprintf(&b, "| %s | %.1f | %s | %s |\n", mdEscape(s.Subject), s.Average, num(s.Highest), num(s.Lowest))
	}

	b.WriteString("\n### Students\n\n| Enrollment No | Name |")
	for _, s := range subjects {
		b.WriteString(" " + mdEscape(s) + " |")
	}
	b.WriteString(" Total | % | Status |\n|---|---|")
	b.WriteString(strings.Repeat("---|", len(subjects)+3))
	b.WriteString("\n")
	for _, r := range data.Results {
		fmt.Fprintf(&b, "| %s | %s |", mdEscape(r.Student.EnrollmentNo), mdEscape(r.Student.Name))
		for _, s := range subjects {
			b.WriteString(" " + num(r.Student.Mark(s)) + " |")
		}
		fmt.Fprintf(&b, " %s | %.2f | %s |\n", num(r.Total), r.Percentage, r.Status)
	}
	return b.String()
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func mdEscape(s string) string { return strings.ReplaceAll(s, "|", `\|`) }
