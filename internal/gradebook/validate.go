package gradebook

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ValidationResult is the outcome of ValidateRoster. When OK is false,
// Duplicate holds the enrollment number as typed on row SecondRow, which
// collides with the one on FirstRow.
type ValidationResult struct {
	OK        bool   `json:"ok"`
	Duplicate string `json:"duplicate,omitempty"`
	FirstRow  int    `json:"first_row"`
	SecondRow int    `json:"second_row"`
}

// Err converts a failed result into a *ValidationError.
func (v ValidationResult) Err() error {
	if v.OK {
		return nil
	}
	return &ValidationError{Kind: ErrDuplicateEnrollment, Value: v.Duplicate, Row: v.SecondRow}
}

// NormalizeEnrollment is the comparison key for enrollment numbers.
func NormalizeEnrollment(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateRoster reports the first enrollment number, in roster order, that
// repeats an earlier one after trimming and case folding.
func ValidateRoster(roster []Student) ValidationResult {
	seen := make(map[string]int, len(roster))
	for i, s := range roster {
		k := NormalizeEnrollment(s.EnrollmentNo)
		if j, ok := seen[k]; ok {
			return ValidationResult{Duplicate: s.EnrollmentNo, FirstRow: j, SecondRow: i}
		}
		seen[k] = i
	}
	return ValidationResult{OK: true, FirstRow: -1, SecondRow: -1}
}

// EnrollmentConflict reports whether enrollment is already used by a student
// other than studentID, returning that student's row.
func EnrollmentConflict(roster []Student, studentID, enrollment string) (int, bool) {
	k := NormalizeEnrollment(enrollment)
	for i, s := range roster {
		if s.ID != studentID && NormalizeEnrollment(s.EnrollmentNo) == k {
			return i, true
		}
	}
	return -1, false
}

func ValidateConfig(cfg Config) error {
	if math.IsNaN(cfg.MaxMarks) || math.IsInf(cfg.MaxMarks, 0) {
		return configError("max marks must be a number")
	}
	if cfg.MaxMarks <= 0 {
		return configError("max marks must be positive")
	}
	seen := make(map[string]struct{}, len(cfg.Subjects))
	for _, s := range cfg.Subjects {
		if strings.TrimSpace(s) == "" {
			return configError("subject names must not be blank")
		}
		if _, dup := seen[s]; dup {
			return configError("duplicate subject " + strconv.Quote(s))
		}
		seen[s] = struct{}{}
	}
	return nil
}

// NormalizeSubjects trims names and drops blanks and repeats, keeping order.
func NormalizeSubjects(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ParseMark turns a typed entry into a stored mark. The longest numeric
// prefix is used, so "12abc" reads as 12 and "1e400" overflows to +Inf.
// Blank, non-numeric and negative entries become 0. Entries above max are
// rejected, not clamped.
func ParseMark(raw string, max float64) (float64, error) {
	v, ok := parseLeadingFloat(raw)
	if !ok || math.IsNaN(v) {
		return 0, nil
	}
	if v > max {
		return 0, &ValidationError{Kind: ErrMarkAboveMax, Value: formatNumber(max), Row: -1}
	}
	if v < 0 {
		return 0, nil
	}
	return v, nil
}

var leadingFloat = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

// ClampMarks returns a copy of roster with negative and NaN marks set to 0.
// Marks above max are left for CheckMarks to flag.
func ClampMarks(roster []Student) []Student {
	out := make([]Student, len(roster))
	for i, s := range roster {
		marks := make(map[string]float64, len(s.Marks))
		for sub, m := range s.Marks {
			if m < 0 || math.IsNaN(m) {
				m = 0
			}
			marks[sub] = m
		}
		s.Marks = marks
		out[i] = s
	}
	return out
}

// CheckMarks returns an error for the first stored mark above cfg.MaxMarks.
// Such marks can appear after an import or after max marks was lowered.
func CheckMarks(roster []Student, cfg Config) error {
	for i, s := range roster {
		for _, sub := range cfg.Subjects {
			if s.Marks[sub] > cfg.MaxMarks {
				return &ValidationError{Kind: ErrMarkAboveMax, Value: formatNumber(cfg.MaxMarks), Row: i, Detail: sub}
			}
		}
	}
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
