package gradebook

import (
	"maps"
	"sort"
)

// Analyze computes the full analysis snapshot for roster under cfg.
//
// It never mutates its inputs and always returns a well-formed value: an
// empty roster or an empty subject list yields zeroed aggregates. Marks keyed
// by a subject outside cfg.Subjects are ignored. cfg is assumed valid; use
// AnalyzeChecked when it comes from an untrusted source.
func Analyze(roster []Student, cfg Config) AnalysisData {
	possible := float64(len(cfg.Subjects)) * cfg.MaxMarks

	results := make([]StudentResult, len(roster))
	passed := 0
	sumPct := 0.0
	for i, s := range roster {
		total := 0.0
		for _, sub := range cfg.Subjects {
			total += s.Marks[sub]
		}
		pct := 0.0
		if possible > 0 {
			pct = total / possible * 100
		}
		status := StatusFail
		if pct >= PassPercentage {
			status = StatusPass
			passed++
		}
		sumPct += pct

		cp := s
		cp.Marks = maps.Clone(s.Marks)
		results[i] = StudentResult{Student: cp, Total: total, Percentage: pct, Status: status}
	}

	data := AnalysisData{
		Results:       results,
		SubjectStats:  subjectStats(roster, cfg),
		TopPerformers: topPerformers(results, TopPerformerCount),
		MaxMarks:      cfg.MaxMarks,
	}
	if n := len(results); n > 0 {
		data.ClassAverage = sumPct / float64(n)
		data.PassPercentage = float64(passed) / float64(n) * 100
	}
	return data
}

// AnalyzeChecked validates cfg before running Analyze.
func AnalyzeChecked(roster []Student, cfg Config) (AnalysisData, error) {
	if err := ValidateConfig(cfg); err != nil {
		return AnalysisData{}, err
	}
	return Analyze(roster, cfg), nil
}

// AnalyzeRoster analyzes roster data posted from outside the workspace flow.
// Negative marks are clamped to 0 first. An invalid cfg, a duplicate
// enrollment number or a mark above cfg.MaxMarks is returned as an error and
// no analysis is computed. The ValidationResult reflects the duplicate check.
func AnalyzeRoster(roster []Student, cfg Config) (AnalysisData, ValidationResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return AnalysisData{}, ValidationResult{}, err
	}
	roster = ClampMarks(roster)
	res := ValidateRoster(roster)
	if !res.OK {
		return AnalysisData{}, res, res.Err()
	}
	if err := CheckMarks(roster, cfg); err != nil {
		return AnalysisData{}, res, err
	}
	return Analyze(roster, cfg), res, nil
}

func subjectStats(roster []Student, cfg Config) []SubjectStats {
	out := make([]SubjectStats, len(cfg.Subjects))
	for i, sub := range cfg.Subjects {
		st := SubjectStats{Subject: sub}
		if len(roster) == 0 {
			out[i] = st
			continue
		}
		sum := 0.0
		st.Highest = roster[0].Marks[sub]
		st.Lowest = st.Highest
		for _, s := range roster {
			m := s.Marks[sub] // missing counts as 0
			sum += m
			if m > st.Highest {
				st.Highest = m
			}
			if m < st.Lowest {
				st.Lowest = m
			}
		}
		if cfg.MaxMarks > 0 {
			st.Average = sum / float64(len(roster)) / cfg.MaxMarks * 100
		}
		out[i] = st
	}
	return out
}

// topPerformers sorts a copy so results keeps roster order.
func topPerformers(results []StudentResult, n int) []StudentResult {
	ranked := make([]StudentResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percentage > ranked[j].Percentage
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
