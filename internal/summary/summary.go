// Package summary derives a reduced-precision digest from an analysis and
// asks an external text-generation service for a narrative class report.
// The numeric analysis never depends on it.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

const (
	MsgMissingKey = "API Key is missing. Please check your configuration."
	MsgFailed     = "An error occurred while generating the report. Please try again."
	MsgEmpty      = "No analysis could be generated."
)

// ErrNotConfigured is returned by summarizers that lack credentials.
var ErrNotConfigured = errors.New("summarizer not configured")

// Digest is what gets handed to the text-generation service.
type Digest struct {
	ClassAverage       string `json:"classAverage"`
	PassPercentage     string `json:"passPercentage"`
	TopStudents        string `json:"topStudents"`
	SubjectPerformance string `json:"subjectPerformance"`
}

type Summarizer interface {
	Summarize(ctx context.Context, d Digest) (string, error)
}

func NewDigest(data gradebook.AnalysisData) Digest {
	top := make([]string, len(data.TopPerformers))
	for i, r := range data.TopPerformers {
		top[i] = fmt.Sprintf("%s (%.1f%%)", r.Student.Name, r.Percentage)
	}
	subjects := make([]string, len(data.SubjectStats))
	for i, s := range data.SubjectStats {
		subjects[i] = fmt.Sprintf("%s: Avg %.1f", s.Subject, s.Average)
	}
	return Digest{
		ClassAverage:       fmt.Sprintf("%.2f", data.ClassAverage),
		PassPercentage:     fmt.Sprintf("%.2f%%", data.PassPercentage),
		TopStudents:        strings.Join(top, ", "),
		SubjectPerformance: strings.Join(subjects, ", "),
	}
}

// Prompt renders the instruction text sent with d.
func Prompt(d Digest) string {
	buf, _ := json.MarshalIndent(d, "", "  ")
	return `You are an expert academic analyst. Analyze the following student grade data for a class.

Data Summary:
` + string(buf) + `

Please provide a concise but insightful report including:
1. Overall Class Performance Summary.
2. Identification of the strongest and weakest subjects based on averages.
3. Recommendations for the teacher on where to focus remedial attention.
4. A brief encouraging remark for the class.

Keep the tone professional yet encouraging. Format with Markdown.`
}

// Report makes a single best-effort attempt and always returns displayable
// text. Failures are logged and replaced by a fixed message.
func Report(ctx context.Context, s Summarizer, data gradebook.AnalysisData) string {
	if s == nil {
		return MsgMissingKey
	}
	text, err := s.Summarize(ctx, NewDigest(data))
	switch {
	case errors.Is(err, ErrNotConfigured):
		return MsgMissingKey
	case err != nil:
		log.Printf("summary: %v", err)
		return MsgFailed
	case strings.TrimSpace(text) == "":
		return MsgEmpty
	}
	return text
}
