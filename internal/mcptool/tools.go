// Package mcptool exposes the grade analyzer as MCP tools.
package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

// NewServer builds an MCP server with the analyze_grades and validate_roster tools.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer("GradeWise", version,
		server.WithLogging(),
		server.WithRecovery(),
	)

	analyzeTool := mcp.NewTool("analyze_grades",
		mcp.WithDescription("Compute per-student totals, percentages and pass/fail status, subject averages, top performers and class aggregates for a roster."),
		mcp.WithString("roster",
			mcp.Description(`JSON array of students: [{"id":"1","enrollment_no":"2024-001","name":"Ada","marks":{"Math":80}}].`),
			mcp.Required(),
		),
		mcp.WithString("subjects",
			mcp.Description("Comma-separated subject names, in report order. Empty gives zeroed totals."),
		),
		mcp.WithNumber("max_marks",
			mcp.Description("Maximum marks for every subject."),
			mcp.DefaultNumber(100),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format of the analysis."),
			mcp.DefaultString(FormatText),
			mcp.Enum(FormatText, FormatMarkdown, FormatJSON),
		),
	)

	validateTool := mcp.NewTool("validate_roster",
		mcp.WithDescription("Check a roster for duplicate enrollment numbers (case-insensitive, surrounding spaces ignored)."),
		mcp.WithString("roster",
			mcp.Description("JSON array of students."),
			mcp.Required(),
		),
	)

	s.AddTool(analyzeTool, handleAnalyzeGrades)
	s.AddTool(validateTool, handleValidateRoster)
	return s
}

func handleAnalyzeGrades(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	roster, err := rosterArg(args)
	if err != nil {
		return nil, err
	}
	subjectsRaw, _ := args["subjects"].(string)
	maxMarks, ok := args["max_marks"].(float64)
	if !ok {
		maxMarks = 100
	}
	format, ok := args["output_format"].(string)
	if !ok {
		format = FormatText
	}

	cfg := gradebook.Config{
		Subjects: gradebook.NormalizeSubjects(strings.Split(subjectsRaw, ",")),
		MaxMarks: maxMarks,
	}
	log.Printf("analyze_grades: students=%d subjects=%d max=%v format=%s", len(roster), len(cfg.Subjects), maxMarks, format)

	data, res, err := gradebook.AnalyzeRoster(roster, cfg)
	switch {
	case errors.Is(err, gradebook.ErrDuplicateEnrollment):
		return errorResult(duplicateMessage(res)), nil
	case err != nil:
		return errorResult(err.Error()), nil
	}
	text, err := FormatAnalysis(data, cfg.Subjects, format)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func handleValidateRoster(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roster, err := rosterArg(request.Params.Arguments)
	if err != nil {
		return nil, err
	}
	res := gradebook.ValidateRoster(roster)
	if !res.OK {
		return errorResult(duplicateMessage(res)), nil
	}
	return textResult(fmt.Sprintf("OK: %d enrollment numbers are unique.", len(roster))), nil
}

// duplicateMessage names the colliding rows, 1-based.
func duplicateMessage(res gradebook.ValidationResult) string {
	return fmt.Sprintf("%s (rows %d and %d)", res.Err(), res.FirstRow+1, res.SecondRow+1)
}

func rosterArg(args map[string]interface{}) ([]gradebook.Student, error) {
	raw, ok := args["roster"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("missing or invalid required argument: roster (string)")
	}
	var roster []gradebook.Student
	if err := json.Unmarshal([]byte(raw), &roster); err != nil {
		return nil, fmt.Errorf("roster is not a JSON array of students: %w", err)
	}
	return roster, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}
