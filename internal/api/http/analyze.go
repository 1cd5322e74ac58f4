package http

import (
	"errors"
	"net/http"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

type analyzeReq struct {
	Roster []gradebook.Student `json:"roster" validate:"dive"`
	Config struct {
		Subjects []string `json:"subjects"`
		MaxMarks float64  `json:"max_marks" validate:"required,gt=0"`
	} `json:"config"`
}

type analyzeResp struct {
	Analysis   gradebook.AnalysisData     `json:"analysis"`
	Validation gradebook.ValidationResult `json:"validation"`
}

type analyzeRejected struct {
	Error      string                     `json:"error"`
	Validation gradebook.ValidationResult `json:"validation"`
}

// POST /analyze analyzes a posted roster without persisting anything.
// Duplicate enrollment numbers are answered 409 with the validation result,
// marks above max 422. An empty subject list yields zeroed results.
func AnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeReq
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
		cfg := gradebook.Config{Subjects: req.Config.Subjects, MaxMarks: req.Config.MaxMarks}
		data, res, err := gradebook.AnalyzeRoster(req.Roster, cfg)
		switch {
		case errors.Is(err, gradebook.ErrDuplicateEnrollment):
			writeJSON(w, http.StatusConflict, analyzeRejected{Error: err.Error(), Validation: res})
			return
		case err != nil:
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, analyzeResp{Analysis: data, Validation: res})
	}
}
