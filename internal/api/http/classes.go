package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradewise/internal/gradebook"
	"github.com/mind-engage/gradewise/internal/lms"
	"github.com/mind-engage/gradewise/internal/rbac"
	"github.com/mind-engage/gradewise/internal/storage"
	"github.com/mind-engage/gradewise/internal/summary"
	"github.com/mind-engage/gradewise/internal/workspace"
)

// Deps are the collaborators behind the class routes. Blobs, Summarizer and
// Publisher may be nil.
type Deps struct {
	Classes    *workspace.Service
	Blobs      storage.BlobStore
	Summarizer summary.Summarizer
	Publisher  *lms.Publisher
	Now        func() time.Time
}

// MountClasses registers the class routes on r (typically under /classes).
// The caller is expected to have put a role into the request context.
func MountClasses(r chi.Router, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	svc := d.Classes

	r.With(rbac.Require(rbac.PermClassCreate)).Post("/", CreateClassHandler(svc))
	r.With(rbac.Require(rbac.PermClassView)).Get("/", ListClassesHandler(svc))

	r.Route("/{classID}", func(cr chi.Router) {
		cr.With(rbac.Require(rbac.PermClassView)).Get("/", GetClassHandler(svc))
		cr.With(rbac.Require(rbac.PermClassEdit)).Delete("/", ResetClassHandler(svc))

		cr.With(rbac.Require(rbac.PermClassEdit)).Post("/setup", SetupHandler(svc))
		cr.With(rbac.Require(rbac.PermClassEdit)).Post("/students", AddStudentHandler(svc))
		cr.With(rbac.Require(rbac.PermClassEdit)).Delete("/students/{studentID}", RemoveStudentHandler(svc))
		cr.With(rbac.Require(rbac.PermClassEdit)).Patch("/students/{studentID}", PatchStudentHandler(svc))
		cr.With(rbac.Require(rbac.PermClassEdit)).Post("/import", ImportRosterHandler(svc))
		cr.With(rbac.Require(rbac.PermClassEdit)).Post("/submit", SubmitHandler(svc))
		cr.With(rbac.Require(rbac.PermClassEdit)).Post("/back", BackHandler(svc))

		cr.With(rbac.Require(rbac.PermClassAnalyze)).Get("/analysis", AnalysisHandler(svc))
		cr.With(rbac.Require(rbac.PermClassAnalyze)).Post("/summary", SummaryHandler(svc, d.Summarizer))
		cr.With(rbac.Require(rbac.PermClassExport)).Get("/export", ExportHandler(svc, d.Blobs, d.Now))
		if d.Blobs != nil {
			cr.With(rbac.RequireAny(rbac.PermClassExport, rbac.PermClassAnalyze)).Get("/reports/{fileName}", ArchivedReportHandler(d.Blobs))
		}
		if d.Publisher != nil {
			// results leave the system: needs both edit and export
			cr.With(rbac.RequireAll(rbac.PermClassEdit, rbac.PermClassExport)).Post("/publish", PublishHandler(svc, d.Publisher))
		}
	})
}

type classView struct {
	workspace.Class
	PhaseLabel string `json:"phase_label"`
}

func viewOf(c workspace.Class) classView {
	return classView{Class: c, PhaseLabel: c.Phase.Label()}
}

// POST /classes
func CreateClassHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Create(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewOf(c))
	}
}

// GET /classes
func ListClassesHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := svc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]classView, len(cs))
		for i, c := range cs {
			out[i] = viewOf(c)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /classes/{classID}
func GetClassHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Get(r.Context(), chi.URLParam(r, "classID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(c))
	}
}

// DELETE /classes/{classID}
func ResetClassHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Reset(r.Context(), chi.URLParam(r, "classID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type setupReq struct {
	Subjects     []string `json:"subjects" validate:"required,min=1,max=50"`
	StudentCount int      `json:"student_count" validate:"required,gt=0,lte=1000"`
	MaxMarks     float64  `json:"max_marks" validate:"required,gt=0"`
}

// POST /classes/{classID}/setup
func SetupHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setupReq
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
		c, err := svc.Setup(r.Context(), chi.URLParam(r, "classID"), req.Subjects, req.StudentCount, req.MaxMarks)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(c))
	}
}

// POST /classes/{classID}/students
func AddStudentHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.AddStudent(r.Context(), chi.URLParam(r, "classID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewOf(c))
	}
}

// DELETE /classes/{classID}/students/{studentID}
func RemoveStudentHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.RemoveStudent(r.Context(), chi.URLParam(r, "classID"), chi.URLParam(r, "studentID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(c))
	}
}

// rawMark accepts a mark typed as either a JSON string or number.
type rawMark string

func (m *rawMark) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = rawMark(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = rawMark(n.String())
	return nil
}

type patchStudentReq struct {
	Name         *string            `json:"name" validate:"omitempty,max=200"`
	EnrollmentNo *string            `json:"enrollment_no" validate:"omitempty,max=64"`
	Marks        map[string]rawMark `json:"marks"`
}

type patchStudentResp struct {
	classView
	// set when the edit was applied but left the roster invalid, or was refused
	Warning string `json:"warning,omitempty"`
}

// PATCH /classes/{classID}/students/{studentID}
//
// Edits apply in the order name, enrollment, marks, and only during data
// entry. Unknown subjects reject the whole request before anything is saved.
// Live validation problems do not fail the request; they come back in
// "warning" and in the class error.
func PatchStudentHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patchStudentReq
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
		if req.Name == nil && req.EnrollmentNo == nil && len(req.Marks) == 0 {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		id, sid := chi.URLParam(r, "classID"), chi.URLParam(r, "studentID")

		var (
			c       workspace.Class
			warning error
		)
		apply := func(next workspace.Class, err error) bool {
			var live *gradebook.ValidationError
			switch {
			case err == nil:
			case errors.As(err, &live) && next.ID != "":
				warning = err
			default:
				writeError(w, err)
				return false
			}
			c = next
			return true
		}

		subjects := make([]string, 0, len(req.Marks))
		for s := range req.Marks {
			subjects = append(subjects, s)
		}
		sort.Strings(subjects)
		if err := svc.CheckSubjects(ctx, id, subjects); err != nil {
			writeError(w, err)
			return
		}

		if req.Name != nil {
			if !apply(svc.RenameStudent(ctx, id, sid, *req.Name)) {
				return
			}
		}
		if req.EnrollmentNo != nil {
			if !apply(svc.SetEnrollment(ctx, id, sid, *req.EnrollmentNo)) {
				return
			}
		}
		for _, s := range subjects {
			if !apply(svc.SetMark(ctx, id, sid, s, string(req.Marks[s]))) {
				return
			}
		}
		resp := patchStudentResp{classView: viewOf(c)}
		if warning != nil {
			resp.Warning = warning.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// POST /classes/{classID}/submit
func SubmitHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Submit(r.Context(), chi.URLParam(r, "classID"))
		if err != nil {
			msg := err.Error()
			if c.Error != "" {
				msg = c.Error
			}
			http.Error(w, msg, statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, viewOf(c))
	}
}

// POST /classes/{classID}/back
func BackHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Back(r.Context(), chi.URLParam(r, "classID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(c))
	}
}
