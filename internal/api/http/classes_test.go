package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradewise/internal/gradebook"
	"github.com/mind-engage/gradewise/internal/rbac"
	"github.com/mind-engage/gradewise/internal/storage"
	"github.com/mind-engage/gradewise/internal/summary"
	"github.com/mind-engage/gradewise/internal/workspace"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestRouter mounts the API with a role taken from the X-Role header.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	seq := 0
	svc := workspace.NewService(workspace.NewMemoryStore(),
		workspace.WithClock(func() time.Time { return testNow }),
		workspace.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(rbac.WithRole(r.Context(), r.Header.Get("X-Role"))))
		})
	})
	r.With(rbac.Require(rbac.PermClassAnalyze)).Post("/analyze", AnalyzeHandler())
	r.Route("/classes", func(cr chi.Router) {
		MountClasses(cr, Deps{Classes: svc, Blobs: bs, Now: func() time.Time { return testNow }})
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status %d want %d: %s", rec.Code, want, rec.Body.String())
	}
}

func TestClassWorkflow(t *testing.T) {
	h := newTestRouter(t)
	const teacher = "teacher"

	rec := do(t, h, http.MethodPost, "/classes", teacher, "")
	mustStatus(t, rec, http.StatusCreated)
	c := decodeBody[classView](t, rec)
	if c.ID != "id-1" || c.Phase != workspace.PhaseSetup || c.PhaseLabel != "Step 1: Configuration" {
		t.Fatalf("created: %+v", c)
	}

	rec = do(t, h, http.MethodPost, "/classes/id-1/setup", teacher,
		`{"subjects":["Math","Sci"],"student_count":2,"max_marks":50}`)
	mustStatus(t, rec, http.StatusOK)
	c = decodeBody[classView](t, rec)
	if c.Phase != workspace.PhaseEntry || len(c.Students) != 2 || c.Students[0].EnrollmentNo != "2024-001" {
		t.Fatalf("setup: %+v", c)
	}

	rec = do(t, h, http.MethodPatch, "/classes/id-1/students/id-2", teacher,
		`{"name":"Ada","marks":{"Math":40,"Sci":"35"}}`)
	mustStatus(t, rec, http.StatusOK)

	// duplicate enrollment is applied and reported
	rec = do(t, h, http.MethodPatch, "/classes/id-1/students/id-3", teacher, `{"enrollment_no":" 2024-001"}`)
	mustStatus(t, rec, http.StatusOK)
	p := decodeBody[patchStudentResp](t, rec)
	if p.Warning != `Enrollment number " 2024-001" must be unique.` || p.Students[1].EnrollmentNo != " 2024-001" {
		t.Fatalf("duplicate patch: %+v", p)
	}

	rec = do(t, h, http.MethodPost, "/classes/id-1/submit", teacher, "")
	mustStatus(t, rec, http.StatusConflict)
	if !strings.Contains(rec.Body.String(), "Cannot proceed: Duplicate enrollment numbers detected.") {
		t.Fatalf("submit body: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodPatch, "/classes/id-1/students/id-3", teacher, `{"enrollment_no":"2024-002"}`)
	mustStatus(t, rec, http.StatusOK)
	if p = decodeBody[patchStudentResp](t, rec); p.Warning != "" || p.Error != "" {
		t.Fatalf("resolved duplicate still reported: %+v", p)
	}

	// above max is refused and blocks submission until corrected
	rec = do(t, h, http.MethodPatch, "/classes/id-1/students/id-3", teacher, `{"marks":{"Math":60}}`)
	mustStatus(t, rec, http.StatusOK)
	p = decodeBody[patchStudentResp](t, rec)
	if p.Warning != "Marks cannot exceed maximum (50)" || p.Students[1].Marks["Math"] != 0 {
		t.Fatalf("above max: %+v", p)
	}
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/submit", teacher, ""), http.StatusConflict)

	rec = do(t, h, http.MethodPatch, "/classes/id-1/students/id-3", teacher, `{"marks":{"Math":20}}`)
	mustStatus(t, rec, http.StatusOK)

	rec = do(t, h, http.MethodPost, "/classes/id-1/submit", teacher, "")
	mustStatus(t, rec, http.StatusOK)
	if c = decodeBody[classView](t, rec); c.Phase != workspace.PhaseResults || c.PhaseLabel != "Step 3: Analysis" {
		t.Fatalf("submit: %+v", c)
	}

	rec = do(t, h, http.MethodGet, "/classes/id-1/analysis", "viewer", "")
	mustStatus(t, rec, http.StatusOK)
	data := decodeBody[gradebook.AnalysisData](t, rec)
	if data.ClassAverage != 47.5 || data.PassPercentage != 50 || data.TopPerformers[0].Student.Name != "Ada" {
		t.Fatalf("analysis: %+v", data)
	}

	rec = do(t, h, http.MethodGet, "/classes/id-1/export?format=csv&archive=1", "viewer", "")
	mustStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="grade_report_2024-03-01.csv"` {
		t.Fatalf("disposition %q", got)
	}
	if key := rec.Header().Get("X-Archive-Key"); key != "reports/id-1/grade_report_2024-03-01.csv" {
		t.Fatalf("archive key %q", key)
	}
	if u := rec.Header().Get("X-Archive-URL"); !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/reports/id-1/grade_report_2024-03-01.csv") {
		t.Fatalf("archive url %q", u)
	}
	wantCSV := "Enrollment No,Name,Math,Sci,Total Score,Percentage,Status\n" +
		"2024-001,Ada,40,35,75,75.00,Pass\n" +
		"2024-002,Student 2,20,0,20,20.00,Fail\n"
	if rec.Body.String() != wantCSV {
		t.Fatalf("csv:\n%s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/classes/id-1/reports/grade_report_2024-03-01.csv", "viewer", "")
	mustStatus(t, rec, http.StatusOK)
	if rec.Body.String() != wantCSV {
		t.Fatalf("archived report:\n%s", rec.Body.String())
	}

	mustStatus(t, do(t, h, http.MethodGet, "/classes/id-1/export?format=pdf", "viewer", ""), http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, "/classes/id-1/summary", "viewer", "")
	mustStatus(t, rec, http.StatusOK)
	if got := decodeBody[map[string]string](t, rec)["report"]; got != summary.MsgMissingKey {
		t.Fatalf("summary %q", got)
	}

	rec = do(t, h, http.MethodPost, "/classes/id-1/back", teacher, "")
	mustStatus(t, rec, http.StatusOK)
	if c = decodeBody[classView](t, rec); c.Phase != workspace.PhaseEntry {
		t.Fatalf("back: %+v", c)
	}

	mustStatus(t, do(t, h, http.MethodDelete, "/classes/id-1", teacher, ""), http.StatusNoContent)
	mustStatus(t, do(t, h, http.MethodGet, "/classes/id-1", teacher, ""), http.StatusNotFound)
}

func TestPermissions(t *testing.T) {
	h := newTestRouter(t)
	mustStatus(t, do(t, h, http.MethodPost, "/classes", "viewer", ""), http.StatusForbidden)
	mustStatus(t, do(t, h, http.MethodPost, "/classes", "", ""), http.StatusUnauthorized)
	mustStatus(t, do(t, h, http.MethodPost, "/classes", "admin", ""), http.StatusCreated)
	mustStatus(t, do(t, h, http.MethodGet, "/classes", "viewer", ""), http.StatusOK)
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/students", "viewer", ""), http.StatusForbidden)
}

func TestSetupAndPatchErrors(t *testing.T) {
	h := newTestRouter(t)
	mustStatus(t, do(t, h, http.MethodPost, "/classes", "teacher", ""), http.StatusCreated)

	rec := do(t, h, http.MethodPost, "/classes/id-1/setup", "teacher", `{"subjects":["Math"],"student_count":2,"max_marks":0}`)
	mustStatus(t, rec, http.StatusBadRequest)
	if fields := decodeBody[map[string]any](t, rec)["fields"].(map[string]any); fields["MaxMarks"] != "required" {
		t.Fatalf("fields: %v", fields)
	}
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/setup", "teacher", `{"subjects":[" ",""],"student_count":2,"max_marks":10}`), http.StatusBadRequest)
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/setup", "teacher", `{bad`), http.StatusBadRequest)
	mustStatus(t, do(t, h, http.MethodPost, "/classes/nope/setup", "teacher", `{"subjects":["Math"],"student_count":1,"max_marks":10}`), http.StatusNotFound)

	// roster edits need the entry phase
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/students", "teacher", ""), http.StatusConflict)
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/setup", "teacher", `{"subjects":["Math"],"student_count":1,"max_marks":10}`), http.StatusOK)

	mustStatus(t, do(t, h, http.MethodPatch, "/classes/id-1/students/id-2", "teacher", `{}`), http.StatusBadRequest)
	mustStatus(t, do(t, h, http.MethodPatch, "/classes/id-1/students/id-2", "teacher", `{"marks":{"Art":5}}`), http.StatusBadRequest)
	mustStatus(t, do(t, h, http.MethodPatch, "/classes/id-1/students/missing", "teacher", `{"name":"X"}`), http.StatusNotFound)

	rec = do(t, h, http.MethodPatch, "/classes/id-1/students/id-2", "teacher", `{"marks":{"Math":"abc"}}`)
	mustStatus(t, rec, http.StatusOK)
	if p := decodeBody[patchStudentResp](t, rec); p.Students[0].Marks["Math"] != 0 || p.Warning != "" {
		t.Fatalf("non-numeric mark: %+v", p)
	}

	rec = do(t, h, http.MethodPost, "/classes/id-1/students", "teacher", "")
	mustStatus(t, rec, http.StatusCreated)
	if c := decodeBody[classView](t, rec); len(c.Students) != 2 || c.Students[1].Name != "Student 2" {
		t.Fatalf("add: %+v", c)
	}
	rec = do(t, h, http.MethodDelete, "/classes/id-1/students/id-2", "teacher", "")
	mustStatus(t, rec, http.StatusOK)
	if c := decodeBody[classView](t, rec); len(c.Students) != 1 || c.Students[0].ID != "id-3" {
		t.Fatalf("remove: %+v", c)
	}
}

func TestImportRoster(t *testing.T) {
	h := newTestRouter(t)
	mustStatus(t, do(t, h, http.MethodPost, "/classes", "teacher", ""), http.StatusCreated)
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/setup", "teacher", `{"subjects":["Math"],"student_count":1,"max_marks":100}`), http.StatusOK)

	upload := func(name, content string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/classes/id-1/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-Role", "teacher")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("roster.csv", "Enrollment No,Name,Math\nA-1,Ada,90\nA-2,Bob,120\n")
	mustStatus(t, rec, http.StatusOK)
	c := decodeBody[classView](t, rec)
	if len(c.Students) != 2 || c.Students[0].ID == "" || c.Error != "Marks cannot exceed maximum (100)" {
		t.Fatalf("import: %+v", c)
	}

	mustStatus(t, upload("roster.csv", "Name,Math\nAda,1\n"), http.StatusBadRequest)
}

func TestAnalyzeStateless(t *testing.T) {
	h := newTestRouter(t)
	body := `{
		"roster":[
			{"id":"1","enrollment_no":"E1","name":"Ada","marks":{"Math":90}},
			{"id":"2","enrollment_no":"E2","name":"Bob","marks":{"Math":-50}}
		],
		"config":{"subjects":["Math"],"max_marks":100}
	}`
	rec := do(t, h, http.MethodPost, "/analyze", "viewer", body)
	mustStatus(t, rec, http.StatusOK)
	resp := decodeBody[analyzeResp](t, rec)
	if resp.Analysis.ClassAverage != 45 || !resp.Validation.OK || resp.Analysis.Results[1].Total != 0 {
		t.Fatalf("analyze: %+v", resp)
	}

	rec = do(t, h, http.MethodPost, "/analyze", "viewer", `{
		"roster":[
			{"id":"1","enrollment_no":"2024-001","name":"Ada","marks":{"Math":90}},
			{"id":"2","enrollment_no":" 2024-001 ","name":"Bob","marks":{"Math":30}}
		],
		"config":{"subjects":["Math"],"max_marks":100}
	}`)
	mustStatus(t, rec, http.StatusConflict)
	rej := decodeBody[map[string]any](t, rec)
	if _, ok := rej["analysis"]; ok {
		t.Fatalf("duplicate roster must not be analyzed: %v", rej)
	}
	if v := rej["validation"].(map[string]any); v["ok"] != false || v["second_row"] != 1.0 {
		t.Fatalf("validation: %v", v)
	}

	rec = do(t, h, http.MethodPost, "/analyze", "viewer",
		`{"roster":[{"id":"1","enrollment_no":"E1","marks":{"Math":101}}],"config":{"subjects":["Math"],"max_marks":100}}`)
	mustStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPost, "/analyze", "viewer",
		`{"roster":[{"id":"1","enrollment_no":"E1","name":"Ada","marks":{"X":5}}],"config":{"subjects":[],"max_marks":100}}`)
	mustStatus(t, rec, http.StatusOK)
	resp = decodeBody[analyzeResp](t, rec)
	if r := resp.Analysis.Results[0]; r.Total != 0 || r.Percentage != 0 || resp.Analysis.ClassAverage != 0 || len(resp.Analysis.SubjectStats) != 0 {
		t.Fatalf("empty subjects: %+v", resp.Analysis)
	}

	mustStatus(t, do(t, h, http.MethodPost, "/analyze", "viewer", `{"roster":[],"config":{"subjects":["Math"],"max_marks":0}}`), http.StatusBadRequest)
	mustStatus(t, do(t, h, http.MethodPost, "/analyze", "viewer", `{"roster":[],"config":{"subjects":["Math","Math"],"max_marks":10}}`), http.StatusBadRequest)
}

func TestPatchIsAllOrNothing(t *testing.T) {
	h := newTestRouter(t)
	mustStatus(t, do(t, h, http.MethodPost, "/classes", "teacher", ""), http.StatusCreated)
	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/setup", "teacher", `{"subjects":["Math"],"student_count":1,"max_marks":10}`), http.StatusOK)

	mustStatus(t, do(t, h, http.MethodPatch, "/classes/id-1/students/id-2", "teacher",
		`{"name":"Zed","enrollment_no":"Z-9","marks":{"Math":5,"Art":5}}`), http.StatusBadRequest)
	c := decodeBody[classView](t, do(t, h, http.MethodGet, "/classes/id-1", "teacher", ""))
	if s := c.Students[0]; s.Name != "Student 1" || s.EnrollmentNo != "2024-001" || s.Marks["Math"] != 0 {
		t.Fatalf("rejected patch was partly applied: %+v", s)
	}

	mustStatus(t, do(t, h, http.MethodPost, "/classes/id-1/submit", "teacher", ""), http.StatusOK)
	mustStatus(t, do(t, h, http.MethodPatch, "/classes/id-1/students/id-2", "teacher", `{"name":"Zed"}`), http.StatusConflict)
}
