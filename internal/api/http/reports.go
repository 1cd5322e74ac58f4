package http

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradewise/internal/export"
	"github.com/mind-engage/gradewise/internal/gradebook"
	"github.com/mind-engage/gradewise/internal/storage"
	"github.com/mind-engage/gradewise/internal/summary"
	"github.com/mind-engage/gradewise/internal/workspace"
)

// GET /classes/{classID}/analysis
func AnalysisHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _, err := svc.Analysis(r.Context(), chi.URLParam(r, "classID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

// GET /classes/{classID}/export?format=csv|xlsx&archive=1
func ExportHandler(svc *workspace.Service, bs storage.BlobStore, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(r.URL.Query().Get("format"))
		if format == "" {
			format = export.FormatCSV
		}
		ct := export.ContentType(format)
		if ct == "" {
			http.Error(w, "unsupported format: "+format, http.StatusBadRequest)
			return
		}
		id := chi.URLParam(r, "classID")
		data, c, err := svc.Analysis(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		var buf bytes.Buffer
		if format == export.FormatXLSX {
			err = export.WriteXLSX(&buf, c.Subjects, data)
		} else {
			err = export.WriteCSV(&buf, c.Subjects, data)
		}
		if err != nil {
			writeError(w, err)
			return
		}

		name := export.FileName(format, now())
		if bs != nil && r.URL.Query().Get("archive") == "1" {
			key, err := storage.ArchiveReport(bs, id, name, buf.Bytes())
			if err != nil {
				http.Error(w, "archive: "+err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("X-Archive-Key", key)
			if u, err := bs.SignedURL(key); err == nil {
				w.Header().Set("X-Archive-URL", u)
			} else {
				log.Printf("export %s: signed url: %v", id, err)
			}
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = w.Write(buf.Bytes())
	}
}

// GET /classes/{classID}/reports/{fileName} serves a previously archived report.
func ArchivedReportHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "fileName")
		rc, err := bs.Get(storage.ReportKey(chi.URLParam(r, "classID"), name))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		ct := export.ContentType(strings.TrimPrefix(path.Ext(name), "."))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	}
}

// POST /classes/{classID}/summary
//
// Always 200 once an analysis exists; summarizer failures come back as text.
func SummaryHandler(svc *workspace.Service, s summary.Summarizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _, err := svc.Analysis(r.Context(), chi.URLParam(r, "classID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"report": summary.Report(r.Context(), s, data)})
	}
}

// POST /classes/{classID}/import (multipart: file=roster.xlsx|roster.csv)
func ImportRosterHandler(svc *workspace.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		id := chi.URLParam(r, "classID")
		c, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		var roster []gradebook.Student
		if strings.EqualFold(path.Ext(hdr.Filename), ".csv") {
			roster, err = export.ReadRosterCSV(f, c.Subjects)
		} else {
			roster, err = export.ReadRosterXLSX(f, c.Subjects)
		}
		if err != nil {
			http.Error(w, "import: "+err.Error(), http.StatusBadRequest)
			return
		}

		c, err = svc.ReplaceRoster(r.Context(), id, roster)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(c))
	}
}
