package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/gradewise/internal/lms"
	"github.com/mind-engage/gradewise/internal/workspace"
)

type publishReq struct {
	LineItemsURL string `json:"lineitems_url" validate:"required,url"`
}

// POST /classes/{classID}/publish pushes percentages to an LMS gradebook.
// Only submitted classes can be published.
func PublishHandler(svc *workspace.Service, p *lms.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req publishReq
		if err := decode(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
		id := chi.URLParam(r, "classID")
		data, c, err := svc.Analysis(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if c.Phase != workspace.PhaseResults {
			writeError(w, workspace.ErrWrongPhase)
			return
		}
		res, err := p.Publish(r.Context(), req.LineItemsURL, id, data)
		switch {
		case errors.Is(err, lms.ErrNoLineItemsURL):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			http.Error(w, "publish: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
