package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chitieu/internal/aggregate"
	"chitieu/internal/export"
	"chitieu/internal/intake"
	"chitieu/internal/log"
)

const defaultTop = 3

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports 503 while the last write to the byte store failed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Health(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.renderIndex(w, r, http.StatusOK, s.indexData(win, formView{}))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	asJSON := wantsJSON(r)

	in, err := decodeInput(w, r)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Bad record request", log.FieldError, err)
		if asJSON {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		http.Error(w, "Yêu cầu không hợp lệ", http.StatusBadRequest)
		return
	}

	rec, err := s.deps.Intake.Submit(r.Context(), in)
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		if asJSON {
			writeValidationError(w, verr)
			return
		}
		form := formView{Amount: in.Amount, Category: in.Category, Note: in.Note, Errors: map[string]string{}}
		for _, f := range verr.Fields {
			form.Errors[f.Field] = f.Message
		}
		s.renderIndex(w, r, http.StatusUnprocessableEntity, s.indexData(aggregate.Today(s.now()), form))
		return
	case err != nil:
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Record append failed", err, log.OpAppend, nil)
		if asJSON {
			writeJSONError(w, http.StatusInternalServerError, "could not save record")
			return
		}
		http.Error(w, "Lỗi khi lưu", http.StatusInternalServerError)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogRecordCreated(r.Context(), rec.ID, rec.Amount.String(), string(rec.Category))

	if asJSON {
		w.Header().Set("Location", "/records/"+rec.ID)
		writeJSON(w, http.StatusCreated, toRecordJSON(rec))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	selected := aggregate.Newest(aggregate.Filter(s.deps.Store.Snapshot(), win))
	out := listJSON{
		Window:  win.Name,
		From:    win.From,
		To:      win.To,
		Count:   len(selected),
		Total:   number(aggregate.TotalFor(selected, win)),
		Records: make([]recordJSON, 0, len(selected)),
	}
	for _, rec := range selected {
		out.Records = append(out.Records, toRecordJSON(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDeleteRecord is idempotent: an unknown id still answers 204.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed := s.deps.Store.Remove(r.Context(), id)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Record delete requested",
		log.FieldRecordID, id, "removed", removed)

	if r.Method == http.MethodPost && !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	s.deps.Store.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	top, err := topParam(r, defaultTop)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum := aggregate.Summarize(s.deps.Store.Snapshot(), win, top, s.deps.Budgets)
	writeJSON(w, http.StatusOK, toSummaryJSON(sum, win.Kind == aggregate.KindMonth))
}

// handleExportCSV streams the selected window, or every record for ?window=all.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	records := s.deps.Store.Snapshot()
	name := "all"
	if r.URL.Query().Get("window") != "all" {
		win, err := s.windowParam(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		records = aggregate.Filter(records, win)
		name = win.Name
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chitieu-%s.csv"`, name))
	opts := export.Options{Locale: s.deps.Locale, Location: s.deps.Location, BOM: true}
	if err := export.WriteCSV(w, records, opts); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "CSV export failed", err, log.OpExport, log.NewFields().WithCount(len(records)))
	}
}
