// Package server exposes the review workflow over a local HTTP API. The
// review frontend is a separate client; this layer only supplies the data
// contracts it consumes.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/clinmatch/trialaudit/internal/export"
	"github.com/clinmatch/trialaudit/internal/records"
	"github.com/clinmatch/trialaudit/internal/review"
)

var md = goldmark.New()

// Server is the HTTP server for the review session.
type Server struct {
	session *Session
	reviews *review.Store
	drafts  *review.DraftCache
	mux     *http.ServeMux
}

// New creates a new Server over a session and the two stores.
func New(session *Session, reviews *review.Store, drafts *review.DraftCache) *Server {
	s := &Server{session: session, reviews: reviews, drafts: drafts, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/cases", s.handleCases)
	s.mux.HandleFunc("/api/records", s.handleRecords)
	s.mux.HandleFunc("/api/draft", s.handleDraft)
	s.mux.HandleFunc("/api/reviews", s.handleReviews)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/export/simple.csv", s.handleExportSimple)
	s.mux.HandleFunc("/export/full.csv", s.handleExportFull)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ready, err := s.session.State()
	switch {
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"state": "error",
			"error": err.Error(),
		})
	case !ready:
		writeJSON(w, http.StatusOK, map[string]any{"state": "loading"})
	default:
		ix := s.session.Index()
		writeJSON(w, http.StatusOK, map[string]any{
			"state":   "ready",
			"cases":   ix.Len(),
			"records": ix.TotalRecords(),
		})
	}
}

// gate enforces the load state for every endpoint other than status.
func (s *Server) gate(w http.ResponseWriter) (*records.CaseIndex, bool) {
	ready, err := s.session.State()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session load failed: "+err.Error())
		return nil, false
	}
	if !ready {
		writeError(w, http.StatusServiceUnavailable, "grading data is still loading")
		return nil, false
	}
	return s.session.Index(), true
}

type casePayload struct {
	Key        string `json:"key"`
	CaseText   string `json:"case_text"`
	TrialCount int    `json:"trial_count"`
	Reviewed   int    `json:"reviewed"`
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	ix, ok := s.gate(w)
	if !ok {
		return
	}

	var cases []casePayload
	for _, key := range ix.Keys() {
		g, _ := ix.Group(key)
		reviewed := 0
		for i := range g.Records {
			if _, ok := s.reviews.Get(g.Records[i].TrialID, g.Records[i].CaseText); ok {
				reviewed++
			}
		}
		cases = append(cases, casePayload{
			Key:        g.Key,
			CaseText:   g.Display,
			TrialCount: len(g.Records),
			Reviewed:   reviewed,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

type recordPayload struct {
	Record               records.TrialGradingRecord `json:"record"`
	ModelReasoningHTML   string                     `json:"model_reasoning_html,omitempty"`
	JudgeExplanationHTML string                     `json:"judge_explanation_html,omitempty"`
	Review               *review.ReviewedRecord     `json:"review,omitempty"`
	Draft                *review.DraftEntry         `json:"draft,omitempty"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ix, ok := s.gate(w)
	if !ok {
		return
	}

	caseText := r.URL.Query().Get("case")
	g, ok := ix.Group(caseText)
	if !ok {
		writeError(w, http.StatusNotFound, "no such case")
		return
	}

	payload := make([]recordPayload, 0, len(g.Records))
	for i := range g.Records {
		rec := g.Records[i]
		p := recordPayload{
			Record:               rec,
			ModelReasoningHTML:   renderMarkdown(rec.ModelReasoning),
			JudgeExplanationHTML: renderMarkdown(rec.JudgeExplanation),
		}
		if rv, ok := s.reviews.Get(rec.TrialID, rec.CaseText); ok {
			p.Review = &rv
		}
		if d, ok := s.drafts.Get(rec.TrialID, rec.CaseText); ok {
			p.Draft = &d
		}
		payload = append(payload, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"case_text": g.Display,
		"records":   payload,
	})
}

type draftRequest struct {
	TrialID    string  `json:"trial_id"`
	CaseText   string  `json:"case_text"`
	HumanGrade *string `json:"human_grade"`
	Comments   *string `json:"comments"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.gate(w); !ok {
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPost:
		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid draft payload")
			return
		}
		entry := s.drafts.Set(req.TrialID, req.CaseText, review.DraftPatch{
			HumanGrade: req.HumanGrade,
			Comments:   req.Comments,
		})
		writeJSON(w, http.StatusOK, map[string]any{"draft": entry})
	case http.MethodDelete:
		s.drafts.Delete(r.URL.Query().Get("trial_id"), r.URL.Query().Get("case"))
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type submitRequest struct {
	TrialID    string `json:"trial_id"`
	CaseText   string `json:"case_text"`
	HumanGrade string `json:"human_grade"`
	Comments   string `json:"comments"`
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	ix, ok := s.gate(w)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"reviews": s.reviews.All()})
	case http.MethodPost:
		s.handleSubmit(w, r, ix)
	case http.MethodDelete:
		// Undo: idempotent, never touches the draft cache.
		removed := s.reviews.Remove(r.URL.Query().Get("trial_id"), r.URL.Query().Get("case"))
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, ix *records.CaseIndex) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid review payload")
		return
	}

	rec, ok := ix.Find(req.TrialID, req.CaseText)
	if !ok {
		writeError(w, http.StatusNotFound, "no record with that trial and case")
		return
	}

	entry, err := s.reviews.Upsert(*rec, req.HumanGrade, req.Comments)
	if errors.Is(err, review.ErrMissingGrade) {
		writeError(w, http.StatusUnprocessableEntity, "select a grade before submitting")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Submit materializes the draft into the store; the scratch copy goes.
	s.drafts.Delete(req.TrialID, req.CaseText)
	writeJSON(w, http.StatusOK, map[string]any{"review": entry})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.gate(w); !ok {
		return
	}

	st := s.reviews.Stats()
	payload := map[string]any{
		"total":          st.Total,
		"agreements":     st.Agreements,
		"agreement_rate": nil,
	}
	// The empty-store rate is NaN, which JSON cannot carry; null is the
	// wire rendering of "undefined, guard before use".
	if !math.IsNaN(st.AgreementRate) {
		payload["agreement_rate"] = st.AgreementRate
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleExportSimple(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.gate(w); !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reviews_simple.csv"`)
	if err := export.WriteSimple(w, s.reviews.All()); err != nil {
		log.Printf("writing simple export: %v", err)
	}
}

func (s *Server) handleExportFull(w http.ResponseWriter, r *http.Request) {
	ix, ok := s.gate(w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reviews_full.csv"`)
	if err := export.WriteFull(w, s.reviews.All(), ix); err != nil {
		log.Printf("writing full export: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// renderMarkdown converts free-text reasoning to HTML for the client,
// falling back to escaped text if conversion fails.
func renderMarkdown(text string) string {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTMLEscapeString(text)
	}
	return buf.String()
}

// Serve starts the HTTP server on the given port.
func Serve(session *Session, reviews *review.Store, drafts *review.DraftCache, port int) error {
	srv := New(session, reviews, drafts)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
