package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MrWong99/diktat/internal/align"
	"github.com/MrWong99/diktat/internal/dictation"
	"github.com/MrWong99/diktat/internal/feedback"
	"github.com/MrWong99/diktat/internal/lesson"
	"github.com/MrWong99/diktat/internal/observe"
)

// ── align ────────────────────────────────────────────────────────────────────

// alignRequest accepts either naming: source/target as the aligner sees
// them, or transcript/sentence as a learner sees them.
type alignRequest struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Transcript string `json:"transcript"`
	Sentence   string `json:"sentence"`
	Trim       bool   `json:"trim"`
}

type alignResponse struct {
	Spans align.Path      `json:"spans"`
	Items []feedback.Item `json:"items"`
	Score feedback.Score  `json:"score"`
	Empty bool            `json:"empty"`
	HTML  string          `json:"html"`
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	source, target := req.Source, req.Target
	if req.Transcript != "" || req.Sentence != "" {
		if source != "" || target != "" {
			writeError(w, http.StatusBadRequest, "use either source/target or transcript/sentence")
			return
		}
		source, target = req.Transcript, req.Sentence
	}

	res := s.Settings().Evaluator.Evaluate(r.Context(), dictation.OriginHTTP, source, target, req.Trim)
	spans := res.Path
	if spans == nil {
		spans = align.Path{}
	}
	writeJSON(w, http.StatusOK, alignResponse{
		Spans: spans,
		Items: res.Feedback.Items,
		Score: res.Feedback.Score,
		Empty: res.Feedback.Empty,
		HTML:  feedback.HTML(res.Feedback),
	})
}

// ── lessons ──────────────────────────────────────────────────────────────────

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		writeError(w, http.StatusServiceUnavailable, "lessons are not configured")
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		url = s.documentURL
	}
	if url == "" {
		writeError(w, http.StatusBadRequest, "no lesson document configured")
		return
	}
	if _, ok := s.documents[url]; !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("lesson document %q is not served here", url))
		return
	}

	l, err := s.fetcher.Lesson(r.Context(), url, r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, l)
	case errors.Is(err, lesson.ErrSectionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		observe.Logger(r.Context()).Warn("lesson fetch failed", "url", url, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// ── attempts ─────────────────────────────────────────────────────────────────

const defaultAttemptLimit = 20

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "attempt persistence is disabled")
		return
	}
	limit := defaultAttemptLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("reading attempts failed", "backend", s.backend, "err", err)
		writeError(w, http.StatusInternalServerError, "reading attempts failed")
		return
	}
	writeJSON(w, http.StatusOK, records)
}
