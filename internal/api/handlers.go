package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/kval/internal/engine"
	"github.com/sells-group/kval/internal/examples"
	"github.com/sells-group/kval/internal/model"
	"github.com/sells-group/kval/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetKnowledge(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.GetSnapshot(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePutKnowledge(w http.ResponseWriter, r *http.Request) {
	var snap model.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "api: decode snapshot"))
		return
	}
	if snap.KnowledgeBaseID == "" || snap.SnapshotID == "" {
		respondError(w, http.StatusBadRequest, eris.New("api: knowledge_base_id and snapshot_id are required"))
		return
	}
	if err := s.store.SaveSnapshot(r.Context(), &snap); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, &snap)
}

func (s *Server) handleGetReference(w http.ResponseWriter, r *http.Request) {
	pol, err := s.store.GetPolicy(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, pol)
}

func (s *Server) handlePutReference(w http.ResponseWriter, r *http.Request) {
	var pol model.Policy
	if err := json.NewDecoder(r.Body).Decode(&pol); err != nil {
		respondError(w, http.StatusBadRequest, eris.Wrap(err, "api: decode policy"))
		return
	}
	if pol.MinReliability < 0 || pol.MinReliability > 1 {
		respondError(w, http.StatusBadRequest, eris.New("api: min_reliability must be within [0, 1]"))
		return
	}
	if err := s.store.SavePolicy(r.Context(), &pol); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, &pol)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.store.GetSnapshot(ctx)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	pol, err := s.store.GetPolicy(ctx)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	var aiText string
	if r.URL.Query().Get("ai") == "true" {
		if s.summarizer == nil {
			respondError(w, http.StatusBadRequest, eris.New("api: AI summarizer is not configured"))
			return
		}
		deterministic := engine.Validate(snap, pol, "")
		aiText, err = s.summarizer.Summarize(ctx, snap, pol, deterministic)
		if err != nil {
			respondError(w, http.StatusBadGateway, eris.Wrap(err, "api: AI summary"))
			return
		}
	}

	report := engine.Validate(snap, pol, aiText)
	if _, err := s.store.SaveReport(ctx, report); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// handleGetReport returns the latest stored report, generating one first
// when none exists yet.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := s.store.GetLatestReport(ctx)
	if err == nil {
		respondJSON(w, http.StatusOK, report)
		return
	}
	if statusFor(err) != http.StatusNotFound {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	snap, err := s.store.GetSnapshot(ctx)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	pol, err := s.store.GetPolicy(ctx)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	report = engine.Validate(snap, pol, "")
	if _, err := s.store.SaveReport(ctx, report); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, eris.Errorf("api: invalid limit %q", raw))
			return
		}
		limit = n
	}
	reports, err := s.store.ListReports(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if reports == nil {
		reports = []store.StoredReport{}
	}
	respondJSON(w, http.StatusOK, map[string][]store.StoredReport{"reports": reports})
}

func (s *Server) handleListExamples(w http.ResponseWriter, r *http.Request) {
	names, err := examples.List(s.examplesDir)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"examples": names})
}

func (s *Server) handleLoadExample(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, pol, err := examples.Load(s.examplesDir, name)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, examples.ErrInvalidName) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err)
		return
	}
	ctx := r.Context()
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.SavePolicy(ctx, pol); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":      "loaded",
		"example":     name,
		"snapshot_id": snap.SnapshotID,
	})
}
