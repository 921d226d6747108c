package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/api/presenter"
	"github.com/darmiel/fxrelay/internal/core"
)

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	if s.audits == nil {
		presenter.Error(w, r, "audit log is not queryable", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterID := q.Get("id")
	filterSubject := q.Get("subject_id")
	filterAction := q.Get("action")
	filterFingerprint := q.Get("fingerprint")

	limit := 50
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	if filterID != "" || filterSubject != "" || filterAction != "" || filterFingerprint != "" {
		logger.Debug().Msg("applying audit log filters")
		entries = s.audits.Find(func(entry core.AuditEntry) bool {
			if filterID != "" && entry.ID != filterID {
				return false
			}
			if filterSubject != "" && entry.SubjectID != filterSubject {
				return false
			}
			if filterAction != "" && entry.Action != filterAction {
				return false
			}
			if filterFingerprint != "" && entry.AssertionFingerprint != filterFingerprint {
				return false
			}
			return true
		})
		if limit > 0 && len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
	} else {
		entries = s.audits.GetRecent(limit)
	}

	if entries == nil {
		entries = []core.AuditEntry{}
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}

// handleWorkerStatus responds with the status of the in-process consumer.
func (s *Server) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		presenter.Error(w, r, "no worker runs in this process", http.StatusNotFound)
		return
	}
	presenter.JSON(w, r, s.worker.Status(), http.StatusOK)
}

// handleWorkerPoll processes one batch right away.
func (s *Server) handleWorkerPoll(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		presenter.Error(w, r, "no worker runs in this process", http.StatusNotFound)
		return
	}
	report, err := s.worker.ProcessOnce(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("manual poll failed")
		presenter.Error(w, r, "poll failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, report, http.StatusOK)
}
