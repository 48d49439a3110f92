package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fintrax/internal/log"
)

// headerCacheStale is set on responses served from an expired cache entry.
const headerCacheStale = "X-Cache-Stale"

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refresh, err := parseBool(q, "refresh")
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpParse, err)
		return
	}
	allowStale, err := parseBool(q, "stale")
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpParse, err)
		return
	}

	if allowStale && !refresh {
		txs, stale, err := s.finance.StaleTransactions(r.Context())
		if err != nil {
			s.fail(w, r, log.ComponentFinance, log.OpList, err)
			return
		}
		NewJSONResponse().
			Header(headerCacheStale, strconv.FormatBool(stale)).
			Data(txs).
			Write(w)
		return
	}

	txs, err := s.finance.Transactions(r.Context(), refresh)
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpList, err)
		return
	}
	NewJSONResponse().Data(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpParse, err)
		return
	}

	t, err := parseTransaction(parser)
	if err != nil {
		// A malformed field is a validation failure of the submitted transaction.
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.finance.CreateTransaction(r.Context(), t)
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", created.ID)).
		Data(created).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpParse, err)
		return
	}
	if err := s.finance.DeleteTransaction(r.Context(), id); err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	refresh, err := parseBool(r.URL.Query(), "refresh")
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpParse, err)
		return
	}
	summary, err := s.finance.Summary(r.Context(), refresh)
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	refresh, err := parseBool(r.URL.Query(), "refresh")
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpParse, err)
		return
	}
	snap, err := s.finance.Snapshot(r.Context(), refresh)
	if err != nil {
		s.fail(w, r, log.ComponentFinance, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(snap).Write(w)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.cache.Stats()).Write(w)
}

type invalidateRequest struct {
	Key     string   `json:"key"`
	Keys    []string `json:"keys"`
	Pattern string   `json:"pattern"`
}

var errEmptyInvalidation = fmt.Errorf("%w: key, keys or pattern is required", errBadRequest)

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if err = bodyReadError(err); !errors.Is(err, errBodyTooLarge) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		s.fail(w, r, log.ComponentCache, log.OpParse, err)
		return
	}

	keys := req.Keys
	if req.Key != "" {
		keys = append([]string{req.Key}, keys...)
	}
	if len(keys) == 0 && req.Pattern == "" {
		s.fail(w, r, log.ComponentCache, log.OpInvalidate, errEmptyInvalidation)
		return
	}

	removed, err := s.finance.Invalidate(r.Context(), req.Pattern, keys)
	if err != nil {
		s.fail(w, r, log.ComponentCache, log.OpInvalidate, err)
		return
	}
	NewJSONResponse().Data(map[string]int{"removed": removed}).Write(w)
}
