package server

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/history"
)

// AnalyzeRequest is the body of both analysis routes.
type AnalyzeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`

	// Source labels the code in history, such as a file path.
	Source string `json:"source,omitempty"`

	// Save stores the result in the scan history.
	Save bool `json:"save,omitempty"`
}

// AnalyzeResponse wraps a result with its history id when it was saved.
type AnalyzeResponse struct {
	ID     string `json:"id,omitempty"`
	Result any    `json:"result"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string) (*AnalyzeRequest, error) {
	var req AnalyzeRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := render.DecodeJSON(body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("request body over %d bytes", tooLarge.Limit), errors.ErrInputTooLarge)
		}
		return nil, errors.E(errors.KindInvalidInput, op, "invalid JSON body", err)
	}
	if req.Code == "" {
		return nil, errors.E(errors.KindInvalidInput, op, errors.ErrEmptyInput)
	}
	if req.Source == "" {
		req.Source = "api"
	}
	return &req, nil
}

func auditEvent(r *http.Request, source string) audit.Event {
	return audit.Event{
		Origin:    audit.OriginAPI,
		RequestID: middleware.GetReqID(r.Context()),
		Source:    source,
	}
}

func (s *Server) handleScanSecurity(w http.ResponseWriter, r *http.Request) {
	const op = "server.ScanSecurity"
	req, err := s.decode(w, r, op)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	ev := auditEvent(r, req.Source)
	res, err := s.cfg.Service.ScanSecurity(r.Context(), req.Code, req.Language)
	if err != nil {
		s.cfg.Audit.Scan(ev, nil, err)
		s.renderError(w, r, err)
		return
	}

	resp := AnalyzeResponse{Result: res}
	if req.Save && s.cfg.History != nil {
		rec, err := history.NewSecurityRecord(res, req.Source, req.Code)
		if err == nil {
			err = s.cfg.History.Save(r.Context(), rec)
		}
		if err != nil {
			s.renderError(w, r, errors.E(errors.KindStorage, op, "save scan", err))
			return
		}
		resp.ID = rec.ID
	}
	ev.RecordID = resp.ID
	s.cfg.Audit.Scan(ev, res, nil)
	render.JSON(w, r, resp)
}

func (s *Server) handleAnalyzeHealth(w http.ResponseWriter, r *http.Request) {
	const op = "server.AnalyzeHealth"
	req, err := s.decode(w, r, op)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	ev := auditEvent(r, req.Source)
	res, err := s.cfg.Service.AnalyzeHealth(r.Context(), req.Code, req.Language)
	if err != nil {
		s.cfg.Audit.Health(ev, nil, err)
		s.renderError(w, r, err)
		return
	}

	resp := AnalyzeResponse{Result: res}
	if req.Save && s.cfg.History != nil {
		rec, err := history.NewHealthRecord(res, req.Source, req.Code)
		if err == nil {
			err = s.cfg.History.Save(r.Context(), rec)
		}
		if err != nil {
			s.renderError(w, r, errors.E(errors.KindStorage, op, "save analysis", err))
			return
		}
		resp.ID = rec.ID
	}
	ev.RecordID = resp.ID
	s.cfg.Audit.Health(ev, res, nil)
	render.JSON(w, r, resp)
}

func (s *Server) store(op string) (*history.Store, error) {
	if s.cfg.History == nil {
		return nil, errors.E(errors.KindNotFound, op, "history is disabled")
	}
	return s.cfg.History, nil
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	const op = "server.ListHistory"
	st, err := s.store(op)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	var opts history.ListOptions
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.renderError(w, r, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("invalid limit %q", v)))
			return
		}
		opts.Limit = n
	}
	if opts.Kind, err = history.ParseKind(q.Get("kind")); err != nil {
		s.renderError(w, r, errors.E(errors.KindInvalidInput, op, err))
		return
	}

	records, err := st.List(r.Context(), opts)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"records": records, "count": len(records)})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	st, err := s.store("server.GetHistory")
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	rec, err := st.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	st, err := s.store("server.DeleteHistory")
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := st.Delete(r.Context(), id); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.cfg.Audit.Deleted(auditEvent(r, ""), id)
	render.NoContent(w, r)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errors.GetKind(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.cfg.Logger.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}

	name := kind.String()
	if kind == errors.KindUnknown {
		name = errors.KindInternal.String()
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:     err.Error(),
		Kind:      name,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
