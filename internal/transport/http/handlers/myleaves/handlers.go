package myleaveshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flexidays/internal/domain/leave"
	"flexidays/internal/requestctx"
	"flexidays/internal/session"
	"flexidays/internal/transport/http/api"
	"flexidays/internal/transport/http/middleware"
)

const recentLimit = 3

type Handler struct {
	Store   *leave.Store
	Manager *session.Manager
}

func NewHandler(store *leave.Store, manager *session.Manager) *Handler {
	return &Handler{Store: store, Manager: manager}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/leave-types", h.handleListTypes)
	r.Route("/my", func(r chi.Router) {
		r.Get("/requests", h.handleListRequests)
		r.Post("/requests", h.handleSubmit)
		r.Get("/requests/recent", h.handleRecent)
		r.Delete("/requests/{requestID}", h.handleDeleteDraft)
		r.Post("/requests/{requestID}/cancel", h.handleCancel)
		r.Post("/requests/{requestID}/edit", h.handleSeedEdit)
		r.Post("/requests/{requestID}/renew", h.handleSeedRenew)
		r.Get("/drafts", h.handleListDrafts)
		r.Post("/drafts", h.handleSaveDraft)
		r.Get("/edit", h.handleGetEdit)
		r.Delete("/edit", h.handleClearEdit)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, leave.TypeOptions(), middleware.GetRequestID(r.Context()))
}

type requestStats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

type requestList struct {
	Requests []leave.LeaveRequest `json:"requests"`
	Stats    requestStats         `json:"stats"`
}

// handleListRequests returns the submitted history. Stats always cover
// the full history even when a status filter narrows the listed rows.
func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}

	submitted := leave.Submitted(h.Store.Requests(s.UserID))
	counts := leave.StatusCounts(submitted)
	stats := requestStats{
		Total:    len(submitted),
		Approved: counts.Approved,
		Pending:  counts.Pending,
		Rejected: counts.Rejected,
	}

	// The quick filter shares the board filter's sentinel handling:
	// "tous"/"toutes" leave the history untouched.
	submitted = leave.Filter(submitted, nil, leave.FilterCriteria{Status: r.URL.Query().Get("status")})

	api.Success(w, requestList{Requests: submitted, Stats: stats}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, leave.Drafts(h.Store.Requests(s.UserID)), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	recent := leave.Recent(leave.Submitted(h.Store.Requests(s.UserID)), recentLimit)
	api.Success(w, recent, middleware.GetRequestID(r.Context()))
}

// handleSubmit submits a request for review. When the session carries an
// edit context the source record is replaced in place, unless the
// context is a renewal, which always produces a fresh record.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.handleUpsert(w, r, leave.StatusPending)
}

func (h *Handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	h.handleUpsert(w, r, leave.StatusDraft)
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request, status string) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}

	var fields leave.RequestFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	var (
		record leave.LeaveRequest
		err    error
	)
	if edit := s.EditRequest; edit != nil && !edit.IsNew {
		record, err = h.Store.Update(r.Context(), s.UserID, edit.Request.ID, fields, status)
	} else {
		record, err = h.Store.Create(r.Context(), s.UserID, fields, status)
	}
	if err != nil && !errors.Is(err, leave.ErrSyncFailed) {
		api.FailFromError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if s.EditRequest != nil {
		if _, clearErr := h.Manager.ClearEditRequest(r.Context(), s.ID); clearErr == nil {
			s.EditRequest = nil
		}
	}

	if err != nil {
		// Local state holds the record; the remote sync will be retried
		// on the next mutation.
		api.WriteJSON(w, http.StatusAccepted, api.Envelope{
			Success:   true,
			Data:      record,
			RequestID: middleware.GetRequestID(r.Context()),
		})
		return
	}
	api.Created(w, record, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := requestID(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.Delete(r.Context(), s.UserID, id); err != nil {
		api.FailFromError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := requestID(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.Cancel(r.Context(), s.UserID, id); err != nil {
		api.FailFromError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "cancelled"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSeedEdit(w http.ResponseWriter, r *http.Request) {
	h.seed(w, r, false)
}

func (h *Handler) handleSeedRenew(w http.ResponseWriter, r *http.Request) {
	h.seed(w, r, true)
}

func (h *Handler) seed(w http.ResponseWriter, r *http.Request, isNew bool) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := requestID(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}
	record, err := h.Store.Get(s.UserID, id)
	if err != nil {
		api.FailFromError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	updated, err := h.Manager.SetEditRequest(r.Context(), s.ID, record, isNew)
	if err != nil {
		api.FailFromError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, updated.EditRequest, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	if s.EditRequest == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "no request is being edited", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, s.EditRequest, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClearEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	if _, err := h.Manager.ClearEditRequest(r.Context(), s.ID); err != nil {
		api.FailFromError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "cleared"}, middleware.GetRequestID(r.Context()))
}

func requestID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "requestID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
