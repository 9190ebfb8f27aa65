package sessionhandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flexidays/internal/backend"
	"flexidays/internal/domain/leave"
	"flexidays/internal/requestctx"
	"flexidays/internal/session"
	"flexidays/internal/transport/http/api"
	"flexidays/internal/transport/http/middleware"
)

// Directory resolves user profiles for the login surface.
type Directory interface {
	UserDirectory(ctx context.Context) (backend.UserDirectory, error)
}

type Handler struct {
	Manager   *session.Manager
	Directory Directory
}

func NewHandler(manager *session.Manager, directory Directory) *Handler {
	return &Handler{Manager: manager, Directory: directory}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleEstablish)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(h.Manager))
		r.Get("/session", h.handleCurrent)
		r.Delete("/session", h.handleEnd)
		r.Post("/session/authorize", h.handleAuthorize)
	})
}

type establishRequest struct {
	UserID string `json:"userId"`
}

type establishResponse struct {
	UserID  string           `json:"userId"`
	Role    string           `json:"role"`
	User    *leave.User      `json:"user,omitempty"`
	Landing string           `json:"landing"`
	Token   string           `json:"token"`
	Access  session.Decision `json:"access"`
}

func (h *Handler) handleEstablish(w http.ResponseWriter, r *http.Request) {
	var payload establishRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	role := session.RoleForUser(payload.UserID)
	if role == session.RoleInvalid {
		api.Fail(w, http.StatusUnauthorized, "unknown_identifier", "identifiant inconnu", middleware.GetRequestID(r.Context()))
		return
	}

	s, token, err := h.Manager.Establish(r.Context(), payload.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_failed", "failed to establish session", middleware.GetRequestID(r.Context()))
		return
	}

	landing := session.PageDashboard
	if role == session.RoleHR {
		landing = session.PageAdministration
	}

	response := establishResponse{
		UserID:  s.UserID,
		Role:    s.Role,
		Landing: landing,
		Token:   token,
		Access:  session.Authorize(s.UserID, landing),
	}
	if directory, err := h.Directory.UserDirectory(r.Context()); err == nil {
		if user := directory.UserByID(s.UserID); user != nil {
			response.User = user
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.Manager.TTL().Seconds()),
	})
	api.Created(w, response, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, s, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Manager.End(r.Context(), s.ID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_failed", "failed to end session", middleware.GetRequestID(r.Context()))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	api.Success(w, map[string]string{"status": "ended"}, middleware.GetRequestID(r.Context()))
}

type authorizeRequest struct {
	Page string `json:"page"`
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, session.Authorize(s.UserID, payload.Page), middleware.GetRequestID(r.Context()))
}
