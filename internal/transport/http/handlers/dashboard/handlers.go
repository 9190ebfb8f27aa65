package dashboardhandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flexidays/internal/backend"
	"flexidays/internal/domain/leave"
	"flexidays/internal/requestctx"
	"flexidays/internal/transport/http/api"
	"flexidays/internal/transport/http/middleware"
)

const upcomingLimit = 3

// Feed supplies the static dashboard dataset and the user directory.
type Feed interface {
	DashboardFeed(ctx context.Context) (backend.DashboardFeed, error)
	UserDirectory(ctx context.Context) (backend.UserDirectory, error)
}

type Handler struct {
	Store *leave.Store
	Feed  Feed
}

func NewHandler(store *leave.Store, feed Feed) *Handler {
	return &Handler{Store: store, Feed: feed}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.handleOverview)
		r.Get("/balance", h.handleBalance)
		r.Get("/upcoming", h.handleUpcoming)
		r.Get("/notifications", h.handleNotifications)
	})
}

type overview struct {
	User          *leave.User           `json:"user,omitempty"`
	Balance       leave.BalanceSummary  `json:"balance"`
	StatusCounts  leave.StatusSummary   `json:"statusCounts"`
	Upcoming      []leave.UpcomingLeave `json:"upcomingLeaves"`
	Notifications []leave.Notification  `json:"notifications"`
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}

	directory, err := h.Feed.UserDirectory(r.Context())
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "directory_failed", "failed to load user directory", middleware.GetRequestID(r.Context()))
		return
	}

	requests := h.Store.Requests(s.UserID)
	result := overview{
		User:         directory.UserByID(s.UserID),
		Balance:      leave.Balance(requests, directory.TotalDays(s.UserID)),
		StatusCounts: leave.StatusCounts(requests),
	}

	if feed, err := h.Feed.DashboardFeed(r.Context()); err == nil {
		result.Upcoming = leave.Upcoming(feed.UpcomingLeaves, upcomingLimit)
		result.Notifications = feed.Notifications
	} else {
		slog.Warn("dashboard overview rendered without feed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
	}

	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	s, ok := requestctx.GetSession(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "no_session", "session required", middleware.GetRequestID(r.Context()))
		return
	}
	directory, err := h.Feed.UserDirectory(r.Context())
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "directory_failed", "failed to load user directory", middleware.GetRequestID(r.Context()))
		return
	}
	balance := leave.Balance(h.Store.Requests(s.UserID), directory.TotalDays(s.UserID))
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	feed, err := h.Feed.DashboardFeed(r.Context())
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "feed_failed", "failed to load dashboard feed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, leave.Upcoming(feed.UpcomingLeaves, upcomingLimit), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	feed, err := h.Feed.DashboardFeed(r.Context())
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "feed_failed", "failed to load dashboard feed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, feed.Notifications, middleware.GetRequestID(r.Context()))
}
