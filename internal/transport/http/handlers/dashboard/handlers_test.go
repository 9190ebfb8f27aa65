package dashboardhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"flexidays/internal/backend"
	"flexidays/internal/domain/leave"
	"flexidays/internal/requestctx"
	"flexidays/internal/session"
)

type stubBackend struct{}

func (stubBackend) FetchLeaveDocument(ctx context.Context) (leave.Document, error) {
	return leave.Document{}, nil
}

func (stubBackend) SaveLeaveDocument(ctx context.Context, doc leave.Document) error {
	return nil
}

type stubFeed struct {
	feed    backend.DashboardFeed
	feedErr error
}

func (s stubFeed) DashboardFeed(ctx context.Context) (backend.DashboardFeed, error) {
	return s.feed, s.feedErr
}

func (s stubFeed) UserDirectory(ctx context.Context) (backend.UserDirectory, error) {
	return backend.UserDirectory{
		Users:        []leave.User{{ID: "EMP001", FullName: "Sophie Martin"}},
		LeaveBalance: map[string]leave.LeaveBalance{"EMP001": {TotalDays: 20}},
	}, nil
}

func getOverview(t *testing.T, handler *Handler) (*httptest.ResponseRecorder, overview) {
	t.Helper()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(requestctx.WithSession(req.Context(), &session.Session{
		ID: "sess-1", UserID: "EMP001", Role: session.RoleEmployee,
	}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope struct {
		Data overview `json:"data"`
	}
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode overview: %v", err)
		}
	}
	return rec, envelope.Data
}

func TestOverviewIncludesFeed(t *testing.T) {
	handler := NewHandler(leave.NewStore(stubBackend{}), stubFeed{feed: backend.DashboardFeed{
		UpcomingLeaves: []leave.UpcomingLeave{
			{Type: "Congés payés", Dates: "2026-09-14 - 2026-09-18"},
			{Type: "RTT", Dates: "2026-10-02 - 2026-10-02"},
			{Type: "Congé maladie", Dates: "2026-10-12 - 2026-10-13"},
			{Type: "Formation", Dates: "2026-11-09 - 2026-11-10"},
		},
		Notifications: []leave.Notification{{Title: "Rappel", Message: "Posez vos RTT."}},
	}})

	rec, result := getOverview(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(result.Upcoming) != 3 {
		t.Fatalf("expected the first 3 feed entries, got %d", len(result.Upcoming))
	}
	if len(result.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Notifications))
	}
	if result.Balance.Total != 20 {
		t.Fatalf("expected balance total 20, got %d", result.Balance.Total)
	}
}

func TestOverviewSurvivesFeedFailure(t *testing.T) {
	handler := NewHandler(leave.NewStore(stubBackend{}), stubFeed{
		feedErr: errors.New("connection refused"),
	})

	rec, result := getOverview(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite feed failure, got %d", rec.Code)
	}
	if result.Balance.Total != 20 || result.Balance.Remaining != 20 {
		t.Fatalf("expected balance derived without feed, got %+v", result.Balance)
	}
	if len(result.Upcoming) != 0 || len(result.Notifications) != 0 {
		t.Fatalf("expected empty feed sections, got %+v", result)
	}
}
