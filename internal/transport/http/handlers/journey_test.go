package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"flexidays/internal/app/server"
	"flexidays/internal/domain/leave"
	"flexidays/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

// mockBackend is an in-process stand-in for the JSON document mock.
type mockBackend struct {
	mu  sync.Mutex
	doc leave.Document
}

func (m *mockBackend) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/UserIfon", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"users": []map[string]any{
				{"id": "EMP001", "name": "Sophie", "fullName": "Sophie Martin", "department": "Marketing"},
				{"id": "EMP002", "name": "Thomas", "fullName": "Thomas Dubois", "department": "Informatique"},
				{"id": "RH001", "name": "Claire", "fullName": "Claire Bernard", "department": "Ressources Humaines"},
			},
			"leaveBalance": map[string]any{
				"EMP001": map[string]int{"totalDays": 20},
				"EMP002": map[string]int{"totalDays": 25},
			},
		})
	})
	mux.HandleFunc("/DashboardPage", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"upcomingLeaves": []map[string]string{
				{"type": "Congés payés", "dates": "2026-09-14 - 2026-09-18"},
				{"type": "RTT", "dates": "2026-10-02 - 2026-10-02"},
				{"type": "Congé maladie", "dates": "2026-10-12 - 2026-10-13"},
				{"type": "Formation", "dates": "2026-11-09 - 2026-11-10"},
			},
			"notifications": []map[string]string{
				{"title": "Rappel", "message": "Posez vos RTT avant décembre."},
			},
		})
	})
	mux.HandleFunc("/MyCongesPage", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, m.doc)
		case http.MethodPut:
			var incoming leave.Document
			if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			m.doc = incoming
			writeJSON(t, w, m.doc)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("write mock response: %v", err)
	}
}

func newTestApp(t *testing.T) (*server.App, *httptest.Server, *mockBackend) {
	t.Helper()

	mock := &mockBackend{doc: leave.Document{
		LeaveRequests: map[string][]leave.LeaveRequest{"EMP001": {}},
		Version:       1,
	}}
	backendServer := httptest.NewServer(mock.handler(t))
	t.Cleanup(backendServer.Close)

	cfg := config.Config{
		Addr:          ":0",
		BackendURL:    backendServer.URL,
		SyncTimeout:   2 * time.Second,
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		Environment:   "test",
		MaxBodyBytes:  1048576,
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts, mock
}

func establishSession(t *testing.T, baseURL, userID string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"userId": userID})
	resp, err := http.Post(baseURL+"/api/v1/session", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("establish session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("establish session: expected 201, got %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	var payload struct {
		Token   string `json:"token"`
		Role    string `json:"role"`
		Landing string `json:"landing"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode session payload: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("expected a session token")
	}
	return payload.Token
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp, env
}

func TestEmployeeSubmissionAndApprovalJourney(t *testing.T) {
	_, ts, mock := newTestApp(t)

	employeeToken := establishSession(t, ts.URL, "EMP001")

	// Fresh history: the full allotment is available.
	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/dashboard/balance", employeeToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard balance: expected 200, got %d", resp.StatusCode)
	}
	var balance leave.BalanceSummary
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Total != 20 || balance.Remaining != 20 {
		t.Fatalf("expected untouched balance 20/20, got %+v", balance)
	}

	resp, env = doJSON(t, http.MethodPost, ts.URL+"/api/v1/my/requests", employeeToken, map[string]string{
		"type":      "conges-payes",
		"startDate": "2026-09-01",
		"endDate":   "2026-09-03",
		"reason":    "Vacances",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", resp.StatusCode)
	}
	var submitted leave.LeaveRequest
	if err := json.Unmarshal(env.Data, &submitted); err != nil {
		t.Fatalf("decode submitted: %v", err)
	}
	if submitted.Status != leave.StatusPending {
		t.Fatalf("expected pending status, got %s", submitted.Status)
	}
	if submitted.Duration != 3 {
		t.Fatalf("expected inclusive duration 3, got %d", submitted.Duration)
	}
	if submitted.Type != "Congés payés" {
		t.Fatalf("expected canonical type, got %q", submitted.Type)
	}

	hrToken := establishSession(t, ts.URL, "RH001")

	resp, env = doJSON(t, http.MethodGet, ts.URL+"/api/v1/admin/requests", hrToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list: expected 200, got %d", resp.StatusCode)
	}
	var reviewBoard struct {
		Requests []leave.LeaveRequest `json:"requests"`
		Stats    struct {
			Pending         int `json:"pending"`
			ActiveEmployees int `json:"activeEmployees"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(env.Data, &reviewBoard); err != nil {
		t.Fatalf("decode admin list: %v", err)
	}
	if reviewBoard.Stats.Pending != 1 {
		t.Fatalf("expected 1 pending request, got %d", reviewBoard.Stats.Pending)
	}
	if reviewBoard.Stats.ActiveEmployees != 2 {
		t.Fatalf("expected 2 active employees, got %d", reviewBoard.Stats.ActiveEmployees)
	}

	approveURL := fmt.Sprintf("%s/api/v1/admin/users/EMP001/requests/%d/approve", ts.URL, submitted.ID)
	resp, env = doJSON(t, http.MethodPost, approveURL, hrToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", resp.StatusCode)
	}
	var approved leave.LeaveRequest
	if err := json.Unmarshal(env.Data, &approved); err != nil {
		t.Fatalf("decode approved: %v", err)
	}
	if approved.Status != leave.StatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}

	// The balance reflects the approval.
	resp, env = doJSON(t, http.MethodGet, ts.URL+"/api/v1/dashboard/balance", employeeToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard balance after approval: expected 200, got %d", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Used != 3 || balance.Remaining != 17 {
		t.Fatalf("expected balance used 3 remaining 17, got %+v", balance)
	}

	// Every applied mutation was pushed to the document mock.
	mock.mu.Lock()
	synced := mock.doc.LeaveRequests["EMP001"]
	mock.mu.Unlock()
	if len(synced) != 1 || synced[0].Status != leave.StatusApproved {
		t.Fatalf("expected approved request synced to backend, got %+v", synced)
	}

	// Renewing the decided request creates a fresh record instead of
	// touching the approved one.
	renewURL := fmt.Sprintf("%s/api/v1/my/requests/%d/renew", ts.URL, approved.ID)
	resp, _ = doJSON(t, http.MethodPost, renewURL, employeeToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seed renew: expected 200, got %d", resp.StatusCode)
	}

	resp, env = doJSON(t, http.MethodPost, ts.URL+"/api/v1/my/requests", employeeToken, map[string]string{
		"type":      "conges-payes",
		"startDate": "2026-12-28",
		"endDate":   "2026-12-30",
		"reason":    "Fêtes de fin d'année",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("renew submit: expected 201, got %d", resp.StatusCode)
	}
	var renewed leave.LeaveRequest
	if err := json.Unmarshal(env.Data, &renewed); err != nil {
		t.Fatalf("decode renewed: %v", err)
	}
	if renewed.ID == approved.ID {
		t.Fatal("expected renewal to create a fresh record")
	}
	if renewed.Status != leave.StatusPending {
		t.Fatalf("expected renewed request pending, got %s", renewed.Status)
	}
}

func TestEmployeeCannotReachAdministration(t *testing.T) {
	_, ts, _ := newTestApp(t)

	employeeToken := establishSession(t, ts.URL, "EMP001")

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/admin/requests", employeeToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for employee on administration, got %d", resp.StatusCode)
	}
}

func TestUnknownIdentifierRejected(t *testing.T) {
	_, ts, _ := newTestApp(t)

	body, _ := json.Marshal(map[string]string{"userId": "XX999"})
	resp, err := http.Post(ts.URL+"/api/v1/session", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("establish session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown identifier, got %d", resp.StatusCode)
	}
}

func TestDraftLifecycleAndEditSlot(t *testing.T) {
	_, ts, _ := newTestApp(t)

	token := establishSession(t, ts.URL, "EMP001")

	// Drafts skip validation and carry no submitted date.
	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/my/drafts", token, map[string]string{
		"type":      "rtt",
		"startDate": "2026-10-05",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save draft: expected 201, got %d", resp.StatusCode)
	}
	var draft leave.LeaveRequest
	if err := json.Unmarshal(env.Data, &draft); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	if draft.Status != leave.StatusDraft || draft.SubmittedDate != "" {
		t.Fatalf("expected undated draft, got %+v", draft)
	}

	// Seed the edit slot from the draft, then submit through it.
	editURL := fmt.Sprintf("%s/api/v1/my/requests/%d/edit", ts.URL, draft.ID)
	resp, _ = doJSON(t, http.MethodPost, editURL, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seed edit: expected 200, got %d", resp.StatusCode)
	}

	resp, env = doJSON(t, http.MethodPost, ts.URL+"/api/v1/my/requests", token, map[string]string{
		"type":      "rtt",
		"startDate": "2026-10-05",
		"endDate":   "2026-10-05",
		"reason":    "Rendez-vous",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit via edit slot: expected 201, got %d", resp.StatusCode)
	}
	var submitted leave.LeaveRequest
	if err := json.Unmarshal(env.Data, &submitted); err != nil {
		t.Fatalf("decode submitted: %v", err)
	}
	if submitted.ID != draft.ID {
		t.Fatalf("expected in-place replacement of %d, got %d", draft.ID, submitted.ID)
	}
	if submitted.Status != leave.StatusPending {
		t.Fatalf("expected pending after submission, got %s", submitted.Status)
	}

	// The slot clears after a successful submission.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/my/edit", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected empty edit slot, got %d", resp.StatusCode)
	}

	// A pending request can be cancelled, which removes it.
	cancelURL := fmt.Sprintf("%s/api/v1/my/requests/%d/cancel", ts.URL, submitted.ID)
	resp, _ = doJSON(t, http.MethodPost, cancelURL, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}

	resp, env = doJSON(t, http.MethodGet, ts.URL+"/api/v1/my/requests", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var listing struct {
		Requests []leave.LeaveRequest `json:"requests"`
	}
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Requests) != 0 {
		t.Fatalf("expected empty history after cancel, got %d entries", len(listing.Requests))
	}
}

func TestSubmissionValidationFailure(t *testing.T) {
	_, ts, _ := newTestApp(t)

	token := establishSession(t, ts.URL, "EMP001")

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/my/requests", token, map[string]string{
		"type":      "conges-payes",
		"startDate": "2026-09-01",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", resp.StatusCode)
	}
	if env.Error == nil {
		t.Fatal("expected an error payload")
	}
}
