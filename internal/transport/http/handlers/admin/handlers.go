package adminhandler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"flexidays/internal/backend"
	"flexidays/internal/domain/leave"
	"flexidays/internal/session"
	"flexidays/internal/transport/http/api"
	"flexidays/internal/transport/http/middleware"
)

// Directory resolves the employee roster for the review board.
type Directory interface {
	UserDirectory(ctx context.Context) (backend.UserDirectory, error)
}

type Handler struct {
	Store     *leave.Store
	Directory Directory
}

func NewHandler(store *leave.Store, directory Directory) *Handler {
	return &Handler{Store: store, Directory: directory}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(session.RoleHR))
		r.Get("/requests", h.handleListRequests)
		r.Post("/users/{userID}/requests/{requestID}/approve", h.handleApprove)
		r.Post("/users/{userID}/requests/{requestID}/reject", h.handleReject)
		r.Get("/export", h.handleExport)
	})
}

type boardStats struct {
	Pending         int `json:"pending"`
	Approved        int `json:"approved"`
	ActiveEmployees int `json:"activeEmployees"`
}

type board struct {
	Requests []leave.LeaveRequest `json:"requests"`
	Stats    boardStats           `json:"stats"`
}

func criteriaFromQuery(r *http.Request) leave.FilterCriteria {
	query := r.URL.Query()
	return leave.FilterCriteria{
		Status:        query.Get("status"),
		Department:    query.Get("department"),
		Type:          query.Get("type"),
		StartDateFrom: query.Get("startDateFrom"),
	}
}

// handleListRequests serves the review board: the flattened submitted
// history of every user, narrowed by the query filters. Stats cover the
// unfiltered board, matching the headline counters.
func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	directory, err := h.Directory.UserDirectory(r.Context())
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "directory_failed", "failed to load user directory", middleware.GetRequestID(r.Context()))
		return
	}

	all := leave.Flatten(h.Store.All())
	counts := leave.StatusCounts(all)
	stats := boardStats{
		Pending:         counts.Pending,
		Approved:        counts.Approved,
		ActiveEmployees: leave.ActiveEmployeeCount(directory.Users),
	}

	filtered := leave.Filter(all, directory.Users, criteriaFromQuery(r))
	api.Success(w, board{Requests: filtered, Stats: stats}, middleware.GetRequestID(r.Context()))
}

type decisionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.StatusApproved)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.StatusRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, status string) {
	userID := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid request id", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionRequest
	if r.Body != nil {
		// The reason body is optional on approval.
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	record, err := h.Store.Transition(r.Context(), userID, id, status, payload.Reason)
	if err != nil {
		api.FailFromError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, record, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	directory, err := h.Directory.UserDirectory(r.Context())
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "directory_failed", "failed to load user directory", middleware.GetRequestID(r.Context()))
		return
	}

	rows := leave.Filter(leave.Flatten(h.Store.All()), directory.Users, criteriaFromQuery(r))

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}

	switch format {
	case "pdf":
		h.writePDF(w, r, rows, directory)
	case "csv":
		h.writeCSV(w, r, rows, directory)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_format", "format must be csv or pdf", middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) writeCSV(w http.ResponseWriter, r *http.Request, rows []leave.LeaveRequest, directory backend.UserDirectory) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-requests.csv")

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "employee_id", "employee", "type", "start_date", "end_date", "duration", "status", "submitted_date"}); err != nil {
		slog.Warn("export csv header write failed", "err", err)
	}
	for _, row := range rows {
		name := ""
		if user := directory.UserByID(row.UserID); user != nil {
			name = user.DisplayName()
		}
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.UserID,
			name,
			row.Type,
			row.StartDate,
			row.EndDate,
			strconv.Itoa(row.Duration),
			row.Status,
			row.SubmittedDate,
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("export csv row write failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("export csv flush failed", "err", err)
	}
}

func (h *Handler) writePDF(w http.ResponseWriter, r *http.Request, rows []leave.LeaveRequest, directory backend.UserDirectory) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Demandes de conges")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	headers := []struct {
		label string
		width float64
	}{
		{"Employe", 55},
		{"Type", 45},
		{"Debut", 28},
		{"Fin", 28},
		{"Jours", 16},
		{"Statut", 26},
		{"Soumise le", 30},
	}
	for _, header := range headers {
		pdf.CellFormat(header.width, 8, header.label, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		name := row.UserID
		if user := directory.UserByID(row.UserID); user != nil {
			name = fmt.Sprintf("%s (%s)", user.DisplayName(), row.UserID)
		}
		cells := []struct {
			value string
			width float64
		}{
			{name, 55},
			{row.Type, 45},
			{row.StartDate, 28},
			{row.EndDate, 28},
			{strconv.Itoa(row.Duration), 16},
			{row.Status, 26},
			{row.SubmittedDate, 30},
		}
		for _, cell := range cells {
			pdf.CellFormat(cell.width, 8, cell.value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-requests.pdf")
	if err := pdf.Output(w); err != nil {
		slog.Warn("export pdf write failed", "err", err)
	}
}
