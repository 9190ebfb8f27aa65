// Package backend talks to the JSON-document REST mock that persists the
// application state, falling back to the bundled static dataset when the
// mock is unreachable.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"flexidays/internal/domain/leave"
)

const (
	userDirectoryResource = "/UserIfon"
	dashboardResource     = "/DashboardPage"
	leaveResource         = "/MyCongesPage"
)

// ErrVersionConflict reports that the mock rejected a save because another
// writer synced first.
var ErrVersionConflict = errors.New("document version conflict")

type UserDirectory struct {
	Users        []leave.User                  `json:"users"`
	LeaveBalance map[string]leave.LeaveBalance `json:"leaveBalance"`
}

// UserByID looks a user up in the directory; nil when absent.
func (d UserDirectory) UserByID(userID string) *leave.User {
	for i := range d.Users {
		if d.Users[i].ID == userID {
			return &d.Users[i]
		}
	}
	return nil
}

// TotalDays returns the allotted leave days for a user, zero when the
// balance record is absent.
func (d UserDirectory) TotalDays(userID string) int {
	if balance, ok := d.LeaveBalance[userID]; ok {
		return balance.TotalDays
	}
	return 0
}

type DashboardFeed struct {
	UpcomingLeaves []leave.UpcomingLeave `json:"upcomingLeaves"`
	Notifications  []leave.Notification  `json:"notifications"`
}

// fallbackDocument mirrors the full db.json shape.
type fallbackDocument struct {
	UserDirectory UserDirectory  `json:"UserIfon"`
	Dashboard     DashboardFeed  `json:"DashboardPage"`
	Leave         leave.Document `json:"MyCongesPage"`
}

type Client struct {
	baseURL      string
	fallbackFile string
	httpClient   *http.Client
}

// New builds a client for the mock at baseURL. Every call carries an
// explicit timeout; exceeding it counts as a fetch or sync failure.
func New(baseURL, fallbackFile string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		fallbackFile: fallbackFile,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) UserDirectory(ctx context.Context) (UserDirectory, error) {
	var directory UserDirectory
	if err := c.get(ctx, userDirectoryResource, &directory); err != nil {
		fallback, fbErr := c.readFallback()
		if fbErr != nil {
			return UserDirectory{}, errors.Join(err, fbErr)
		}
		slog.Warn("user directory served from fallback dataset", "err", err)
		return fallback.UserDirectory, nil
	}
	return directory, nil
}

func (c *Client) DashboardFeed(ctx context.Context) (DashboardFeed, error) {
	var feed DashboardFeed
	if err := c.get(ctx, dashboardResource, &feed); err != nil {
		fallback, fbErr := c.readFallback()
		if fbErr != nil {
			return DashboardFeed{}, errors.Join(err, fbErr)
		}
		slog.Warn("dashboard feed served from fallback dataset", "err", err)
		return fallback.Dashboard, nil
	}
	return feed, nil
}

func (c *Client) FetchLeaveDocument(ctx context.Context) (leave.Document, error) {
	var doc leave.Document
	if err := c.get(ctx, leaveResource, &doc); err != nil {
		fallback, fbErr := c.readFallback()
		if fbErr != nil {
			return leave.Document{}, errors.Join(err, fbErr)
		}
		slog.Warn("leave document served from fallback dataset", "err", err)
		return fallback.Leave, nil
	}
	return doc, nil
}

// SaveLeaveDocument replaces the whole leave-requests resource. There is
// no partial-merge contract; the document carries a version token so the
// mock can reject stale writers.
func (c *Client) SaveLeaveDocument(ctx context.Context, doc leave.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+leaveResource, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed {
		return ErrVersionConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("save %s: unexpected status %d", leaveResource, resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, resource string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+resource, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", resource, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fetch %s: %w", resource, err)
	}
	return nil
}

func (c *Client) readFallback() (fallbackDocument, error) {
	if c.fallbackFile == "" {
		return fallbackDocument{}, errors.New("no fallback dataset configured")
	}
	data, err := os.ReadFile(c.fallbackFile)
	if err != nil {
		return fallbackDocument{}, fmt.Errorf("fallback dataset: %w", err)
	}
	var doc fallbackDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fallbackDocument{}, fmt.Errorf("fallback dataset: %w", err)
	}
	return doc, nil
}
