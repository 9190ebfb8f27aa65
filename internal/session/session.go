// Package session holds the per-browser identity context: the current
// user, the role derived from the user id prefix, and the single
// edit-in-progress request slot.
//
// The id-prefix role is a routing convenience inherited from the data
// model, not an access-control boundary; nothing here carries a
// credential or a security property.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"flexidays/internal/domain/leave"
)

const (
	RoleEmployee = "employee"
	RoleHR       = "hr"
	RoleInvalid  = "invalid"
)

const (
	PageEntry          = "index"
	PageDashboard      = "dashboard"
	PageRequest        = "demande"
	PageMyLeaves       = "mesconges"
	PageAdministration = "administration"
)

var (
	ErrNoSession = errors.New("no session")
)

// RoleForUser derives the role from the user id prefix: EMP marks an
// employee, RH marks an HR reviewer, anything else is invalid.
func RoleForUser(userID string) string {
	switch {
	case strings.HasPrefix(userID, "EMP"):
		return RoleEmployee
	case strings.HasPrefix(userID, "RH"):
		return RoleHR
	default:
		return RoleInvalid
	}
}

var employeePages = map[string]bool{
	PageRequest:   true,
	PageMyLeaves:  true,
	PageDashboard: true,
}

// Decision is the outcome of a page-access check: either allow, or the
// page the boundary should send the user to instead.
type Decision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
}

// Authorize checks a user against a page allow-list by role. Employees
// are sent back to their dashboard, HR reviewers to administration, and
// unknown ids to the entry page.
func Authorize(userID, page string) Decision {
	switch RoleForUser(userID) {
	case RoleEmployee:
		if employeePages[page] {
			return Decision{Allow: true}
		}
		return Decision{Redirect: PageDashboard}
	case RoleHR:
		if page == PageAdministration {
			return Decision{Allow: true}
		}
		return Decision{Redirect: PageAdministration}
	default:
		return Decision{Redirect: PageEntry}
	}
}

// EditContext is the request currently being edited or renewed. IsNew
// marks a renewal: submission must create a fresh record instead of
// replacing the source.
type EditContext struct {
	Request leave.LeaveRequest `json:"request"`
	IsNew   bool               `json:"isNew"`
}

type Session struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Role        string       `json:"role"`
	CreatedAt   time.Time    `json:"createdAt"`
	EditRequest *EditContext `json:"editRequest,omitempty"`
}

// Store persists sessions for their lifetime. Implementations expire
// entries after the TTL they were configured with.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Manager binds the session store to the signed token handed to the
// browser.
type Manager struct {
	store  Store
	secret string
	ttl    time.Duration
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: secret, ttl: ttl}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Establish opens a session for a user and returns it with the token the
// boundary should set as the session cookie.
func (m *Manager) Establish(ctx context.Context, userID string) (*Session, string, error) {
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      RoleForUser(userID),
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return nil, "", err
	}
	token, err := GenerateToken(m.secret, s.ID, m.ttl)
	if err != nil {
		return nil, "", err
	}
	return s, token, nil
}

// Resolve maps a token back to its stored session.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	sessionID, err := ParseToken(m.secret, token)
	if err != nil {
		return nil, ErrNoSession
	}
	return m.store.Get(ctx, sessionID)
}

func (m *Manager) End(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// SetEditRequest fills the single edit slot. A second call replaces the
// previous occupant: at most one edit context exists per session.
func (m *Manager) SetEditRequest(ctx context.Context, sessionID string, request leave.LeaveRequest, isNew bool) (*Session, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.EditRequest = &EditContext{Request: request, IsNew: isNew}
	if err := m.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ClearEditRequest empties the slot; called on cancel and after a
// successful submission.
func (m *Manager) ClearEditRequest(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.EditRequest = nil
	if err := m.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
