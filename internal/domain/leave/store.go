package leave

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Document is the full leave-requests resource as the backend stores it:
// one flat JSON document keyed by user. Version is the optimistic
// concurrency token echoed on every save.
type Document struct {
	LeaveRequests map[string][]LeaveRequest `json:"leaveRequests"`
	Version       int64                     `json:"version,omitempty"`
}

// Backend abstracts the remote JSON document resource the store syncs to.
type Backend interface {
	FetchLeaveDocument(ctx context.Context) (Document, error)
	SaveLeaveDocument(ctx context.Context, doc Document) error
}

// Store is the authoritative in-memory collection of leave requests,
// keyed by user. It is the sole writer of request status and lifecycle
// fields. Remote persistence is best effort: local state carries the
// session, and failed syncs on status transitions roll back.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	requests map[string][]LeaveRequest
	version  int64
	lastID   int64
	onChange func()

	now   func() time.Time
	newID func() int64
}

func NewStore(backend Backend) *Store {
	s := &Store{
		backend:  backend,
		requests: make(map[string][]LeaveRequest),
		now:      time.Now,
	}
	// Millisecond timestamps as ids, bumped past the last issued id so
	// two creations in the same millisecond never collide.
	s.newID = func() int64 {
		id := s.now().UnixMilli()
		if id <= s.lastID {
			id = s.lastID + 1
		}
		s.lastID = id
		return id
	}
	return s
}

// OnChange registers a single subscriber invoked after every applied
// mutation so consuming views can re-derive. The callback must not call
// back into the store.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Load replaces the in-memory collection with the backend document.
// The backend client already falls back to the bundled static dataset;
// when that also failed the returned error wraps ErrLoadFailed and
// administration views must halt rather than render an empty state.
func (s *Store) Load(ctx context.Context) error {
	doc, err := s.backend.FetchLeaveDocument(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	s.mu.Lock()
	s.requests = make(map[string][]LeaveRequest, len(doc.LeaveRequests))
	for userID, list := range doc.LeaveRequests {
		s.requests[userID] = append([]LeaveRequest(nil), list...)
	}
	s.version = doc.Version
	s.mu.Unlock()

	s.notify()
	return nil
}

// Requests returns a copy of one user's collection in stored order.
func (s *Store) Requests(userID string) []LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LeaveRequest(nil), s.requests[userID]...)
}

// All returns a deep copy of the whole collection.
func (s *Store) All() map[string][]LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]LeaveRequest, len(s.requests))
	for userID, list := range s.requests {
		out[userID] = append([]LeaveRequest(nil), list...)
	}
	return out
}

// Get returns the record matching id within a user's collection.
func (s *Store) Get(userID string, id int64) (LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(userID, id)
	if idx < 0 {
		return LeaveRequest{}, ErrNotFound
	}
	return s.requests[userID][idx], nil
}

func (s *Store) indexLocked(userID string, id int64) int {
	for i, r := range s.requests[userID] {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Create synthesizes a new request in the given lifecycle state and
// appends it to the user's collection. Submissions are validated; drafts
// are saved as-is. The created record is returned even when the remote
// persist failed (the error then wraps ErrSyncFailed): local state is
// authoritative for the session.
func (s *Store) Create(ctx context.Context, userID string, fields RequestFields, status string) (LeaveRequest, error) {
	if status != StatusDraft && status != StatusPending {
		return LeaveRequest{}, fmt.Errorf("%w: cannot create request as %q", ErrInvalidState, status)
	}
	if status == StatusPending {
		if err := ValidateSubmission(fields); err != nil {
			return LeaveRequest{}, err
		}
	}

	record := s.buildRequest(fields, status)

	s.mu.Lock()
	record.ID = s.newID()
	s.requests[userID] = append(s.requests[userID], record)
	s.mu.Unlock()
	s.notify()

	if err := s.Sync(ctx); err != nil {
		return record, err
	}
	return record, nil
}

// Update replaces the record matching id, preserving the id and moving
// the record to the given lifecycle state. Only drafts and pending
// requests may be edited; decided requests are terminal (renewal creates
// a fresh record instead).
func (s *Store) Update(ctx context.Context, userID string, id int64, fields RequestFields, status string) (LeaveRequest, error) {
	if status != StatusDraft && status != StatusPending {
		return LeaveRequest{}, fmt.Errorf("%w: cannot update request to %q", ErrInvalidState, status)
	}
	if status == StatusPending {
		if err := ValidateSubmission(fields); err != nil {
			return LeaveRequest{}, err
		}
	}

	record := s.buildRequest(fields, status)
	record.ID = id

	s.mu.Lock()
	idx := s.indexLocked(userID, id)
	if idx < 0 {
		s.mu.Unlock()
		return LeaveRequest{}, ErrNotFound
	}
	current := s.requests[userID][idx]
	if current.Status != StatusDraft && current.Status != StatusPending {
		s.mu.Unlock()
		return LeaveRequest{}, fmt.Errorf("%w: %s request cannot be edited", ErrInvalidState, current.Status)
	}
	s.requests[userID][idx] = record
	s.mu.Unlock()
	s.notify()

	if err := s.Sync(ctx); err != nil {
		return record, err
	}
	return record, nil
}

// Transition is the only path to approved or rejected. The current
// status must be pending. A rejection reason is stored verbatim when
// supplied and left unset otherwise. A failed sync rolls the record back
// to its prior state.
func (s *Store) Transition(ctx context.Context, userID string, id int64, newStatus, reason string) (LeaveRequest, error) {
	if newStatus != StatusApproved && newStatus != StatusRejected {
		return LeaveRequest{}, fmt.Errorf("%w: %q is not a decision", ErrInvalidState, newStatus)
	}

	s.mu.Lock()
	idx := s.indexLocked(userID, id)
	if idx < 0 {
		s.mu.Unlock()
		return LeaveRequest{}, ErrNotFound
	}
	prior := s.requests[userID][idx]
	if prior.Status != StatusPending {
		s.mu.Unlock()
		return LeaveRequest{}, fmt.Errorf("%w: only pending requests can be decided", ErrInvalidState)
	}
	updated := prior
	updated.Status = newStatus
	if newStatus == StatusRejected && reason != "" {
		updated.RejectionReason = reason
	}
	s.requests[userID][idx] = updated
	s.mu.Unlock()
	s.notify()

	if err := s.Sync(ctx); err != nil {
		s.mu.Lock()
		if i := s.indexLocked(userID, id); i >= 0 {
			s.requests[userID][i] = prior
		}
		s.mu.Unlock()
		s.notify()
		return LeaveRequest{}, err
	}
	return updated, nil
}

// Delete removes a draft. Submitted requests are never deleted through
// this path. A failed sync restores the record.
func (s *Store) Delete(ctx context.Context, userID string, id int64) error {
	return s.remove(ctx, userID, id, StatusDraft)
}

// Cancel withdraws a pending request, removing it from the collection.
// Approved and rejected requests are terminal and cannot be withdrawn.
func (s *Store) Cancel(ctx context.Context, userID string, id int64) error {
	return s.remove(ctx, userID, id, StatusPending)
}

func (s *Store) remove(ctx context.Context, userID string, id int64, requireStatus string) error {
	s.mu.Lock()
	idx := s.indexLocked(userID, id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	removed := s.requests[userID][idx]
	if removed.Status != requireStatus {
		s.mu.Unlock()
		return fmt.Errorf("%w: only %s requests can be removed here", ErrInvalidState, requireStatus)
	}
	s.requests[userID] = append(s.requests[userID][:idx], s.requests[userID][idx+1:]...)
	s.mu.Unlock()
	s.notify()

	if err := s.Sync(ctx); err != nil {
		s.mu.Lock()
		list := s.requests[userID]
		if idx > len(list) {
			idx = len(list)
		}
		list = append(list[:idx], append([]LeaveRequest{removed}, list[idx:]...)...)
		s.requests[userID] = list
		s.mu.Unlock()
		s.notify()
		return err
	}
	return nil
}

// Sync pushes the full document to the backend with the next version
// token. The backend rejects stale versions; any failure wraps
// ErrSyncFailed so callers can roll back or alert.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.Lock()
	doc := Document{
		LeaveRequests: make(map[string][]LeaveRequest, len(s.requests)),
		Version:       s.version + 1,
	}
	for userID, list := range s.requests {
		doc.LeaveRequests[userID] = append([]LeaveRequest(nil), list...)
	}
	s.mu.Unlock()

	if err := s.backend.SaveLeaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	s.mu.Lock()
	s.version = doc.Version
	s.mu.Unlock()
	return nil
}

func (s *Store) buildRequest(fields RequestFields, status string) LeaveRequest {
	leaveType, ok := CanonicalType(fields.Type)
	if !ok {
		leaveType = fields.Type
	}
	title := fields.Title
	if title == "" {
		title = leaveType
	}
	record := LeaveRequest{
		Type:        leaveType,
		Title:       title,
		StartDate:   fields.StartDate,
		EndDate:     fields.EndDate,
		Duration:    CalculateDuration(fields.StartDate, fields.EndDate),
		Status:      status,
		Reason:      fields.Reason,
		Replacement: fields.Replacement,
		Comment:     fields.Comment,
	}
	// Drafts carry no submission date; it is stamped when the request
	// leaves draft state.
	if status == StatusPending {
		record.SubmittedDate = s.now().Format(dayLayout)
	}
	return record
}
