package leave

import "sort"

const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// leaveTypes maps each canonical category label to its form slug.
var leaveTypes = map[string]string{
	"Congés payés":     "conges-payes",
	"RTT":              "rtt",
	"Congé maladie":    "conge-maladie",
	"Congé parental":   "conge-parental",
	"Formation":        "conge-formation",
	"Congé sans solde": "conge-sans-solde",
	"Autre":            "autre",
}

var leaveTypeBySlug = func() map[string]string {
	out := make(map[string]string, len(leaveTypes))
	for name, slug := range leaveTypes {
		out[slug] = name
	}
	return out
}()

// CanonicalType resolves a category label or form slug to the canonical
// label. The second return is false when the value matches neither.
func CanonicalType(value string) (string, bool) {
	if _, ok := leaveTypes[value]; ok {
		return value, true
	}
	if name, ok := leaveTypeBySlug[value]; ok {
		return name, true
	}
	return "", false
}

// TypeSlug returns the form slug for a canonical category label.
func TypeSlug(name string) string {
	return leaveTypes[name]
}

// TypeOption is one selectable leave category, label plus form slug.
type TypeOption struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// TypeOptions lists the selectable categories sorted by label so the
// form renders deterministically.
func TypeOptions() []TypeOption {
	out := make([]TypeOption, 0, len(leaveTypes))
	for label, slug := range leaveTypes {
		out = append(out, TypeOption{Label: label, Slug: slug})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

type LeaveRequest struct {
	ID              int64  `json:"id"`
	UserID          string `json:"userId,omitempty"`
	Type            string `json:"type"`
	Title           string `json:"title,omitempty"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	Duration        int    `json:"duration"`
	Status          string `json:"status"`
	Reason          string `json:"reason"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	SubmittedDate   string `json:"submittedDate,omitempty"`
	Replacement     string `json:"replacement,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// RequestFields carries the caller-supplied part of a leave request.
// Lifecycle fields (id, status, duration, submittedDate) are owned by the
// Store and never accepted from callers.
type RequestFields struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Reason      string `json:"reason"`
	Replacement string `json:"replacement"`
	Comment     string `json:"comment"`
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	FullName     string `json:"fullName,omitempty"`
	Department   string `json:"department,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// DisplayName prefers the long form, matching the rendering layer.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Name
}

type LeaveBalance struct {
	TotalDays int `json:"totalDays"`
}

// UpcomingLeave is one entry of the separately sourced dashboard feed.
// Dates is a preformatted "start - end" range; the feed arrives pre-sorted
// and is consumed verbatim.
type UpcomingLeave struct {
	Type  string `json:"type"`
	Dates string `json:"dates"`
}

type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Color   string `json:"color,omitempty"`
}
