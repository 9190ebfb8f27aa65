package leave

import (
	"sort"
	"strings"
)

// Derivation functions compute every value a view renders from a snapshot
// of the request collection. They never mutate their inputs and perform
// no I/O, so each call with the same snapshot yields the same result.

type BalanceSummary struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// Balance sums the duration of approved requests against the allotted
// total. Total defaults to zero when the user has no recorded balance.
func Balance(requests []LeaveRequest, totalDays int) BalanceSummary {
	used := 0
	for _, r := range requests {
		if r.Status == StatusApproved {
			used += r.Duration
		}
	}
	return BalanceSummary{Total: totalDays, Used: used, Remaining: totalDays - used}
}

type StatusSummary struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// StatusCounts tallies submitted requests by status. Drafts are
// work-in-progress and never counted.
func StatusCounts(requests []LeaveRequest) StatusSummary {
	var counts StatusSummary
	for _, r := range requests {
		switch r.Status {
		case StatusPending:
			counts.Pending++
		case StatusApproved:
			counts.Approved++
		case StatusRejected:
			counts.Rejected++
		}
	}
	return counts
}

// Submitted returns the non-draft requests in their stored order.
func Submitted(requests []LeaveRequest) []LeaveRequest {
	out := make([]LeaveRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status != StatusDraft {
			out = append(out, r)
		}
	}
	return out
}

// Drafts returns the draft requests in their stored order.
func Drafts(requests []LeaveRequest) []LeaveRequest {
	out := make([]LeaveRequest, 0)
	for _, r := range requests {
		if r.Status == StatusDraft {
			out = append(out, r)
		}
	}
	return out
}

// Flatten merges every user's submitted requests into one sequence with
// UserID stamped on each record. Users are visited in sorted id order so
// the result is deterministic; within a user, stored order is kept.
func Flatten(collection map[string][]LeaveRequest) []LeaveRequest {
	userIDs := make([]string, 0, len(collection))
	for userID := range collection {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	var out []LeaveRequest
	for _, userID := range userIDs {
		for _, r := range collection[userID] {
			if r.Status == StatusDraft {
				continue
			}
			r.UserID = userID
			out = append(out, r)
		}
	}
	return out
}

// FilterCriteria narrows a request sequence. Empty values and the
// case-insensitive sentinels "tous"/"toutes" disable a dimension; the
// remaining dimensions compose by logical AND.
type FilterCriteria struct {
	Status        string
	Department    string
	Type          string
	StartDateFrom string
}

func filterDisabled(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "" || v == "tous" || v == "toutes"
}

// Filter applies criteria to a flattened sequence, preserving relative
// order. The department dimension joins against users by UserID.
func Filter(requests []LeaveRequest, users []User, criteria FilterCriteria) []LeaveRequest {
	departments := make(map[string]string, len(users))
	for _, u := range users {
		departments[u.ID] = strings.ToLower(u.Department)
	}

	out := make([]LeaveRequest, 0, len(requests))
	for _, r := range requests {
		if !filterDisabled(criteria.Status) && !strings.EqualFold(r.Status, criteria.Status) {
			continue
		}
		if !filterDisabled(criteria.Department) && departments[r.UserID] != strings.ToLower(criteria.Department) {
			continue
		}
		if !filterDisabled(criteria.Type) && !strings.EqualFold(r.Type, criteria.Type) {
			continue
		}
		if criteria.StartDateFrom != "" {
			from, ok := ParseDay(criteria.StartDateFrom)
			if ok {
				start, ok := ParseDay(r.StartDate)
				if !ok || start.Before(from) {
					continue
				}
			}
		}
		out = append(out, r)
	}
	return out
}

// Upcoming takes the first limit entries of the dashboard feed verbatim.
// The feed is assumed pre-sorted by its producer; no date ordering is
// applied here.
func Upcoming(feed []UpcomingLeave, limit int) []UpcomingLeave {
	if limit < 0 {
		limit = 0
	}
	if limit > len(feed) {
		limit = len(feed)
	}
	out := make([]UpcomingLeave, limit)
	copy(out, feed[:limit])
	return out
}

// Recent returns the most recently submitted non-draft requests, newest
// first, truncated to limit.
func Recent(requests []LeaveRequest, limit int) []LeaveRequest {
	submitted := Submitted(requests)
	sort.SliceStable(submitted, func(i, j int) bool {
		a, _ := ParseDay(submitted[i].SubmittedDate)
		b, _ := ParseDay(submitted[j].SubmittedDate)
		return a.After(b)
	})
	if limit >= 0 && limit < len(submitted) {
		submitted = submitted[:limit]
	}
	return submitted
}

// ActiveEmployeeCount counts the directory entries holding an employee id.
func ActiveEmployeeCount(users []User) int {
	count := 0
	for _, u := range users {
		if strings.HasPrefix(u.ID, "EMP") {
			count++
		}
	}
	return count
}
