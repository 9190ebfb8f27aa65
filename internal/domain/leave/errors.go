package leave

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("leave request not found")
	ErrInvalidState = errors.New("invalid state")
	ErrLoadFailed   = errors.New("load failed")
	ErrSyncFailed   = errors.New("sync failed")
)

// ValidationError reports the submission fields that blocked a request,
// using the form labels the user saw.
type ValidationError struct {
	Missing         []string
	InvalidDuration bool
	UnknownType     bool
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("champs requis manquants : %s", strings.Join(e.Missing, ", "))
	}
	if e.UnknownType {
		return "type de congé inconnu"
	}
	if e.InvalidDuration {
		return "durée invalide"
	}
	return "demande invalide"
}

// fieldLabels gives the user-facing label per required field.
var fieldLabels = map[string]string{
	"startDate": "Date début",
	"endDate":   "Date fin",
	"type":      "Type",
	"reason":    "Justification",
}

// ValidateSubmission checks the required-field set and the computed
// duration for a request leaving draft state. Drafts are never validated.
func ValidateSubmission(fields RequestFields) error {
	var missing []string
	for _, name := range []string{"startDate", "endDate", "type", "reason"} {
		var value string
		switch name {
		case "startDate":
			value = fields.StartDate
		case "endDate":
			value = fields.EndDate
		case "type":
			value = fields.Type
		case "reason":
			value = fields.Reason
		}
		if strings.TrimSpace(value) == "" {
			missing = append(missing, fieldLabels[name])
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	if _, ok := CanonicalType(fields.Type); !ok {
		return &ValidationError{UnknownType: true}
	}
	if CalculateDuration(fields.StartDate, fields.EndDate) <= 0 {
		return &ValidationError{InvalidDuration: true}
	}
	return nil
}
