package domain

import "time"

// CaseStatus enumerates lifecycle states for posted cases.
type CaseStatus string

const (
	CaseStatusOpen      CaseStatus = "open"
	CaseStatusInProcess CaseStatus = "in_process"
	CaseStatusClosed    CaseStatus = "closed"
)

// caseTransitions lists the allowed forward moves. The open->closed edge
// exists only for the direct project-creation shortcut; the regular flow
// always passes through in_process.
var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusOpen:      {CaseStatusInProcess, CaseStatusClosed},
	CaseStatusInProcess: {CaseStatusClosed},
	CaseStatusClosed:    {},
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	for _, candidate := range caseTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s CaseStatus) Terminal() bool {
	return len(caseTransitions[s]) == 0
}

// Case is the aggregate for posted work requests.
// ExecutorID is nil unless the case has been accepted (in_process or closed).
type Case struct {
	ID          int64
	UserID      int64
	Title       string
	Theme       string
	Description string
	Cover       *string
	Files       []string
	Status      CaseStatus
	ExecutorID  *int64
	OwnerEmail  *string
	CreatedAt   time.Time
}
