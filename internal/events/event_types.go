package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated       EventType = "case_created"
	EventCaseAccepted      EventType = "case_accepted"
	EventCaseFilesAppended EventType = "case_files_appended"
	EventCaseCompleted     EventType = "case_completed"
	EventProjectCreated    EventType = "project_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    int64       `json:"case_id"`
	ActorID   *int64      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	OwnerID int64  `json:"owner_id"`
	Title   string `json:"title"`
	Theme   string `json:"theme,omitempty"`
}

// CaseAcceptedPayload payload.
type CaseAcceptedPayload struct {
	ExecutorID int64 `json:"executor_id"`
}

// CaseFilesAppendedPayload payload.
type CaseFilesAppendedPayload struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

// CaseCompletedPayload payload.
type CaseCompletedPayload struct {
	ProjectID     int64   `json:"project_id"`
	ExecutorEmail *string `json:"executor_email,omitempty"`
}

// ProjectCreatedPayload payload for direct project creation.
type ProjectCreatedPayload struct {
	ProjectID int64 `json:"project_id"`
	OwnerID   int64 `json:"owner_id"`
}
