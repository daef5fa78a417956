package domain

import "time"

// ProjectStatus enumerates project states. Projects are created completed
// and never move; the field exists for wire compatibility.
type ProjectStatus string

const ProjectStatusCompleted ProjectStatus = "completed"

// Project is the finished artifact materialized from a closed case.
// UserID records who materialized it (the executor for completion, the
// caller for direct creation). ExecutorEmail is a snapshot taken at
// completion time, not a live reference.
type Project struct {
	ID            int64
	CaseID        int64
	UserID        int64
	Title         string
	Theme         string
	Description   string
	Cover         *string
	Files         []string
	Status        ProjectStatus
	ExecutorEmail *string
	OwnerEmail    *string
	CreatedAt     time.Time
}
