package constants

// JobStatus is the canonical status for rows in job_run.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending   JobStatus = "pending"   // created, not yet started
	JobStatusRunning   JobStatus = "running"   // in progress
	JobStatusCompleted JobStatus = "completed" // terminal success
	JobStatusFailed    JobStatus = "failed"    // terminal failure
)

// CanTransition reports whether a job may move from one status to another.
// Only forward transitions are allowed; completed and failed are terminal.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobStatusPending:
		return to == JobStatusRunning
	case JobStatusRunning:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// TriggerType records what initiated a job run.
type TriggerType string

const (
	TriggerCron   TriggerType = "cron"
	TriggerManual TriggerType = "manual"
	TriggerAPI    TriggerType = "api"
)

// JobTypes in use; stored verbatim on job_run rows.
const (
	JobTypeIngest = "filing-ingest"
	JobTypeDedup  = "contact-dedup"
)
