package entity

import (
	"time"

	"github.com/basinworks/filings-tracker/constants"
)

// MaxSkippedFiles caps the skipped-file audit list carried on a run so a
// pathological batch cannot bloat the record.
const MaxSkippedFiles = 100

// SkippedFile records one document that was passed over and why.
type SkippedFile struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// JobMetrics is the per-run counter set. It is owned by the processing loop
// for the run and attached to the JobRun on completion or failure.
type JobMetrics struct {
	TotalFiles            int           `json:"total_files"`
	SuccessfullyProcessed int           `json:"successfully_processed"`
	DownloadFailed        int           `json:"download_failed"`
	ValidationFailed      int           `json:"validation_failed"`
	ProcessingFailed      int           `json:"processing_failed"`
	ContactsExtracted     int           `json:"contacts_extracted"`
	SkippedFiles          []SkippedFile `json:"skipped_files,omitempty"`
}

// AddSkipped appends to the skipped-file list up to MaxSkippedFiles.
func (m *JobMetrics) AddSkipped(key, reason string) {
	if len(m.SkippedFiles) >= MaxSkippedFiles {
		return
	}
	m.SkippedFiles = append(m.SkippedFiles, SkippedFile{Key: key, Reason: reason})
}

// Consistent reports whether the outcome counters stay within the file total.
func (m *JobMetrics) Consistent() bool {
	return m.SuccessfullyProcessed+m.DownloadFailed+m.ValidationFailed+m.ProcessingFailed <= m.TotalFiles
}

// JobRun represents one batch run for data transfer between layers.
type JobRun struct {
	ID           string                `json:"id"` // {origin}_{timestamp}_{suffix}
	JobType      string                `json:"job_type"`
	TriggerType  constants.TriggerType `json:"trigger_type"`
	Status       constants.JobStatus   `json:"status"`
	StartedAt    time.Time             `json:"started_at"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
	ErrorMessage *string               `json:"error_message,omitempty"`
	Metrics      JobMetrics            `json:"metrics"`
}

// DurationSeconds is completed_at minus started_at, zero while running.
func (r *JobRun) DurationSeconds() float64 {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt).Seconds()
}
