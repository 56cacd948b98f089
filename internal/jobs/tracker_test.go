package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/entity"
)

// memRepo is an in-memory JobRunRepository for tracker tests.
type memRepo struct {
	runs map[string]*entity.JobRun
}

func newMemRepo() *memRepo {
	return &memRepo{runs: make(map[string]*entity.JobRun)}
}

func (m *memRepo) Create(_ context.Context, run *entity.JobRun) error {
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*entity.JobRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, status constants.JobStatus, completedAt *time.Time, errorMessage *string, metrics *entity.JobMetrics) error {
	run, ok := m.runs[id]
	if !ok {
		return common.ErrNotFound
	}
	run.Status = status
	if completedAt != nil {
		run.CompletedAt = completedAt
	}
	if errorMessage != nil {
		run.ErrorMessage = errorMessage
	}
	if metrics != nil {
		run.Metrics = *metrics
	}
	return nil
}

func (m *memRepo) ListRunning(_ context.Context) ([]entity.JobRun, error) {
	var out []entity.JobRun
	for _, run := range m.runs {
		if run.Status == constants.JobStatusRunning {
			out = append(out, *run)
		}
	}
	return out, nil
}

func TestJobIDRoundTrip(t *testing.T) {
	started := time.Date(2025, 11, 13, 23, 59, 0, 0, time.UTC)
	id, err := NewJobID("OCD_CBT", started)
	if err != nil {
		t.Fatalf("NewJobID() error = %v", err)
	}
	if !strings.HasPrefix(id, "OCD_CBT_20251113235900_") {
		t.Fatalf("id = %q, want OCD_CBT_20251113235900_ prefix", id)
	}

	origin, ts, suffix, err := ParseJobID(id)
	if err != nil {
		t.Fatalf("ParseJobID(%q) error = %v", id, err)
	}
	if origin != "OCD_CBT" {
		t.Errorf("origin = %q, want OCD_CBT (underscores must survive the round trip)", origin)
	}
	if !ts.Equal(started) {
		t.Errorf("timestamp = %v, want %v", ts, started)
	}
	if len(suffix) != 4 {
		t.Errorf("suffix = %q, want 4 characters", suffix)
	}
}

func TestParseJobIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "OCD", "OCD_20251113235900", "OCD_CBT_notadate_7b2e", "OCD_CBT_20251113235900_toolong"} {
		if _, _, _, err := ParseJobID(id); err == nil {
			t.Errorf("ParseJobID(%q) accepted a malformed id", id)
		}
	}
}

func TestTrackerLifecycle(t *testing.T) {
	repo := newMemRepo()
	tr := NewTracker(repo, "OCD_CBT", 0, nil)

	id, err := tr.Start(context.Background(), constants.JobTypeIngest, constants.TriggerManual)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	run, _ := repo.Get(context.Background(), id)
	if run.Status != constants.JobStatusRunning {
		t.Fatalf("status after Start = %s, want running", run.Status)
	}

	metrics := entity.JobMetrics{TotalFiles: 5, SuccessfullyProcessed: 4, ProcessingFailed: 1, ContactsExtracted: 37}
	if err := tr.Complete(context.Background(), id, metrics); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	run, _ = repo.Get(context.Background(), id)
	if run.Status != constants.JobStatusCompleted {
		t.Errorf("status = %s, want completed", run.Status)
	}
	if run.CompletedAt == nil || run.DurationSeconds() < 0 {
		t.Errorf("completed run missing completion time")
	}
	if !run.Metrics.Consistent() {
		t.Errorf("metrics violate the counter invariant: %+v", run.Metrics)
	}

	// terminal states refuse further transitions
	if err := tr.Fail(context.Background(), id, errors.New("late failure"), nil); err == nil {
		t.Error("Fail() allowed on a completed run")
	}
}

func TestTrackerFailPreservesPartialMetrics(t *testing.T) {
	repo := newMemRepo()
	tr := NewTracker(repo, "OCD_CBT", 0, nil)

	id, err := tr.Start(context.Background(), constants.JobTypeIngest, constants.TriggerCron)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	partial := &entity.JobMetrics{TotalFiles: 10, SuccessfullyProcessed: 3}
	if err := tr.Fail(context.Background(), id, errors.New("store unreachable"), partial); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	run, _ := repo.Get(context.Background(), id)
	if run.Status != constants.JobStatusFailed {
		t.Errorf("status = %s, want failed", run.Status)
	}
	if run.ErrorMessage == nil || !strings.Contains(*run.ErrorMessage, "store unreachable") {
		t.Errorf("error message = %v", run.ErrorMessage)
	}
	if run.Metrics.SuccessfullyProcessed != 3 {
		t.Errorf("partial metrics discarded: %+v", run.Metrics)
	}
}

func TestReclaimStale(t *testing.T) {
	repo := newMemRepo()
	tr := NewTracker(repo, "OCD_CBT", 24*time.Hour, nil)

	now := time.Now()
	stale := &entity.JobRun{
		ID: "OCD_CBT_20250101000000_aaaa", JobType: constants.JobTypeIngest,
		Status: constants.JobStatusRunning, StartedAt: now.Add(-25 * time.Hour),
	}
	fresh := &entity.JobRun{
		ID: "OCD_CBT_20250101000000_bbbb", JobType: constants.JobTypeIngest,
		Status: constants.JobStatusRunning, StartedAt: now.Add(-1 * time.Hour),
	}
	repo.Create(context.Background(), stale)
	repo.Create(context.Background(), fresh)

	count, err := tr.ReclaimStale(context.Background())
	if err != nil {
		t.Fatalf("ReclaimStale() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("reclaimed = %d, want 1", count)
	}
	got, _ := repo.Get(context.Background(), stale.ID)
	if got.Status != constants.JobStatusFailed {
		t.Errorf("stale run status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, "reclaimed") {
		t.Errorf("stale run missing synthetic error: %v", got.ErrorMessage)
	}
	got, _ = repo.Get(context.Background(), fresh.ID)
	if got.Status != constants.JobStatusRunning {
		t.Errorf("fresh run status = %s, want running untouched", got.Status)
	}

	// second pass finds nothing new
	count, err = tr.ReclaimStale(context.Background())
	if err != nil || count != 0 {
		t.Errorf("second ReclaimStale() = %d, %v; want 0, nil", count, err)
	}
}
