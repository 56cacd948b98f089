package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/entity"
	"github.com/basinworks/filings-tracker/internal/extract"
	"github.com/basinworks/filings-tracker/internal/jobs"
	"github.com/basinworks/filings-tracker/internal/llm"
	"github.com/basinworks/filings-tracker/internal/store"
)

type fakeStore struct {
	objects  []store.Object
	data     map[string][]byte
	fetchErr map[string]error
}

func (f *fakeStore) List(context.Context, string) ([]store.Object, error) {
	return f.objects, nil
}

func (f *fakeStore) FetchBytes(_ context.Context, key string) ([]byte, error) {
	if err := f.fetchErr[key]; err != nil {
		return nil, err
	}
	return f.data[key], nil
}

type fakeCascade struct {
	results map[string]extract.Result
	errs    map[string]error
}

func (f *fakeCascade) ProcessDocument(_ context.Context, key string, _ []byte) (extract.Result, error) {
	if err := f.errs[key]; err != nil {
		return extract.Result{Key: key}, err
	}
	return f.results[key], nil
}

type fakeTextExtractor struct {
	contacts []llm.RawContact
	err      error
	calls    int
}

func (f *fakeTextExtractor) ExtractFromText(context.Context, string, string) ([]llm.RawContact, error) {
	f.calls++
	return f.contacts, f.err
}

func (f *fakeTextExtractor) ExtractFromDocument(context.Context, []byte, string) ([]llm.RawContact, error) {
	return f.contacts, f.err
}

type fakeContactRepo struct {
	saved   []entity.Contact
	saveErr error
}

func (f *fakeContactRepo) CreateBatch(_ context.Context, contacts []entity.Contact) (int, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, contacts...)
	return len(contacts), nil
}

func (f *fakeContactRepo) List(context.Context, string) ([]entity.Contact, error) {
	return f.saved, nil
}

func (f *fakeContactRepo) DeleteByIDs(context.Context, []uuid.UUID) (int, error) { return 0, nil }
func (f *fakeContactRepo) Acknowledge(context.Context, uuid.UUID) error         { return nil }

// jobRunMem is the tracker's backing store for processor tests.
type jobRunMem struct {
	runs map[string]*entity.JobRun
}

func newJobRunMem() *jobRunMem { return &jobRunMem{runs: make(map[string]*entity.JobRun)} }

func (m *jobRunMem) Create(_ context.Context, run *entity.JobRun) error {
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *jobRunMem) Get(_ context.Context, id string) (*entity.JobRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *jobRunMem) UpdateStatus(_ context.Context, id string, status constants.JobStatus, completedAt *time.Time, errorMessage *string, metrics *entity.JobMetrics) error {
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

func (m *jobRunMem) ListRunning(context.Context) ([]entity.JobRun, error) {
	var out []entity.JobRun
	for _, run := range m.runs {
		if run.Status == constants.JobStatusRunning {
			out = append(out, *run)
		}
	}
	return out, nil
}

func newTestProcessor(st *fakeStore, cascade *fakeCascade, text *fakeTextExtractor, repo *fakeContactRepo, runs *jobRunMem) *Processor {
	tracker := jobs.NewTracker(runs, "OCD_CBT", 0, nil)
	p := NewProcessor(nil, st, cascade, text, nil, repo, tracker, "OCD_CBT", time.Millisecond)
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func textResult(key, method string) extract.Result {
	return extract.Result{
		Key:    key,
		Text:   strings.Repeat("interest owner listing ", 10),
		Method: method,
	}
}

func TestRunJobProcessesDocuments(t *testing.T) {
	st := &fakeStore{
		objects: []store.Object{{Key: "a.pdf", Size: 10}, {Key: "b.pdf", Size: 10}},
		data:    map[string][]byte{"a.pdf": []byte("%PDF-a"), "b.pdf": []byte("%PDF-b")},
	}
	cascade := &fakeCascade{results: map[string]extract.Result{
		"a.pdf": textResult("a.pdf", constants.TierBasic),
		"b.pdf": textResult("b.pdf", constants.TierCloudOCR),
	}}
	text := &fakeTextExtractor{contacts: []llm.RawContact{
		{Name: "John Smith", Company: "Smith Ranches"},
		{Company: "Permian Basin Operating LLC"},
	}}
	repo := &fakeContactRepo{}
	runs := newJobRunMem()

	jobID, metrics, err := newTestProcessor(st, cascade, text, repo, runs).RunJob(context.Background(), "", constants.TriggerManual)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if metrics.TotalFiles != 2 || metrics.SuccessfullyProcessed != 2 {
		t.Errorf("metrics = %+v", metrics)
	}
	if metrics.ContactsExtracted != 4 || len(repo.saved) != 4 {
		t.Errorf("contacts = %d persisted, metrics say %d", len(repo.saved), metrics.ContactsExtracted)
	}
	if text.calls != 2 {
		t.Errorf("text extraction calls = %d, want one per document", text.calls)
	}
	for _, c := range repo.saved {
		if c.JobID != jobID || c.ProjectOrigin != "OCD_CBT" {
			t.Errorf("contact missing provenance: %+v", c)
		}
	}
	run, _ := runs.Get(context.Background(), jobID)
	if run.Status != constants.JobStatusCompleted {
		t.Errorf("job status = %s, want completed", run.Status)
	}
	if !run.Metrics.Consistent() {
		t.Errorf("metrics violate the counter invariant: %+v", run.Metrics)
	}
}

func TestRunJobVisionContactsSkipTextExtraction(t *testing.T) {
	st := &fakeStore{
		objects: []store.Object{{Key: "scan.pdf", Size: 10}},
		data:    map[string][]byte{"scan.pdf": []byte("%PDF-s")},
	}
	cascade := &fakeCascade{results: map[string]extract.Result{
		"scan.pdf": {
			Key:      "scan.pdf",
			Method:   constants.TierVisionFallback,
			Contacts: []llm.RawContact{{Name: "Dora Ginn"}},
		},
	}}
	text := &fakeTextExtractor{}
	repo := &fakeContactRepo{}

	_, metrics, err := newTestProcessor(st, cascade, text, repo, newJobRunMem()).RunJob(context.Background(), "", constants.TriggerManual)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if text.calls != 0 {
		t.Errorf("text extraction called for vision-extracted contacts")
	}
	if metrics.ContactsExtracted != 1 || len(repo.saved) != 1 {
		t.Errorf("contacts = %d, metrics %+v", len(repo.saved), metrics)
	}
}

func TestRunJobCountsFailureModes(t *testing.T) {
	st := &fakeStore{
		objects: []store.Object{
			{Key: "gone.pdf"}, {Key: "corrupt.pdf"}, {Key: "stubborn.pdf"}, {Key: "good.pdf"},
		},
		data: map[string][]byte{
			"corrupt.pdf": []byte("MZ"), "stubborn.pdf": []byte("%PDF-x"), "good.pdf": []byte("%PDF-g"),
		},
		fetchErr: map[string]error{"gone.pdf": fmt.Errorf("object missing")},
	}
	cascade := &fakeCascade{
		results: map[string]extract.Result{"good.pdf": textResult("good.pdf", constants.TierBasic)},
		errs: map[string]error{
			"corrupt.pdf":  fmt.Errorf("%w: missing PDF signature", common.ErrDocumentFormat),
			"stubborn.pdf": fmt.Errorf("all extraction tiers failed for stubborn.pdf"),
		},
	}
	text := &fakeTextExtractor{contacts: []llm.RawContact{{Name: "John Smith"}}}
	repo := &fakeContactRepo{}
	runs := newJobRunMem()

	jobID, metrics, err := newTestProcessor(st, cascade, text, repo, runs).RunJob(context.Background(), "", constants.TriggerCron)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if metrics.DownloadFailed != 1 || metrics.ValidationFailed != 1 || metrics.ProcessingFailed != 1 || metrics.SuccessfullyProcessed != 1 {
		t.Errorf("metrics = %+v", metrics)
	}
	if len(metrics.SkippedFiles) != 3 {
		t.Errorf("skipped = %+v, want an entry per failure", metrics.SkippedFiles)
	}
	if !metrics.Consistent() {
		t.Errorf("metrics violate the counter invariant: %+v", metrics)
	}
	run, _ := runs.Get(context.Background(), jobID)
	if run.Status != constants.JobStatusCompleted {
		t.Errorf("per-document failures must not fail the run: %s", run.Status)
	}
}

func TestRunJobPersistenceFailureCountsDocument(t *testing.T) {
	st := &fakeStore{
		objects: []store.Object{{Key: "a.pdf"}},
		data:    map[string][]byte{"a.pdf": []byte("%PDF-a")},
	}
	cascade := &fakeCascade{results: map[string]extract.Result{"a.pdf": textResult("a.pdf", constants.TierBasic)}}
	text := &fakeTextExtractor{contacts: []llm.RawContact{{Name: "John Smith"}}}
	repo := &fakeContactRepo{saveErr: fmt.Errorf("%w: disk full", common.ErrPersistence)}
	runs := newJobRunMem()

	jobID, metrics, err := newTestProcessor(st, cascade, text, repo, runs).RunJob(context.Background(), "", constants.TriggerManual)
	if err != nil {
		t.Fatalf("RunJob() error = %v; a write failure costs the document, not the run", err)
	}
	if metrics.ProcessingFailed != 1 || metrics.SuccessfullyProcessed != 0 {
		t.Errorf("metrics = %+v", metrics)
	}
	run, _ := runs.Get(context.Background(), jobID)
	if run.Status != constants.JobStatusCompleted {
		t.Errorf("job status = %s", run.Status)
	}
}
