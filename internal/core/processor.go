package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/contacts"
	"github.com/basinworks/filings-tracker/internal/entity"
	"github.com/basinworks/filings-tracker/internal/extract"
	"github.com/basinworks/filings-tracker/internal/jobs"
	"github.com/basinworks/filings-tracker/internal/llm"
	"github.com/basinworks/filings-tracker/internal/repository"
	"github.com/basinworks/filings-tracker/internal/store"
)

// DocumentExtractor is the cascade capability the processor drives.
type DocumentExtractor interface {
	ProcessDocument(ctx context.Context, key string, data []byte) (extract.Result, error)
}

// Processor runs one ingestion job end to end: list documents, run each
// through the extraction cascade, turn extracted text into contacts, and
// persist them. Documents are handled strictly one at a time; the upstream
// OCR and language-model services are rate limited and parallelism here
// just converts into 429s.
type Processor struct {
	logger        *slog.Logger
	store         store.DocumentStore
	cascade       DocumentExtractor
	llmExtractor  llm.ContactExtractor
	retrier       *llm.Retrier
	contactsRepo  repository.ContactRepository
	tracker       *jobs.Tracker
	projectOrigin string
	documentDelay time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	docStore store.DocumentStore,
	cascade DocumentExtractor,
	llmExtractor llm.ContactExtractor,
	retrier *llm.Retrier,
	contactsRepo repository.ContactRepository,
	tracker *jobs.Tracker,
	projectOrigin string,
	documentDelay time.Duration,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if documentDelay <= 0 {
		documentDelay = 3 * time.Second
	}
	return &Processor{
		logger:        logger,
		store:         docStore,
		cascade:       cascade,
		llmExtractor:  llmExtractor,
		retrier:       retrier,
		contactsRepo:  contactsRepo,
		tracker:       tracker,
		projectOrigin: projectOrigin,
		documentDelay: documentDelay,
		sleep:         sleepFor,
		now:           time.Now,
	}
}

// RunJob processes every document under prefix as one tracked job run.
// A document-level failure is counted and the run continues; only an
// unexpected error (or panic) aborts the job, and then the metrics
// collected so far are preserved on the failed record.
func (p *Processor) RunJob(ctx context.Context, prefix string, trigger constants.TriggerType) (jobID string, metrics entity.JobMetrics, err error) {
	jobID, err = p.tracker.Start(ctx, constants.JobTypeIngest, trigger)
	if err != nil {
		return "", metrics, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v\n%s", jobID, r, debug.Stack())
			p.logger.Error("job.panic", "job_id", jobID, "panic", r)
		}
		if err != nil {
			if failErr := p.tracker.Fail(ctx, jobID, err, &metrics); failErr != nil {
				p.logger.Error("job.finalize.failed", "job_id", jobID, "err", failErr)
			}
			return
		}
		err = p.tracker.Complete(ctx, jobID, metrics)
	}()

	objects, err := p.store.List(ctx, prefix)
	if err != nil {
		return jobID, metrics, fmt.Errorf("listing documents under %q: %w", prefix, err)
	}
	metrics.TotalFiles = len(objects)
	p.logger.Info("job.listing.done", "job_id", jobID, "prefix", prefix, "documents", len(objects))

	for i, obj := range objects {
		if ctx.Err() != nil {
			return jobID, metrics, ctx.Err()
		}
		p.processOne(ctx, jobID, obj, &metrics)

		if i < len(objects)-1 {
			if err := p.sleep(ctx, p.documentDelay); err != nil {
				return jobID, metrics, err
			}
		}
	}

	if !metrics.Consistent() {
		// counters out of step with the file total is a programming error
		return jobID, metrics, fmt.Errorf("job %s: inconsistent metrics: %+v", jobID, metrics)
	}
	return jobID, metrics, nil
}

// processOne handles a single document and records its outcome in the
// metrics. It never returns an error: every per-document failure mode maps
// to a counter.
func (p *Processor) processOne(ctx context.Context, jobID string, obj store.Object, metrics *entity.JobMetrics) {
	log := p.logger.With("job_id", jobID, "key", obj.Key)

	data, err := p.store.FetchBytes(ctx, obj.Key)
	if err != nil {
		metrics.DownloadFailed++
		metrics.AddSkipped(obj.Key, fmt.Sprintf("download failed: %v", err))
		log.Error("document.fetch.failed", "err", err)
		return
	}

	res, err := p.cascade.ProcessDocument(ctx, obj.Key, data)
	if err != nil {
		if errors.Is(err, common.ErrDocumentFormat) {
			metrics.ValidationFailed++
			metrics.AddSkipped(obj.Key, fmt.Sprintf("invalid document: %v", err))
			log.Warn("document.invalid", "err", err)
			return
		}
		metrics.ProcessingFailed++
		metrics.AddSkipped(obj.Key, fmt.Sprintf("extraction failed: %v", err))
		log.Error("document.extract.failed", "err", err, "attempts", res.AttemptedTiers())
		return
	}

	raws := res.Contacts
	if res.Method != constants.TierVisionFallback {
		raws, err = p.extractContacts(ctx, res.Text, obj.Key)
		if err != nil {
			metrics.ProcessingFailed++
			metrics.AddSkipped(obj.Key, fmt.Sprintf("contact extraction failed: %v", err))
			log.Error("document.llm.failed", "err", err)
			return
		}
	}

	now := p.now()
	prov := contacts.Provenance{SourceFile: obj.Key, JobID: jobID, ProjectOrigin: p.projectOrigin}
	normalized := make([]entity.Contact, 0, len(raws))
	for _, raw := range raws {
		if c, ok := contacts.Normalize(raw, prov, now); ok {
			normalized = append(normalized, c)
		}
	}

	if _, err := p.contactsRepo.CreateBatch(ctx, normalized); err != nil {
		// a storage failure costs this document, not the run
		metrics.ProcessingFailed++
		metrics.AddSkipped(obj.Key, fmt.Sprintf("persist failed: %v", err))
		log.Error("document.persist.failed", "err", err)
		return
	}

	metrics.SuccessfullyProcessed++
	metrics.ContactsExtracted += len(normalized)
	log.Info("document.done",
		"method", res.Method,
		"classification", res.Classification.Classification,
		"contacts", len(normalized))
}

func (p *Processor) extractContacts(ctx context.Context, text, filename string) ([]llm.RawContact, error) {
	if p.retrier == nil {
		return p.llmExtractor.ExtractFromText(ctx, text, filename)
	}
	return p.retrier.Do(ctx, func(ctx context.Context) ([]llm.RawContact, error) {
		return p.llmExtractor.ExtractFromText(ctx, text, filename)
	})
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
