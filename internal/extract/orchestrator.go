package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/classify"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/llm"
)

// A tier is successful once it yields this much text; OCR output on
// image-based filings gets a lower bar because sparse forms OCR thin.
const minUsableChars = 100

// OCRResult is what a cloud OCR call yields.
type OCRResult struct {
	Text       string
	Confidence float32
}

// OCRProvider is the cloud OCR capability consumed by the cascade.
type OCRProvider interface {
	ExtractText(ctx context.Context, document []byte) (OCRResult, error)
}

// TextOCR is the local OCR capability: plain text out, no confidence.
type TextOCR interface {
	ExtractText(ctx context.Context, document []byte) (string, error)
}

// Config bounds the cascade's external capabilities.
type Config struct {
	CloudMaxBytes  int64         // cloud OCR size ceiling; larger documents are compressed first
	OCRMaxPages    int           // OCR provider page ceiling; 0 = none
	VisionMaxPages int           // language-model document page ceiling
	ChunkDelay     time.Duration // pause between chunked vision calls
}

// Orchestrator runs one document through the extraction cascade: basic
// parse, render-optimize + reparse, cloud OCR, local OCR, and finally the
// language-model vision fallback. Every attempt is recorded in order.
type Orchestrator struct {
	cfg       Config
	optimizer Optimizer
	cloud     OCRProvider
	local     TextOCR
	vision    llm.ContactExtractor
	retrier   *llm.Retrier
	sleep     func(ctx context.Context, d time.Duration) error
	parse     func(data []byte) (ParsedPDF, error)
	split     func(data []byte, totalPages int, ranges []PageRange) ([][]byte, error)
	logger    *slog.Logger
}

func NewOrchestrator(
	cfg Config,
	optimizer Optimizer,
	cloud OCRProvider,
	local TextOCR,
	vision llm.ContactExtractor,
	retrier *llm.Retrier,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.VisionMaxPages <= 0 {
		cfg.VisionMaxPages = 100
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		optimizer: optimizer,
		cloud:     cloud,
		local:     local,
		vision:    vision,
		retrier:   retrier,
		sleep:     sleepFor,
		parse:     ParsePDF,
		split:     SplitDocument,
		logger:    logger,
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// tierOutcome is what one cascade tier produces.
type tierOutcome struct {
	text     string
	contacts []llm.RawContact
	steps    []string
}

// tier pairs a cascade stage with its attempt function, so ordering is a
// data change rather than nested control flow.
type tier struct {
	name    string
	attempt func(ctx context.Context) (tierOutcome, error)
}

// ProcessDocument runs the full cascade over one filing. The returned
// Result always carries the ordered attempt trail, whether or not any tier
// succeeded. Corrupt documents fail fast with ErrDocumentFormat.
func (o *Orchestrator) ProcessDocument(ctx context.Context, key string, data []byte) (Result, error) {
	res := Result{Key: key}

	if !looksLikePDF(data) {
		return res, fmt.Errorf("%w: missing PDF signature", common.ErrDocumentFormat)
	}

	// Cheap first-pass parse feeds the classifier; a parse failure
	// classifies as unknown and the cascade tries everything.
	parsed, parseErr := o.parse(data)
	var cls classify.Result
	if parseErr != nil {
		cls = classify.Unknown()
	} else {
		cls = classify.Classify(len(parsed.Text), parsed.Pages, int64(len(data)))
	}
	res.Pages = parsed.Pages
	res.Classification = cls
	imageBased := cls.Classification == constants.ContentImageBased

	o.logger.Debug("orchestrator.classified",
		"key", key,
		"classification", string(cls.Classification),
		"recommended", cls.Recommended,
		"pages", parsed.Pages,
	)

	// Optimized bytes are shared between the optimized-parse and cloud-OCR
	// tiers; computed at most once. optimizedOK records whether the
	// optimizer actually produced new bytes or fell back to the original.
	var (
		optimized   []byte
		optimizedOK bool
	)

	tiers := []tier{
		{constants.TierBasic, func(ctx context.Context) (tierOutcome, error) {
			if parseErr != nil {
				return tierOutcome{}, parseErr
			}
			return tierOutcome{text: parsed.Text, steps: []string{
				fmt.Sprintf("parsed %d pages", parsed.Pages),
			}}, nil
		}},
		{constants.TierOptimized, func(ctx context.Context) (tierOutcome, error) {
			out, was := o.optimizer.Optimize(ctx, data)
			steps := []string{"render-optimize"}
			if !was {
				steps = append(steps, "optimizer fell back to original bytes")
			}
			optimized, optimizedOK = out, was
			reparsed, err := o.parse(out)
			if err != nil {
				return tierOutcome{steps: steps}, err
			}
			if reparsed.Pages > res.Pages {
				res.Pages = reparsed.Pages
			}
			steps = append(steps, fmt.Sprintf("reparsed %d pages", reparsed.Pages))
			return tierOutcome{text: reparsed.Text, steps: steps}, nil
		}},
		{constants.TierCloudOCR, func(ctx context.Context) (tierOutcome, error) {
			if o.cloud == nil {
				return tierOutcome{}, fmt.Errorf("cloud OCR not configured")
			}
			if o.cfg.OCRMaxPages > 0 && res.Pages > o.cfg.OCRMaxPages {
				return tierOutcome{}, fmt.Errorf("%w: %d pages over OCR ceiling %d",
					common.ErrCapabilityLimit, res.Pages, o.cfg.OCRMaxPages)
			}
			payload := data
			var steps []string
			if o.cfg.CloudMaxBytes > 0 && int64(len(payload)) > o.cfg.CloudMaxBytes {
				if optimized == nil {
					optimized, optimizedOK = o.optimizer.Optimize(ctx, data)
				}
				payload = optimized
				if optimizedOK {
					steps = append(steps, "compressed for size gate")
				} else {
					steps = append(steps, "optimizer fell back to original bytes")
				}
				if int64(len(payload)) > o.cfg.CloudMaxBytes {
					return tierOutcome{steps: steps}, fmt.Errorf("%w: %d bytes over cloud OCR ceiling %d",
						common.ErrCapabilityLimit, len(payload), o.cfg.CloudMaxBytes)
				}
			}
			ocrRes, err := o.cloud.ExtractText(ctx, payload)
			if err != nil {
				return tierOutcome{steps: steps}, err
			}
			steps = append(steps, fmt.Sprintf("cloud OCR confidence %.2f", ocrRes.Confidence))
			return tierOutcome{text: ocrRes.Text, steps: steps}, nil
		}},
		{constants.TierLocalOCR, func(ctx context.Context) (tierOutcome, error) {
			if o.local == nil {
				return tierOutcome{}, fmt.Errorf("local OCR not configured")
			}
			text, err := o.local.ExtractText(ctx, data)
			if err != nil {
				return tierOutcome{}, err
			}
			return tierOutcome{text: text, steps: []string{"two-pass tesseract"}}, nil
		}},
		{constants.TierVisionFallback, func(ctx context.Context) (tierOutcome, error) {
			contacts, steps, err := o.visionExtract(ctx, key, data, res.Pages)
			return tierOutcome{contacts: contacts, steps: steps}, err
		}},
	}

	// An OCR page-count overflow sends the document straight to the vision
	// fallback's chunked path after the parse tiers.
	ocrPagesExceeded := o.cfg.OCRMaxPages > 0 && res.Pages > o.cfg.OCRMaxPages

	for _, tr := range tiers {
		if ocrPagesExceeded && (tr.name == constants.TierCloudOCR || tr.name == constants.TierLocalOCR) {
			res.Attempts = append(res.Attempts, Attempt{
				Tier:  tr.name,
				Steps: []string{fmt.Sprintf("skipped: %d pages over OCR ceiling %d", res.Pages, o.cfg.OCRMaxPages)},
				Err:   common.ErrCapabilityLimit,
			})
			continue
		}

		outcome, err := tr.attempt(ctx)
		attempt := Attempt{
			Tier:      tr.name,
			CharCount: len(outcome.text),
			Steps:     outcome.steps,
			Err:       err,
		}

		switch {
		case err != nil:
			// fall through to the next tier
		case tr.name == constants.TierVisionFallback:
			attempt.Success = true
			res.Attempts = append(res.Attempts, attempt)
			res.Method = tr.name
			res.Contacts = outcome.contacts
			return res, nil
		case usableText(outcome.text, tr.name, imageBased):
			attempt.Success = true
			res.Attempts = append(res.Attempts, attempt)
			res.Method = tr.name
			res.Text = outcome.text
			return res, nil
		}
		res.Attempts = append(res.Attempts, attempt)

		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}

	return res, fmt.Errorf("all extraction tiers failed for %s", key)
}

// usableText applies the success bar: 100 chars normally, any text at all
// for OCR tiers on image-based filings.
func usableText(text, tierName string, imageBased bool) bool {
	if imageBased && (tierName == constants.TierCloudOCR || tierName == constants.TierLocalOCR) {
		return len(text) > 0
	}
	return len(text) >= minUsableChars
}

// visionExtract sends the document to the language model, chunking it when
// it exceeds the provider's page ceiling. Chunk results are concatenated;
// deduplication is a later, separate pass.
func (o *Orchestrator) visionExtract(ctx context.Context, key string, data []byte, pages int) ([]llm.RawContact, []string, error) {
	if o.vision == nil {
		return nil, nil, fmt.Errorf("vision extraction not configured")
	}

	ranges := ChunkRanges(pages, o.cfg.VisionMaxPages)
	if pages <= o.cfg.VisionMaxPages {
		contacts, err := o.retryExtract(ctx, data, key)
		if err == nil {
			return contacts, []string{"single document call"}, nil
		}
		var pl *llm.PageLimitError
		if !errors.As(err, &pl) {
			return nil, nil, err
		}
		// provider disagreed with our page count; chunk to its ceiling
		ranges = ChunkRanges(pages, pl.MaxPages)
	}

	chunks, err := o.split(data, pages, ranges)
	if err != nil {
		return nil, nil, err
	}

	steps := []string{fmt.Sprintf("chunked into %d page ranges", len(ranges))}
	var all []llm.RawContact
	for i, chunk := range chunks {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.ChunkDelay); err != nil {
				return nil, steps, err
			}
		}
		name := fmt.Sprintf("%s#%s", key, ranges[i])
		contacts, err := o.retryExtract(ctx, chunk, name)
		if err != nil {
			return nil, steps, fmt.Errorf("chunk %s: %w", ranges[i], err)
		}
		steps = append(steps, fmt.Sprintf("chunk %s yielded %d contacts", ranges[i], len(contacts)))
		all = append(all, contacts...)
	}
	return all, steps, nil
}

func (o *Orchestrator) retryExtract(ctx context.Context, data []byte, name string) ([]llm.RawContact, error) {
	if o.retrier == nil {
		return o.vision.ExtractFromDocument(ctx, data, name)
	}
	return o.retrier.Do(ctx, func(ctx context.Context) ([]llm.RawContact, error) {
		return o.vision.ExtractFromDocument(ctx, data, name)
	})
}

func looksLikePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
