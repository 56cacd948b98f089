// Package anthropic implements the contact-extraction service on the
// Anthropic Messages API, for both OCR-text input and raw PDF pages.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/basinworks/filings-tracker/internal/llm"
)

type Config struct {
	APIKey    string
	Model     string // empty -> SDK default sonnet
	MaxTokens int
	Timeout   time.Duration
	MaxPages  int // provider page ceiling for document blocks
}

type Client struct {
	client   anthropic.Client
	model    string
	maxTok   int
	timeout  time.Duration
	maxPages int
	log      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	maxTok := cfg.MaxTokens
	if maxTok == 0 {
		maxTok = 8192
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxPages := cfg.MaxPages
	if maxPages == 0 {
		maxPages = 100
	}
	return &Client{
		client:   anthropic.NewClient(opts...),
		model:    model,
		maxTok:   maxTok,
		timeout:  timeout,
		maxPages: maxPages,
		log:      logger,
	}
}

// MaxPages reports the provider's document page ceiling; callers chunk
// anything above it.
func (c *Client) MaxPages() int { return c.maxPages }

// ExtractFromText asks the model for contacts found in already-extracted
// filing text.
func (c *Client) ExtractFromText(ctx context.Context, text, filename string) ([]llm.RawContact, error) {
	user := anthropic.NewUserMessage(
		anthropic.NewTextBlock(llm.BuildTextUserPrompt(text, filename)),
	)
	return c.extract(ctx, filename, user)
}

// ExtractFromDocument sends raw PDF bytes as a document block (the vision
// fallback path).
func (c *Client) ExtractFromDocument(ctx context.Context, document []byte, filename string) ([]llm.RawContact, error) {
	user := anthropic.NewUserMessage(
		anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(document),
		}),
		anthropic.NewTextBlock(llm.BuildDocumentUserPrompt(filename)),
	)
	return c.extract(ctx, filename, user)
}

func (c *Client) extract(ctx context.Context, filename string, user anthropic.MessageParam) ([]llm.RawContact, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	schema := llm.BuildContactJSONSchema()
	properties, _ := schema["properties"].(map[string]any)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTok),
		System: []anthropic.TextBlockParam{
			{Text: llm.BuildSystemPrompt()},
		},
		Messages: []anthropic.MessageParam{user},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        "record_contacts",
					Description: anthropic.String("Record the contacts extracted from the filing"),
					InputSchema: anthropic.ToolInputSchemaParam{
						Type:       "object",
						Properties: properties,
						Required:   []string{"contacts"},
					},
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceParamOfTool("record_contacts"),
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		mapped := c.mapAPIError(err)
		c.log.Error("llm.extract.api_error",
			"filename", filename, "error", mapped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, mapped
	}

	var raw []byte
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			// the tool input IS the extracted data
			if jb, jerr := json.Marshal(b.Input); jerr == nil {
				raw = jb
			}
		case anthropic.TextBlock:
			if raw == nil {
				raw = []byte(b.Text)
			}
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty model response for %s", filename)
	}

	cleaned, adjusted, err := llm.NormalizeAndSanitizeJSON(raw, c.log)
	if err != nil {
		return nil, fmt.Errorf("sanitize response: %w", err)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"filename", filename, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var envelope struct {
		Contacts []llm.RawContact `json:"contacts"`
	}
	if err := json.Unmarshal(cleaned, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal contacts: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"filename", filename,
		"contacts", len(envelope.Contacts),
		"sanitize_adjustments", len(adjusted),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return envelope.Contacts, nil
}

// mapAPIError folds SDK errors onto the typed failures the retry controller
// and chunker understand.
func (c *Client) mapAPIError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 429:
			return fmt.Errorf("%w: %v", llm.ErrRateLimited, err)
		case 529:
			return fmt.Errorf("%w: %v", llm.ErrOverloaded, err)
		case 400:
			msg := strings.ToLower(apierr.Error())
			if strings.Contains(msg, "page") && (strings.Contains(msg, "limit") || strings.Contains(msg, "maximum") || strings.Contains(msg, "exceed")) {
				return &llm.PageLimitError{MaxPages: c.maxPages}
			}
		}
	}
	return err
}
