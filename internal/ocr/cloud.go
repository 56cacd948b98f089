package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/extract"
)

// CloudConfig points the client at an HTTP OCR endpoint. The endpoint takes
// a base64 document and answers with extracted text and a confidence score.
type CloudConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// CloudClient is the hosted OCR implementation of the cascade's OCR
// capability. It exists next to the local tesseract path because hosted OCR
// reads degraded scans far better, at the price of a size ceiling.
type CloudClient struct {
	cfg    CloudConfig
	client *http.Client
	logger *slog.Logger
}

func NewCloudClient(cfg CloudConfig, logger *slog.Logger) *CloudClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type cloudRequest struct {
	Document string `json:"document"` // base64 PDF bytes
	Format   string `json:"format"`
}

type cloudResponse struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// ExtractText uploads the document and returns the recognized text.
func (c *CloudClient) ExtractText(ctx context.Context, document []byte) (extract.OCRResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body := cloudRequest{
		Document: base64.StdEncoding.EncodeToString(document),
		Format:   "pdf",
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return extract.OCRResult{}, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(bs))
	if err != nil {
		return extract.OCRResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.logger.Info("ocr.cloud.request", "req_id", reqID, "bytes", len(document))

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("ocr.cloud.send_error", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return extract.OCRResult{}, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("ocr.cloud.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Info("ocr.cloud.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return extract.OCRResult{}, fmt.Errorf("%w: ocr endpoint returned %d: %s",
			common.ErrTransientUpstream, resp.StatusCode, truncate(raw, 200))
	}
	if resp.StatusCode != http.StatusOK {
		return extract.OCRResult{}, fmt.Errorf("ocr endpoint returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var out cloudResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return extract.OCRResult{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return extract.OCRResult{}, fmt.Errorf("ocr endpoint error: %s", out.Error)
	}
	return extract.OCRResult{Text: out.Text, Confidence: out.Confidence}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
