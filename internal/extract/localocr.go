package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalOCRConfig configures the tesseract tier.
type LocalOCRConfig struct {
	Pdftoppm  string
	Tesseract string
	DPI       int
	WorkDir   string
}

// LocalOCR rasterizes a PDF with pdftoppm and OCRs each page twice with
// different layout assumptions, keeping whichever pass extracts more
// characters. Scanned regulatory forms defeat any single page-segmentation
// mode often enough that the second pass pays for itself.
type LocalOCR struct {
	cfg    LocalOCRConfig
	runner Runner
	logger *slog.Logger
}

func NewLocalOCR(cfg LocalOCRConfig, runner Runner, logger *slog.Logger) *LocalOCR {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalOCR{cfg: cfg, runner: runner, logger: logger}
}

// ExtractText renders and OCRs the document. Working files live in a temp
// dir removed on every exit path.
func (l *LocalOCR) ExtractText(ctx context.Context, data []byte) (string, error) {
	tmpDir, err := os.MkdirTemp(l.cfg.WorkDir, "ft-ocr-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			l.logger.Warn("localocr.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", err
	}

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := l.runner.Run(ctx, l.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", l.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 2<<10))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no images")
	}

	var b strings.Builder
	for _, img := range matches {
		txt := l.ocrPage(ctx, img)
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

// ocrPage runs both layout passes and keeps the richer one.
func (l *LocalOCR) ocrPage(ctx context.Context, img string) string {
	uniform := l.tesseract(ctx, img, "6") // single uniform text block
	auto := l.tesseract(ctx, img, "3")    // fully automatic segmentation
	if len(auto) > len(uniform) {
		return auto
	}
	return uniform
}

func (l *LocalOCR) tesseract(ctx context.Context, img, psm string) string {
	out, errb, err := l.runner.Run(ctx, l.cfg.Tesseract, img, "stdout", "-l", "eng", "--psm", psm)
	if err != nil {
		l.logger.Debug("localocr.pass_failed", "img", filepath.Base(img), "psm", psm,
			"error", err, "stderr", truncate(string(errb), 1<<10))
		return ""
	}
	return strings.TrimSpace(string(out))
}
