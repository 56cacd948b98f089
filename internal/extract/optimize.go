package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Optimizer is the render-optimize capability: a lossy recompression that
// trades file size for OCR readability. Failure is never fatal; callers fall
// back to the original bytes.
type Optimizer interface {
	Optimize(ctx context.Context, data []byte) (out []byte, wasOptimized bool)
}

// GhostscriptOptimizer rewrites a PDF through ghostscript's pdfwrite device.
type GhostscriptOptimizer struct {
	bin     string
	runner  Runner
	workDir string
	logger  *slog.Logger
}

func NewGhostscriptOptimizer(bin, workDir string, runner Runner, logger *slog.Logger) *GhostscriptOptimizer {
	if bin == "" {
		bin = "gs"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GhostscriptOptimizer{bin: bin, runner: runner, workDir: workDir, logger: logger}
}

func (g *GhostscriptOptimizer) Optimize(ctx context.Context, data []byte) ([]byte, bool) {
	tmpDir, err := os.MkdirTemp(g.workDir, "ft-gs-*")
	if err != nil {
		g.logger.Warn("optimize.tempdir_failed", "error", err)
		return data, false
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			g.logger.Warn("optimize.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	out := filepath.Join(tmpDir, "out.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		g.logger.Warn("optimize.write_failed", "error", err)
		return data, false
	}

	_, errb, err := g.runner.Run(ctx, g.bin,
		"-sDEVICE=pdfwrite",
		"-dPDFSETTINGS=/ebook",
		"-dNOPAUSE", "-dBATCH", "-dQUIET",
		fmt.Sprintf("-sOutputFile=%s", out),
		in,
	)
	if err != nil {
		g.logger.Warn("optimize.ghostscript_failed", "error", err, "stderr", truncate(string(errb), 2<<10))
		return data, false
	}

	optimized, err := os.ReadFile(out)
	if err != nil || len(optimized) == 0 {
		g.logger.Warn("optimize.read_failed", "error", err)
		return data, false
	}

	g.logger.Debug("optimize.ok", "before_bytes", len(data), "after_bytes", len(optimized))
	return optimized, true
}
