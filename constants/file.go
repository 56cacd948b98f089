package constants

import "strings"

// ContentClassification labels how much machine-readable text a filing carries.
type ContentClassification string

const (
	ContentTextBased  ContentClassification = "text-based"
	ContentImageBased ContentClassification = "image-based"
	ContentMixed      ContentClassification = "mixed"
	ContentUnknown    ContentClassification = "unknown"
)

// Recommended extraction method per classification.
const (
	MethodGhostscriptOnly = "ghostscript-only" // basic parse suffices
	MethodTextract        = "textract"         // cloud OCR
	MethodBoth            = "both"             // try everything
)

// Extraction tier names, in cascade order. These exact strings appear in
// the per-document attempt audit trail.
const (
	TierBasic          = "basic"
	TierOptimized      = "optimized"
	TierCloudOCR       = "cloud-ocr"
	TierLocalOCR       = "local-ocr"
	TierVisionFallback = "vision-fallback"
)

// AllowedExtensions holds the file extensions accepted for filing ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
