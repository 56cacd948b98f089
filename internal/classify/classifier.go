// Package classify labels a filing's content from its raw-text yield so the
// extraction cascade can pick a starting method.
package classify

import (
	"github.com/basinworks/filings-tracker/constants"
)

// Thresholds for the classification rules below. A filing with plenty of
// extractable text per page and per kilobyte is readable without OCR; a
// near-empty text layer on a large file is a scan.
const (
	textAvgPerPageMin = 500.0
	textDensityMin    = 50.0
	imageTextMax      = 50
	imageDensityMax   = 10.0
)

// Result carries the classification of one filing and the extraction method
// it recommends.
type Result struct {
	Classification constants.ContentClassification
	Recommended    string
	AvgTextPerPage float64
	TextDensity    float64
}

// Classify inspects the raw-text yield of a cheap first-pass parse.
// Rules apply in order; first match wins:
//
//	avg/page > 500 and density > 50     -> text-based, basic parse suffices
//	text under 50 chars and density <10 -> image-based, cloud OCR
//	otherwise                           -> mixed, try both
//
// Deterministic and side-effect-free.
func Classify(textLength, pages int, sizeBytes int64) Result {
	if pages < 1 {
		pages = 1
	}
	sizeKB := float64(sizeBytes) / 1024.0
	if sizeKB <= 0 {
		sizeKB = 1
	}

	avg := float64(textLength) / float64(pages)
	density := float64(textLength) / sizeKB

	res := Result{AvgTextPerPage: avg, TextDensity: density}
	switch {
	case avg > textAvgPerPageMin && density > textDensityMin:
		res.Classification = constants.ContentTextBased
		res.Recommended = constants.MethodGhostscriptOnly
	case textLength < imageTextMax && density < imageDensityMax:
		res.Classification = constants.ContentImageBased
		res.Recommended = constants.MethodTextract
	default:
		res.Classification = constants.ContentMixed
		res.Recommended = constants.MethodBoth
	}
	return res
}

// Unknown is the conservative classification for a filing whose first-pass
// parse failed outright: try everything.
func Unknown() Result {
	return Result{
		Classification: constants.ContentUnknown,
		Recommended:    constants.MethodBoth,
	}
}
