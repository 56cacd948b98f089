package extract

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/basinworks/filings-tracker/internal/common"
)

// ParsedPDF is the outcome of the cheap first-pass parse: whatever text the
// content streams give up plus structural facts the classifier needs.
type ParsedPDF struct {
	Text      string
	Pages     int
	HasImages bool
}

// ParsePDF reads, validates, and text-scrapes a PDF in memory. Corrupt or
// wrongly-signed files come back wrapped in ErrDocumentFormat so the job
// loop can skip them.
func ParsePDF(data []byte) (ParsedPDF, error) {
	ctx, err := readPDF(data)
	if err != nil {
		return ParsedPDF{}, err
	}

	var b strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageText := pageContentText(ctx, pageNr)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\f')
		}
		b.WriteString(pageText)
	}

	return ParsedPDF{
		Text:      b.String(),
		Pages:     ctx.PageCount,
		HasImages: hasImageStreams(ctx),
	}, nil
}

// PageCount returns the page count without scraping text.
func PageCount(data []byte) (int, error) {
	ctx, err := readPDF(data)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// ExtractPageRange cuts pages [from,to] (1-based, inclusive) into a
// standalone PDF. Used by the chunker to satisfy the vision provider's page
// ceiling.
func ExtractPageRange(data []byte, from, to int) ([]byte, error) {
	if from < 1 || to < from {
		return nil, fmt.Errorf("invalid page range %d-%d", from, to)
	}
	var out bytes.Buffer
	sel := []string{fmt.Sprintf("%d-%d", from, to)}
	if err := api.Trim(bytes.NewReader(data), &out, sel, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("trim pages %d-%d: %w", from, to, err)
	}
	return out.Bytes(), nil
}

func readPDF(data []byte) (*model.Context, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: missing PDF signature", common.ErrDocumentFormat)
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDocumentFormat, err)
	}
	return ctx, nil
}

// pageContentText scrapes text-showing operators from one page's content
// stream. This is the cheap parse; anything it cannot read falls to the OCR
// tiers.
func pageContentText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

var pdfStringLiteral = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

func textFromContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringLiteral.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringLiteral.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSpace(sb.String())
}

// decodePDFString handles the escape sequences allowed in PDF literal
// strings. Non-ASCII encodings are left to the OCR tiers.
func decodePDFString(b []byte) string {
	var sb strings.Builder
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '\\' || i+1 >= len(b) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch b[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '(', ')', '\\':
			sb.WriteByte(b[i])
		default:
			sb.WriteByte(b[i])
		}
	}
	return sb.String()
}

func hasImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
