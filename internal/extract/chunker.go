package extract

import "fmt"

// PageRange is a contiguous run of 1-based, inclusive page numbers.
type PageRange struct {
	From int
	To   int
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// Pages returns how many pages the range spans.
func (r PageRange) Pages() int {
	return r.To - r.From + 1
}

// ChunkRanges splits totalPages into ceil(totalPages/maxPagesPerChunk)
// contiguous, non-overlapping ranges covering the document exactly once.
// When the document fits, the sole chunk is the whole document.
func ChunkRanges(totalPages, maxPagesPerChunk int) []PageRange {
	if totalPages < 1 {
		return nil
	}
	if maxPagesPerChunk < 1 || totalPages <= maxPagesPerChunk {
		return []PageRange{{From: 1, To: totalPages}}
	}

	n := (totalPages + maxPagesPerChunk - 1) / maxPagesPerChunk
	ranges := make([]PageRange, 0, n)
	for from := 1; from <= totalPages; from += maxPagesPerChunk {
		to := from + maxPagesPerChunk - 1
		if to > totalPages {
			to = totalPages
		}
		ranges = append(ranges, PageRange{From: from, To: to})
	}
	return ranges
}

// SplitDocument cuts the PDF into per-range standalone documents. A single
// full-coverage range returns the original bytes untouched.
func SplitDocument(data []byte, totalPages int, ranges []PageRange) ([][]byte, error) {
	if len(ranges) == 1 && ranges[0].From == 1 && ranges[0].To == totalPages {
		return [][]byte{data}, nil
	}
	chunks := make([][]byte, 0, len(ranges))
	for _, r := range ranges {
		part, err := ExtractPageRange(data, r.From, r.To)
		if err != nil {
			return nil, fmt.Errorf("split chunk %s: %w", r, err)
		}
		chunks = append(chunks, part)
	}
	return chunks, nil
}
