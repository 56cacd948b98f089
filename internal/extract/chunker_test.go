package extract

import "testing"

func TestChunkRanges(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		maxPages int
		want     []PageRange
	}{
		{
			name:  "250 pages at 100 per chunk",
			total: 250, maxPages: 100,
			want: []PageRange{{1, 100}, {101, 200}, {201, 250}},
		},
		{
			name:  "exact multiple",
			total: 200, maxPages: 100,
			want: []PageRange{{1, 100}, {101, 200}},
		},
		{
			name:  "within the limit is a single identity chunk",
			total: 40, maxPages: 100,
			want: []PageRange{{1, 40}},
		},
		{
			name:  "single page",
			total: 1, maxPages: 100,
			want: []PageRange{{1, 1}},
		},
		{
			name:  "limit of one",
			total: 3, maxPages: 1,
			want: []PageRange{{1, 1}, {2, 2}, {3, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkRanges(tt.total, tt.maxPages)
			if len(got) != len(tt.want) {
				t.Fatalf("ChunkRanges(%d, %d) = %v, want %v", tt.total, tt.maxPages, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkRangesCoverage(t *testing.T) {
	// ranges must be contiguous, non-overlapping, and sum to the total
	for _, total := range []int{1, 7, 99, 100, 101, 250, 1000} {
		ranges := ChunkRanges(total, 100)
		sum := 0
		next := 1
		for _, r := range ranges {
			if r.From != next {
				t.Fatalf("total=%d: range %v starts at %d, want %d", total, r, r.From, next)
			}
			if r.To < r.From {
				t.Fatalf("total=%d: inverted range %v", total, r)
			}
			sum += r.Pages()
			next = r.To + 1
		}
		if sum != total {
			t.Errorf("total=%d: chunk sizes sum to %d", total, sum)
		}
		if ranges[len(ranges)-1].To != total {
			t.Errorf("total=%d: last range %v does not end at total", total, ranges[len(ranges)-1])
		}
	}
}

func TestChunkRangesDegenerate(t *testing.T) {
	if got := ChunkRanges(0, 100); got != nil {
		t.Errorf("ChunkRanges(0, 100) = %v, want nil", got)
	}
	// a non-positive limit means no ceiling
	got := ChunkRanges(500, 0)
	if len(got) != 1 || got[0] != (PageRange{1, 500}) {
		t.Errorf("ChunkRanges(500, 0) = %v, want single full range", got)
	}
}
