package classify

import (
	"testing"

	"github.com/basinworks/filings-tracker/constants"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		textLen   int
		pages     int
		sizeBytes int64
		want      constants.ContentClassification
		wantRec   string
	}{
		{
			name:    "dense digital filing is text-based",
			textLen: 10000, pages: 5, sizeBytes: 80 * 1024,
			want:    constants.ContentTextBased,
			wantRec: constants.MethodGhostscriptOnly,
		},
		{
			name:    "scanned filing with empty text layer is image-based",
			textLen: 30, pages: 10, sizeBytes: 2048 * 1024,
			want:    constants.ContentImageBased,
			wantRec: constants.MethodTextract,
		},
		{
			name:    "sparse text on small file falls to mixed",
			textLen: 50, pages: 10, sizeBytes: 100 * 1024,
			want:    constants.ContentMixed,
			wantRec: constants.MethodBoth,
		},
		{
			name:    "high density but short pages is mixed",
			textLen: 3000, pages: 20, sizeBytes: 40 * 1024,
			want:    constants.ContentMixed,
			wantRec: constants.MethodBoth,
		},
		{
			name:    "zero text",
			textLen: 0, pages: 3, sizeBytes: 500 * 1024,
			want:    constants.ContentImageBased,
			wantRec: constants.MethodTextract,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.textLen, tt.pages, tt.sizeBytes)
			if got.Classification != tt.want {
				t.Errorf("Classify(%d, %d, %d) = %s, want %s",
					tt.textLen, tt.pages, tt.sizeBytes, got.Classification, tt.want)
			}
			if got.Recommended != tt.wantRec {
				t.Errorf("recommended = %s, want %s", got.Recommended, tt.wantRec)
			}
		})
	}
}

func TestClassifyMetrics(t *testing.T) {
	got := Classify(50, 10, 100*1024)
	if got.AvgTextPerPage != 5 {
		t.Errorf("avg text per page = %v, want 5", got.AvgTextPerPage)
	}
	if got.TextDensity != 0.5 {
		t.Errorf("text density = %v, want 0.5", got.TextDensity)
	}
}

func TestClassifyZeroPages(t *testing.T) {
	// page count defaults to 1 so the ratio stays defined
	got := Classify(1000, 0, 10*1024)
	if got.AvgTextPerPage != 1000 {
		t.Errorf("avg text per page = %v, want 1000", got.AvgTextPerPage)
	}
}

func TestUnknown(t *testing.T) {
	got := Unknown()
	if got.Classification != constants.ContentUnknown {
		t.Errorf("classification = %s, want unknown", got.Classification)
	}
	if got.Recommended != constants.MethodBoth {
		t.Errorf("recommended = %s, want both", got.Recommended)
	}
}
