package constants

import "strings"

// OwnershipType is the interest class carried on a contact record.
type OwnershipType string

const (
	WorkingInterest   OwnershipType = "WI"   // working interest
	OverridingRoyalty OwnershipType = "ORRI" // overriding royalty interest
	UnleasedMineral   OwnershipType = "UMI"  // unleased mineral interest
)

var allOwnershipTypes = []OwnershipType{
	WorkingInterest,
	OverridingRoyalty,
	UnleasedMineral,
}

func OwnershipTypeStrings() []string {
	result := make([]string, len(allOwnershipTypes))
	for i, t := range allOwnershipTypes {
		result[i] = string(t)
	}
	return result
}

// CanonicalizeOwnership maps loose interest labels from extracted filings
// onto the stable ownership codes. Returns false when no mapping exists.
func CanonicalizeOwnership(input string) (OwnershipType, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]OwnershipType{
		"working interest":            WorkingInterest,
		"working interest owner":      WorkingInterest,
		"operator":                    WorkingInterest,
		"overriding royalty":          OverridingRoyalty,
		"overriding royalty interest": OverridingRoyalty,
		"override":                    OverridingRoyalty,
		"unleased mineral interest":   UnleasedMineral,
		"unleased mineral owner":      UnleasedMineral,
		"mineral owner":               UnleasedMineral,
	}

	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allOwnershipTypes {
		if strings.EqualFold(normalized, string(t)) {
			return t, true
		}
	}

	return "", false
}

// DedupMode selects the match key used by the deduplication engine.
type DedupMode string

const (
	DedupStrict      DedupMode = "strict"
	DedupNameOnly    DedupMode = "name-only"
	DedupNameCompany DedupMode = "name-company"
	DedupFuzzy       DedupMode = "fuzzy"
)

// LegalEntityMarkers are whole-word markers that flag a contact as a legal
// practice or agent rather than an interest owner proper.
var LegalEntityMarkers = []string{
	"attorney",
	"attorneys",
	"esq",
	"esquire",
	"law firm",
	"law office",
	"law offices",
	"lawyer",
	"legal counsel",
	"counsel",
	"pllc",
	"llp",
	"p.c.",
	"paralegal",
	"registered agent",
}
