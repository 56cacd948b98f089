package contacts

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/entity"
	"github.com/basinworks/filings-tracker/internal/llm"
)

// Provenance ties a normalized contact back to the document and run it
// came from.
type Provenance struct {
	SourceFile    string
	JobID         string
	ProjectOrigin string
}

var (
	// matches "NM 87501" or "TX 79701-1234" at the tail of an address segment
	stateZipPattern = regexp.MustCompile(`\b([A-Za-z]{2})\s+(\d{5}(?:-\d{4})?)$`)
	fractionPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)$`)
)

// Normalize maps one raw extracted object onto the canonical contact
// schema. It never rejects a record outright: invalid phones and emails
// become nulls, unparseable percentages become nil, and only entirely
// nameless records return false.
func Normalize(raw llm.RawContact, prov Provenance, now time.Time) (entity.Contact, bool) {
	c := entity.Contact{
		ID:            uuid.New(),
		SourceFile:    prov.SourceFile,
		JobID:         prov.JobID,
		ProjectOrigin: prov.ProjectOrigin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	name := strings.TrimSpace(raw.Name)
	company := strings.TrimSpace(raw.Company)
	if name == "" && company == "" {
		return entity.Contact{}, false
	}
	c.Name = optional(name)
	c.Company = optional(company)

	first := strings.TrimSpace(raw.FirstName)
	last := strings.TrimSpace(raw.LastName)
	if first == "" && last == "" && name != "" {
		first, last = splitName(name)
	}
	c.FirstName = optional(first)
	c.LastName = optional(last)

	applyAddress(&c, raw)

	for _, p := range raw.Phones {
		if len(c.Phones) >= entity.MaxPhones {
			break
		}
		if normalized, ok := common.NormalizePhone(p); ok {
			c.Phones = append(c.Phones, normalized)
		}
	}
	for _, e := range raw.Emails {
		if len(c.Emails) >= entity.MaxEmails {
			break
		}
		if e = strings.TrimSpace(e); common.IsValidEmail(e) {
			c.Emails = append(c.Emails, strings.ToLower(e))
		}
	}

	c.OwnershipInfo = optional(strings.TrimSpace(raw.OwnershipInfo))
	c.MineralRightsPercentage = ParsePercentage(raw.MineralRights)
	if ot, ok := constants.CanonicalizeOwnership(raw.OwnershipType); ok {
		c.OwnershipType = &ot
	}
	c.RecordType = optional(strings.TrimSpace(raw.RecordType))
	c.DocumentSection = optional(strings.TrimSpace(raw.DocumentSection))
	c.Notes = optional(strings.TrimSpace(raw.Notes))

	c.IsLegalEntity = isLegalEntity(name, company, raw.Notes)
	return c, true
}

// splitName breaks a full name on whitespace. One token is a bare first
// name, two are first/last, and with three or more the final token is the
// last name and everything before it the first.
func splitName(full string) (first, last string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	case 2:
		return tokens[0], tokens[1]
	default:
		return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
	}
}

// applyAddress prefers explicitly-provided city/state/zip over a best-effort
// comma-split of the single address string.
func applyAddress(c *entity.Contact, raw llm.RawContact) {
	c.Address = optional(strings.TrimSpace(raw.Address))
	c.City = optional(strings.TrimSpace(raw.City))
	c.State = optional(strings.TrimSpace(raw.State))
	c.Zip = optional(strings.TrimSpace(raw.Zip))
	c.Unit = optional(strings.TrimSpace(raw.Unit))

	if c.Address == nil || (c.City != nil && c.State != nil && c.Zip != nil) {
		return
	}

	segments := strings.Split(*c.Address, ",")
	if len(segments) < 2 {
		return
	}
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}

	street := segments[0]
	if street != "" {
		c.Address = &street
	}
	if c.City == nil && len(segments) >= 2 && segments[1] != "" {
		c.City = &segments[1]
	}
	if m := stateZipPattern.FindStringSubmatch(segments[len(segments)-1]); m != nil {
		if c.State == nil {
			state := strings.ToUpper(m[1])
			c.State = &state
		}
		if c.Zip == nil {
			c.Zip = &m[2]
		}
	}
}

// ParsePercentage converts a textual interest share to a decimal percent.
// Fractions convert through division ("3/8" is 37.5), literal percentages
// parse to their numeric value, and anything else yields nil.
func ParsePercentage(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if m := fractionPattern.FindStringSubmatch(s); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		den, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil || den == 0 {
			return nil
		}
		pct := num / den * 100
		if pct < 0 || pct > 100 {
			return nil
		}
		return &pct
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	pct, err := strconv.ParseFloat(s, 64)
	if err != nil || pct < 0 || pct > 100 {
		return nil
	}
	return &pct
}

// isLegalEntity flags law practices and registered agents so they can be
// filtered out of owner outreach. Matching is whole-word to keep names like
// "Pollard" from tripping the "llp" marker.
func isLegalEntity(fields ...string) bool {
	for _, f := range fields {
		if f == "" {
			continue
		}
		words := tokenizeWords(f)
		for _, marker := range constants.LegalEntityMarkers {
			if containsPhrase(words, marker) {
				return true
			}
		}
	}
	return false
}

func tokenizeWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// containsPhrase matches a marker against the word stream; multi-word
// markers like "law firm" must appear as consecutive words. Markers are
// tokenized the same way as the input so "p.c." lines up with "P.C.".
func containsPhrase(words []string, marker string) bool {
	parts := tokenizeWords(marker)
	if len(parts) == 0 {
		return false
	}
outer:
	for i := 0; i+len(parts) <= len(words); i++ {
		for j, p := range parts {
			if words[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
