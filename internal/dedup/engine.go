package dedup

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/google/uuid"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/entity"
)

const fuzzyThreshold = 0.9

// Duplicate records one contact folded into an earlier canonical record.
type Duplicate struct {
	ContactID   uuid.UUID `json:"contact_id"`
	CanonicalID uuid.UUID `json:"canonical_id"`
	MatchReason string    `json:"match_reason"`
	// similarity scores are only populated in fuzzy mode
	NameScore    *float64 `json:"name_score,omitempty"`
	CompanyScore *float64 `json:"company_score,omitempty"`
}

// Result is the audit trail of one deduplication run: the retained set and
// every keep/drop decision made.
type Result struct {
	Mode       constants.DedupMode `json:"mode"`
	DryRun     bool                `json:"dry_run"`
	Unique     []entity.Contact    `json:"unique"`
	Duplicates []Duplicate         `json:"duplicates"`
}

// Engine groups contacts by a mode-selected match key and keeps the
// earliest member of every group.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Deduplicate processes contacts in created_at ascending order so the
// earliest record of a group is always the one retained. The input slice is
// never mutated; repeated runs over the same input yield the same result.
func (e *Engine) Deduplicate(contacts []entity.Contact, mode constants.DedupMode, dryRun bool) (Result, error) {
	switch mode {
	case constants.DedupStrict, constants.DedupNameOnly, constants.DedupNameCompany, constants.DedupFuzzy:
	default:
		return Result{}, fmt.Errorf("%w: unknown dedup mode %q", common.ErrInvalidInput, mode)
	}

	ordered := make([]entity.Contact, len(contacts))
	copy(ordered, contacts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	res := Result{Mode: mode, DryRun: dryRun}
	if mode == constants.DedupFuzzy {
		e.fuzzy(ordered, &res)
	} else {
		e.keyed(ordered, mode, &res)
	}

	e.logger.Info("dedup.run.done",
		"mode", string(mode),
		"dry_run", dryRun,
		"input", len(contacts),
		"unique", len(res.Unique),
		"duplicates", len(res.Duplicates))
	return res, nil
}

// keyed handles the exact-key modes: strict, name-only, name-company.
func (e *Engine) keyed(ordered []entity.Contact, mode constants.DedupMode, res *Result) {
	seen := make(map[string]uuid.UUID, len(ordered))
	for i := range ordered {
		c := &ordered[i]
		key, ok := matchKey(c, mode)
		if !ok {
			// no usable identity for this mode; never fold such contacts
			res.Unique = append(res.Unique, *c)
			continue
		}
		if canonical, ok := seen[key]; ok {
			res.Duplicates = append(res.Duplicates, Duplicate{
				ContactID:   c.ID,
				CanonicalID: canonical,
				MatchReason: fmt.Sprintf("%s key match: %s", mode, key),
			})
			continue
		}
		seen[key] = c.ID
		res.Unique = append(res.Unique, *c)
	}
}

// fuzzy compares each contact against the already-accepted set, first match
// wins. This is deliberately not a transitive clustering: A~B and B~C can
// land in different groups depending on insertion order.
func (e *Engine) fuzzy(ordered []entity.Contact, res *Result) {
	type accepted struct {
		id      uuid.UUID
		person  string
		company string
	}
	var kept []accepted

	for i := range ordered {
		c := &ordered[i]
		person := personKey(c)
		company := normalizeKey(deref(c.Company))

		matched := false
		for _, a := range kept {
			nameScore := Similarity(person, a.person)
			companyScore := 1.0
			if company != "" && a.company != "" {
				companyScore = Similarity(company, a.company)
			}
			if nameScore >= fuzzyThreshold && companyScore >= fuzzyThreshold {
				ns, cs := nameScore, companyScore
				res.Duplicates = append(res.Duplicates, Duplicate{
					ContactID:    c.ID,
					CanonicalID:  a.id,
					MatchReason:  fmt.Sprintf("fuzzy match: name %.3f company %.3f", nameScore, companyScore),
					NameScore:    &ns,
					CompanyScore: &cs,
				})
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, accepted{id: c.ID, person: person, company: company})
			res.Unique = append(res.Unique, *c)
		}
	}
}

// Similarity is the normalized Levenshtein score (maxLen-dist)/maxLen in
// [0,1]. Two empty strings are identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.Distance(a, b, nil)
	return float64(maxLen-dist) / float64(maxLen)
}

// matchKey builds the exact grouping key for one contact. The second return
// is false when the contact carries no identity the mode can match on; an
// empty key would fold every such contact into one group.
func matchKey(c *entity.Contact, mode constants.DedupMode) (string, bool) {
	person := personKey(c)
	company := normalizeKey(deref(c.Company))
	switch mode {
	case constants.DedupNameOnly:
		// nameless contacts fall back to their company so distinct
		// company-only records are never folded together
		if person == "" {
			return "company|" + company, company != ""
		}
		return person, true
	case constants.DedupNameCompany:
		return person + "|" + company, person != "" || company != ""
	default: // strict
		phone := firstOrEmpty(c.Phones)
		email := firstOrEmpty(c.Emails)
		key := strings.Join([]string{person, company, phone, email}, "|")
		return key, person != "" || company != "" || phone != "" || email != ""
	}
}

// personKey is "first::last" when both parts exist, otherwise the raw name.
func personKey(c *entity.Contact) string {
	first := normalizeKey(deref(c.FirstName))
	last := normalizeKey(deref(c.LastName))
	if first != "" && last != "" {
		return first + "::" + last
	}
	return normalizeKey(deref(c.Name))
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
