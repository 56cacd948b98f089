package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// knownContactKeys is the set of keys the contact schema accepts; anything
// else the model invents is dropped before validation.
var knownContactKeys = map[string]struct{}{
	"name": {}, "first_name": {}, "last_name": {}, "company": {},
	"address": {}, "city": {}, "state": {}, "zip": {}, "unit": {},
	"phones": {}, "emails": {}, "ownership_info": {},
	"mineral_rights_percentage": {}, "ownership_type": {},
	"record_type": {}, "document_section": {}, "notes": {},
}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (phone -> phones, owner_name -> name, ...)
// - Wraps scalar phone/email values into arrays and caps their lengths
// - Coerces numeric percentages to strings
// - Drops nulls, empty strings, and unknown keys (strict
//   additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// some responses arrive as a bare array of contacts
		var list []any
		if err2 := json.Unmarshal(raw, &list); err2 != nil {
			return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
		}
		envelope = map[string]any{"contacts": list}
	}

	list, _ := envelope["contacts"].([]any)
	var dropped []string

	cleaned := make([]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("contacts[%d](not an object)", i))
			continue
		}
		sanitizeContact(m, &dropped)
		cleaned = append(cleaned, m)
	}

	if len(dropped) > 0 {
		logger.Debug("llm.sanitize.adjusted", "count", len(dropped), "keys", dropped)
	}

	b, err := json.Marshal(map[string]any{"contacts": cleaned})
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

func sanitizeContact(m map[string]any, dropped *[]string) {
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			*dropped = append(*dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms onto the schema
	rename("owner_name", "name")
	rename("full_name", "name")
	rename("company_name", "company")
	rename("organization", "company")
	rename("phone", "phones")
	rename("phone_number", "phones")
	rename("email", "emails")
	rename("email_address", "emails")
	rename("percentage", "mineral_rights_percentage")
	rename("interest_percentage", "mineral_rights_percentage")
	rename("zip_code", "zip")
	rename("section", "document_section")

	// 2) scalar phone/email become single-element arrays
	for _, k := range []string{"phones", "emails"} {
		switch t := m[k].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				m[k] = []any{s}
			} else {
				delete(m, k)
			}
		case []any:
			kept := make([]any, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
					kept = append(kept, strings.TrimSpace(s))
				}
			}
			limit := 8
			if k == "emails" {
				limit = 2
			}
			if len(kept) > limit {
				kept = kept[:limit]
				*dropped = append(*dropped, k+"(truncated)")
			}
			if len(kept) == 0 {
				delete(m, k)
			} else {
				m[k] = kept
			}
		case nil:
		default:
			delete(m, k)
			*dropped = append(*dropped, k+"(bad type)")
		}
	}

	// 3) numeric percentage -> string
	if v, ok := m["mineral_rights_percentage"].(float64); ok {
		m["mineral_rights_percentage"] = strings.TrimSuffix(fmt.Sprintf("%g", v), ".0")
	}

	// 4) drop nulls, empty strings, and keys the schema does not know
	for k, v := range m {
		if _, known := knownContactKeys[k]; !known {
			delete(m, k)
			*dropped = append(*dropped, k+"(unknown)")
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
			*dropped = append(*dropped, k+"(null)")
		case string:
			if strings.TrimSpace(t) == "" || strings.EqualFold(t, "null") {
				delete(m, k)
				*dropped = append(*dropped, k+"(empty)")
			} else {
				m[k] = strings.TrimSpace(t)
			}
		}
	}
}
