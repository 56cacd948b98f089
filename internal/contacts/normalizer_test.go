package contacts

import (
	"testing"
	"time"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/llm"
)

var testProv = Provenance{SourceFile: "filings/2025/well-42.pdf", JobID: "OCD_CBT_20251113235900_7b2e", ProjectOrigin: "OCD_CBT"}

func TestNormalizeNameSplit(t *testing.T) {
	tests := []struct {
		name      string
		fullName  string
		wantFirst string
		wantLast  string
	}{
		{"single token", "Cher", "Cher", ""},
		{"two tokens", "John Smith", "John", "Smith"},
		{"three tokens", "Mary Jo Haskins", "Mary Jo", "Haskins"},
		{"four tokens", "Juan de la Cruz", "Juan de la", "Cruz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Normalize(llm.RawContact{Name: tt.fullName}, testProv, time.Now())
			if !ok {
				t.Fatal("Normalize() rejected a named record")
			}
			if got := deref(c.FirstName); got != tt.wantFirst {
				t.Errorf("first = %q, want %q", got, tt.wantFirst)
			}
			if got := deref(c.LastName); got != tt.wantLast {
				t.Errorf("last = %q, want %q", got, tt.wantLast)
			}
		})
	}
}

func TestNormalizeKeepsExplicitNameParts(t *testing.T) {
	raw := llm.RawContact{Name: "J. R. Ewing", FirstName: "John", LastName: "Ewing"}
	c, ok := Normalize(raw, testProv, time.Now())
	if !ok {
		t.Fatal("Normalize() rejected the record")
	}
	if deref(c.FirstName) != "John" || deref(c.LastName) != "Ewing" {
		t.Errorf("explicit parts overridden: %q %q", deref(c.FirstName), deref(c.LastName))
	}
	if deref(c.Name) != "J. R. Ewing" {
		t.Errorf("full name lost: %q", deref(c.Name))
	}
}

func TestNormalizeRejectsNamelessRecord(t *testing.T) {
	if _, ok := Normalize(llm.RawContact{Address: "100 Main St"}, testProv, time.Now()); ok {
		t.Error("Normalize() accepted a record with no name and no company")
	}
}

func TestNormalizeAddressParse(t *testing.T) {
	raw := llm.RawContact{
		Name:    "Dora Ginn",
		Address: "4205 Ridgecrest Dr, Hobbs, NM 88240-1122",
	}
	c, ok := Normalize(raw, testProv, time.Now())
	if !ok {
		t.Fatal("Normalize() rejected the record")
	}
	if deref(c.Address) != "4205 Ridgecrest Dr" {
		t.Errorf("street = %q", deref(c.Address))
	}
	if deref(c.City) != "Hobbs" {
		t.Errorf("city = %q", deref(c.City))
	}
	if deref(c.State) != "NM" {
		t.Errorf("state = %q", deref(c.State))
	}
	if deref(c.Zip) != "88240-1122" {
		t.Errorf("zip = %q", deref(c.Zip))
	}
}

func TestNormalizePrefersExplicitAddressFields(t *testing.T) {
	raw := llm.RawContact{
		Name:    "Dora Ginn",
		Address: "4205 Ridgecrest Dr, Hobbs, NM 88240",
		City:    "Midland",
		State:   "TX",
		Zip:     "79701",
	}
	c, _ := Normalize(raw, testProv, time.Now())
	if deref(c.City) != "Midland" || deref(c.State) != "TX" || deref(c.Zip) != "79701" {
		t.Errorf("explicit fields not preferred: %q %q %q", deref(c.City), deref(c.State), deref(c.Zip))
	}
	if deref(c.Address) != "4205 Ridgecrest Dr, Hobbs, NM 88240" {
		t.Errorf("address rewritten despite explicit fields: %q", deref(c.Address))
	}
}

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"3/8", f(37.5)},
		{"25.5%", f(25.5)},
		{"12.5", f(12.5)},
		{"1/3", f(100.0 / 3)},
		{"unknown", nil},
		{"", nil},
		{"150%", nil},
		{"3/0", nil},
		{"3/2", nil},
		{"8/8", f(100)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParsePercentage(tt.in)
			switch {
			case got == nil && tt.want != nil:
				t.Errorf("ParsePercentage(%q) = nil, want %v", tt.in, *tt.want)
			case got != nil && tt.want == nil:
				t.Errorf("ParsePercentage(%q) = %v, want nil", tt.in, *got)
			case got != nil && tt.want != nil && !almostEqual(*got, *tt.want):
				t.Errorf("ParsePercentage(%q) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestNormalizePhoneAndEmailValidation(t *testing.T) {
	raw := llm.RawContact{
		Name:   "John Smith",
		Phones: []string{"(575) 393-6161", "1-575-555-0100", "not a phone"},
		Emails: []string{"john..smith@example.com", "John.Smith@Example.com", "third@example.com"},
	}
	c, _ := Normalize(raw, testProv, time.Now())
	if len(c.Phones) != 2 {
		t.Fatalf("phones = %v, want the two valid numbers", c.Phones)
	}
	if c.Phones[0] != "5753936161" || c.Phones[1] != "5755550100" {
		t.Errorf("phones = %v", c.Phones)
	}
	// the consecutive-dot address drops, the rest lowercase, capped at two
	if len(c.Emails) != 1 || c.Emails[0] != "john.smith@example.com" {
		t.Errorf("emails = %v", c.Emails)
	}
}

func TestNormalizeOwnership(t *testing.T) {
	raw := llm.RawContact{
		Company:       "Permian Basin Operating LLC",
		OwnershipType: "overriding royalty interest",
		MineralRights: "3/16",
	}
	c, _ := Normalize(raw, testProv, time.Now())
	if c.OwnershipType == nil || *c.OwnershipType != constants.OverridingRoyalty {
		t.Errorf("ownership type = %v, want ORRI", c.OwnershipType)
	}
	if c.MineralRightsPercentage == nil || !almostEqual(*c.MineralRightsPercentage, 18.75) {
		t.Errorf("percentage = %v, want 18.75", c.MineralRightsPercentage)
	}
}

func TestIsLegalEntity(t *testing.T) {
	tests := []struct {
		name string
		raw  llm.RawContact
		want bool
	}{
		{"law firm in company", llm.RawContact{Name: "Jane Doe", Company: "Doe Law Firm PLLC"}, true},
		{"attorney in notes", llm.RawContact{Name: "Jane Doe", Notes: "attorney of record"}, true},
		{"esq suffix", llm.RawContact{Name: "James Bruce Esq."}, true},
		{"substring must not match", llm.RawContact{Name: "Wesquire Pollard"}, false},
		{"plain owner", llm.RawContact{Name: "John Smith", Company: "Smith Ranches"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := Normalize(tt.raw, testProv, time.Now())
			if c.IsLegalEntity != tt.want {
				t.Errorf("is_legal_entity = %v, want %v", c.IsLegalEntity, tt.want)
			}
		})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func f(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
