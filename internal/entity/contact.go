package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/basinworks/filings-tracker/constants"
)

// MaxPhones and MaxEmails bound the contact slots carried per record.
const (
	MaxPhones = 8
	MaxEmails = 2
)

// Contact is one canonical interest-owner record for data transfer between
// layers. Either Name or Company is always present; everything else is
// best-effort from the filing text.
type Contact struct {
	ID                      uuid.UUID                `json:"id"`
	Name                    *string                  `json:"name,omitempty"`
	FirstName               *string                  `json:"first_name,omitempty"`
	LastName                *string                  `json:"last_name,omitempty"`
	Company                 *string                  `json:"company,omitempty"`
	Address                 *string                  `json:"address,omitempty"`
	City                    *string                  `json:"city,omitempty"`
	State                   *string                  `json:"state,omitempty"`
	Zip                     *string                  `json:"zip,omitempty"`
	Unit                    *string                  `json:"unit,omitempty"`
	Phones                  []string                 `json:"phones,omitempty"`
	Emails                  []string                 `json:"emails,omitempty"`
	OwnershipInfo           *string                  `json:"ownership_info,omitempty"`
	MineralRightsPercentage *float64                 `json:"mineral_rights_percentage,omitempty"`
	OwnershipType           *constants.OwnershipType `json:"ownership_type,omitempty"`
	RecordType              *string                  `json:"record_type,omitempty"`
	DocumentSection         *string                  `json:"document_section,omitempty"`
	Notes                   *string                  `json:"notes,omitempty"`
	IsLegalEntity           bool                     `json:"is_legal_entity"`
	Acknowledged            bool                     `json:"acknowledged"`
	SourceFile              string                   `json:"source_file"`
	JobID                   string                   `json:"job_id"`
	ProjectOrigin           string                   `json:"project_origin"`
	CreatedAt               time.Time                `json:"created_at"`
	UpdatedAt               time.Time                `json:"updated_at"`
}

// DisplayName is the best human-readable label for logs and exports.
func (c *Contact) DisplayName() string {
	switch {
	case c.Name != nil && *c.Name != "":
		return *c.Name
	case c.Company != nil && *c.Company != "":
		return *c.Company
	default:
		return "(unnamed)"
	}
}
