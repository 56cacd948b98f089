package llm

import (
	"context"
	"errors"
	"fmt"
)

// RawContact is the loose shape the language model returns for one contact
// found in a filing. Everything is optional; the normalizer decides what a
// record needs to be usable.
type RawContact struct {
	Name            string   `json:"name,omitempty"`
	FirstName       string   `json:"first_name,omitempty"`
	LastName        string   `json:"last_name,omitempty"`
	Company         string   `json:"company,omitempty"`
	Address         string   `json:"address,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	Zip             string   `json:"zip,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	Phones          []string `json:"phones,omitempty"`
	Emails          []string `json:"emails,omitempty"`
	OwnershipInfo   string   `json:"ownership_info,omitempty"`
	MineralRights   string   `json:"mineral_rights_percentage,omitempty"` // "3/8", "25.5%", ...
	OwnershipType   string   `json:"ownership_type,omitempty"`
	RecordType      string   `json:"record_type,omitempty"`
	DocumentSection string   `json:"document_section,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// Typed upstream failures. Rate limiting and overload are transient and
// worth retrying; a page-limit rejection is handled by chunking, never by
// retrying; anything else is fatal for the current call.
var (
	ErrRateLimited = errors.New("llm: rate limited")
	ErrOverloaded  = errors.New("llm: overloaded")
)

// PageLimitError signals the provider's hard ceiling on document pages.
type PageLimitError struct {
	MaxPages int
}

func (e *PageLimitError) Error() string {
	return fmt.Sprintf("llm: document exceeds page limit of %d", e.MaxPages)
}

// ContactExtractor is the interface the pipeline depends on. Text extraction
// serves the OCR tiers; document extraction is the vision fallback that
// sends PDF bytes straight to the model.
type ContactExtractor interface {
	ExtractFromText(ctx context.Context, text, filename string) ([]RawContact, error)
	ExtractFromDocument(ctx context.Context, document []byte, filename string) ([]RawContact, error)
}
