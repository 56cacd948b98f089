package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/basinworks/filings-tracker/internal/entity"
	"github.com/basinworks/filings-tracker/internal/repository"
)

// Service is a tiny façade over the contact repository that produces XLSX
// and CSV bytes for exports.
type Service struct {
	contactsRepo repository.ContactRepository
	logger       *slog.Logger
}

func NewService(repo repository.ContactRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{contactsRepo: repo, logger: logger}
}

var contactHeaders = []string{
	"Name",
	"First Name",
	"Last Name",
	"Company",
	"Address",
	"City",
	"State",
	"Zip",
	"Phones",
	"Emails",
	"Ownership Type",
	"Interest %",
	"Ownership Info",
	"Legal Entity",
	"Source File",
	"Job ID",
}

// ExportContactsXLSX returns an XLSX workbook for every contact under the
// given project origin, in created_at order.
func (s *Service) ExportContactsXLSX(ctx context.Context, projectOrigin string) ([]byte, error) {
	start := time.Now()

	contacts, err := s.contactsRepo.List(ctx, projectOrigin)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Contacts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range contactHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i := range contacts {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		for col, v := range contactRow(&contacts[i]) {
			write(col+1, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // name
	_ = f.SetColWidth(sheet, "D", "D", 32) // company
	_ = f.SetColWidth(sheet, "E", "E", 40) // address
	_ = f.SetColWidth(sheet, "I", "J", 28) // phones, emails
	_ = f.SetColWidth(sheet, "O", "O", 48) // source file

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"project_origin", projectOrigin,
		"rows", len(contacts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportContactsCSV renders the same rows as the workbook, for tooling that
// wants plain text.
func (s *Service) ExportContactsCSV(ctx context.Context, projectOrigin string) ([]byte, error) {
	contacts, err := s.contactsRepo.List(ctx, projectOrigin)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(contactHeaders); err != nil {
		return nil, err
	}
	for i := range contacts {
		row := contactRow(&contacts[i])
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = fmt.Sprintf("%v", v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}

	s.logger.Info("export.csv.ok", "project_origin", projectOrigin, "rows", len(contacts))
	return buf.Bytes(), nil
}

func contactRow(c *entity.Contact) []any {
	percentage := ""
	if c.MineralRightsPercentage != nil {
		percentage = fmt.Sprintf("%.4g", *c.MineralRightsPercentage)
	}
	ownership := ""
	if c.OwnershipType != nil {
		ownership = string(*c.OwnershipType)
	}
	return []any{
		deref(c.Name),
		deref(c.FirstName),
		deref(c.LastName),
		deref(c.Company),
		deref(c.Address),
		deref(c.City),
		deref(c.State),
		deref(c.Zip),
		strings.Join(c.Phones, "; "),
		strings.Join(c.Emails, "; "),
		ownership,
		percentage,
		truncate(deref(c.OwnershipInfo), 140),
		c.IsLegalEntity,
		c.SourceFile,
		c.JobID,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
