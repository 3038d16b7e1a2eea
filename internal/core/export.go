package core

import (
	"context"
	"strings"
	"time"
)

// exportHeader is the fixed column set of the donor CSV export. Spread-
// sheet consumers depend on the exact labels and order.
var exportHeader = []string{
	"ID", "Full Name", "Email", "Phone", "Address", "City", "State", "Zip",
	"Country", "Organization", "Status", "Created At",
}

// ExportDonors fetches every donor matching the filters and renders the
// CSV document. The filters and search compile exactly as the list view,
// so the download always matches what is on screen.
func (s *Service) ExportDonors(ctx context.Context, filters FilterSet, search string) ([]byte, int, error) {
	donors, err := s.donorsForExport(ctx, filters, search)
	if err != nil {
		return nil, 0, err
	}
	return renderDonorCSV(donors), len(donors), nil
}

// ExportFilename names the download after the export date.
func ExportFilename(now time.Time) string {
	return "donors_export_" + now.Format("2006-01-02") + ".csv"
}

// renderDonorCSV renders donors as CSV. The header row is plain; every
// donor value is quoted.
//
// encoding/csv quotes only when a value needs it; this export quotes
// row values unconditionally because downstream mail-merge tooling
// expects it, so rows are assembled by hand.
func renderDonorCSV(donors []*Donor) []byte {
	var b strings.Builder

	writeRow := func(values []string) {
		for i, v := range values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(v, `"`, `""`))
			b.WriteByte('"')
		}
		b.WriteByte('\n')
	}

	b.WriteString(strings.Join(exportHeader, ","))
	b.WriteByte('\n')
	for _, d := range donors {
		writeRow([]string{
			d.ID,
			displayName(d),
			deref(d.Email),
			deref(d.Phone),
			address(d),
			deref(d.City),
			deref(d.State),
			deref(d.PostalCode),
			d.Country,
			organization(d),
			status(d),
			d.CreatedAt.Format(time.RFC3339),
		})
	}

	return []byte(b.String())
}

// address joins both address lines into the single Address column.
func address(d *Donor) string {
	return strings.TrimSpace(deref(d.AddressLine1) + " " + deref(d.AddressLine2))
}

// displayName prefers the stored full name, falling back to first and
// last joined with a space.
func displayName(d *Donor) string {
	if full := strings.TrimSpace(deref(d.FullName)); full != "" {
		return full
	}
	var parts []string
	for _, p := range []*string{d.FirstName, d.LastName} {
		if v := strings.TrimSpace(deref(p)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// organization coalesces the affiliation columns in fixed priority order.
func organization(d *Donor) string {
	for _, p := range []*string{d.NonprofitOrg, d.Business, d.Church, d.School} {
		if v := strings.TrimSpace(deref(p)); v != "" {
			return v
		}
	}
	return ""
}

func status(d *Donor) string {
	if d.IsActive {
		return "Active"
	}
	return "Inactive"
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
