package core

import (
	"strings"
	"testing"
	"time"
)

func strptr(s string) *string { return &s }

func TestRenderDonorCSV_Header(t *testing.T) {
	// The header row is unquoted; only donor values carry quotes.
	out := string(renderDonorCSV(nil))
	want := "ID,Full Name,Email,Phone,Address,City,State,Zip,Country,Organization,Status,Created At\n"
	if out != want {
		t.Errorf("empty export = %q, want header only %q", out, want)
	}
}

func TestRenderDonorCSV_Row(t *testing.T) {
	d := &Donor{
		ID:           "d1",
		FullName:     strptr(`Pat "Patty" Smith`),
		Email:        strptr("pat@example.org"),
		Phone:        strptr("555-0100"),
		AddressLine1: strptr("1 Main St"),
		AddressLine2: strptr("Apt 2"),
		City:         strptr("Austin"),
		State:        strptr("TX"),
		PostalCode:   strptr("78701"),
		Country:      "USA",
		Business:     strptr("Smith LLC"),
		IsActive:     true,
		CreatedAt:    time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	out := string(renderDonorCSV([]*Donor{d}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	want := `"d1","Pat ""Patty"" Smith","pat@example.org","555-0100","1 Main St Apt 2","Austin","TX","78701","USA","Smith LLC","Active","2025-03-14T10:00:00Z"`
	if lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func TestAddress_JoinsBothLines(t *testing.T) {
	tests := []struct {
		name  string
		donor *Donor
		want  string
	}{
		{"both lines", &Donor{AddressLine1: strptr("1 Main St"), AddressLine2: strptr("Apt 2")}, "1 Main St Apt 2"},
		{"line one only", &Donor{AddressLine1: strptr("1 Main St")}, "1 Main St"},
		{"line two only", &Donor{AddressLine2: strptr("Apt 2")}, "Apt 2"},
		{"neither", &Donor{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := address(tt.donor); got != tt.want {
				t.Errorf("address = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderDonorCSV_EveryValueQuoted(t *testing.T) {
	d := &Donor{ID: "d1", Country: "USA", IsActive: false}
	out := string(renderDonorCSV([]*Donor{d}))
	row := strings.Split(out, "\n")[1]

	for _, cell := range strings.Split(row, ",") {
		if !strings.HasPrefix(cell, `"`) || !strings.HasSuffix(cell, `"`) {
			t.Errorf("cell %q is not quoted", cell)
		}
	}
	if !strings.Contains(row, `"Inactive"`) {
		t.Errorf("row should mark donor Inactive: %q", row)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		donor *Donor
		want  string
	}{
		{"full name wins", &Donor{FullName: strptr("A Donor"), FirstName: strptr("B")}, "A Donor"},
		{"first and last joined", &Donor{FirstName: strptr("Pat"), LastName: strptr("Smith")}, "Pat Smith"},
		{"first only", &Donor{FirstName: strptr("Pat")}, "Pat"},
		{"blank full name falls back", &Donor{FullName: strptr("  "), LastName: strptr("Smith")}, "Smith"},
		{"nothing", &Donor{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayName(tt.donor); got != tt.want {
				t.Errorf("displayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrganization_CoalescesInPriorityOrder(t *testing.T) {
	d := &Donor{
		Business: strptr("Smith LLC"),
		Church:   strptr("First Church"),
	}
	if got := organization(d); got != "Smith LLC" {
		t.Errorf("organization = %q, want Smith LLC", got)
	}

	d.NonprofitOrg = strptr("Helpers Inc")
	if got := organization(d); got != "Helpers Inc" {
		t.Errorf("organization = %q, want Helpers Inc", got)
	}

	if got := organization(&Donor{}); got != "" {
		t.Errorf("organization of empty donor = %q, want empty", got)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2025, 7, 4, 23, 59, 0, 0, time.UTC)
	if got := ExportFilename(now); got != "donors_export_2025-07-04.csv" {
		t.Errorf("ExportFilename = %q", got)
	}
}
