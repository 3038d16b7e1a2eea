package core

import "testing"

func TestAutoMapHeaders(t *testing.T) {
	headers := []string{"Full Name", "E-Mail", "Phone Number", "X (Twitter)", "Notes"}

	mapping := AutoMapHeaders(headers)

	want := map[string]string{
		"Full Name":   "full_name",
		"E-Mail":      "email",
		"X (Twitter)": "x_twitter",
	}
	for header, field := range want {
		if mapping[header] != field {
			t.Errorf("mapping[%q] = %q, want %q", header, mapping[header], field)
		}
	}
	if _, ok := mapping["Notes"]; ok {
		t.Error("Notes should stay unmapped")
	}
	if _, ok := mapping["Phone Number"]; ok {
		t.Error("Phone Number should stay unmapped, it is not an exact match for Phone")
	}
}

func TestAutoMapHeaders_MatchesKeys(t *testing.T) {
	mapping := AutoMapHeaders([]string{"first_name", "last name", "POSTAL CODE"})

	want := map[string]string{
		"first_name":  "first_name",
		"last name":   "last_name",
		"POSTAL CODE": "postal_code",
	}
	for header, field := range want {
		if mapping[header] != field {
			t.Errorf("mapping[%q] = %q, want %q", header, mapping[header], field)
		}
	}
}

func TestAutoMapHeaders_ClaimsFieldsInOrder(t *testing.T) {
	// The address lines normalize identically; catalog order decides.
	mapping := AutoMapHeaders([]string{"Address Line 1", "Address Line 2"})

	if mapping["Address Line 1"] != "address_line1" {
		t.Errorf("mapping[Address Line 1] = %q", mapping["Address Line 1"])
	}
	if mapping["Address Line 2"] != "address_line2" {
		t.Errorf("mapping[Address Line 2] = %q", mapping["Address Line 2"])
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Full Name", "fullname"},
		{"E-Mail ", "email"},
		{"x_twitter", "xtwitter"},
		{"123", ""},
	}

	for _, tt := range tests {
		if got := normalizeHeader(tt.in); got != tt.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDonorField(t *testing.T) {
	if !IsDonorField("venmo") {
		t.Error("venmo should be a donor field")
	}
	if IsDonorField("is_active") {
		t.Error("is_active is filterable but not mappable")
	}
}

func TestFieldLabel(t *testing.T) {
	if got := FieldLabel("nonprofit_org"); got != "Non-profit Org" {
		t.Errorf("FieldLabel(nonprofit_org) = %q", got)
	}
	if got := FieldLabel("mystery"); got != "mystery" {
		t.Errorf("FieldLabel(mystery) = %q", got)
	}
}
